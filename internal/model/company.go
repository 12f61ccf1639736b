package model

import (
	"time"

	"gorm.io/gorm"
)

// DefaultCompanyPriority is used when a company is created without a priority
const DefaultCompanyPriority = 3

// Company represents an organisation targeted by outreach
type Company struct {
	ID           uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string         `json:"name" gorm:"type:varchar(255);not null;index"`
	Website      string         `json:"website" gorm:"type:varchar(255)"`
	Industry     string         `json:"industry" gorm:"type:varchar(255)"`
	Size         string         `json:"size" gorm:"type:varchar(100)"`
	Location     string         `json:"location" gorm:"type:varchar(255)"`
	FundingStage string         `json:"funding_stage" gorm:"type:varchar(100)"`
	Source       string         `json:"source" gorm:"type:varchar(255)"`
	Notes        string         `json:"notes" gorm:"type:text"`
	Priority     int            `json:"priority" gorm:"default:3"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for Company
func (Company) TableName() string {
	return "companies"
}

// NormalizePriority clamps a priority into the 1-5 range, 0 meaning default
func NormalizePriority(p int) int {
	switch {
	case p == 0:
		return DefaultCompanyPriority
	case p < 1:
		return 1
	case p > 5:
		return 5
	}
	return p
}
