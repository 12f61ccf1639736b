package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ContactStatus is the lifecycle state of a contact
type ContactStatus string

const (
	ContactNew           ContactStatus = "new"
	ContactContacted     ContactStatus = "contacted"
	ContactFollowup1     ContactStatus = "followup_1"
	ContactFollowup2     ContactStatus = "followup_2"
	ContactFollowupFinal ContactStatus = "followup_final"
	ContactReplied       ContactStatus = "replied"
	ContactNotInterested ContactStatus = "not_interested"
)

// ContactedStatuses are the states in which a contact may reply to outreach
var ContactedStatuses = []ContactStatus{
	ContactContacted,
	ContactFollowup1,
	ContactFollowup2,
	ContactFollowupFinal,
}

// Contact represents a person targeted for outreach
type Contact struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	CompanyID *uint          `json:"company_id" gorm:"index"`
	Name      string         `json:"name" gorm:"type:varchar(255)"`
	FirstName string         `json:"first_name" gorm:"type:varchar(255)"`
	LastName  string         `json:"last_name" gorm:"type:varchar(255)"`
	Email     string         `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Title     string         `json:"title" gorm:"type:varchar(255)"`
	LinkedIn  string         `json:"linkedin" gorm:"type:varchar(255)"`
	Source    string         `json:"source" gorm:"type:varchar(255)"`
	Status    ContactStatus  `json:"status" gorm:"type:varchar(50);not null;default:new;index"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

// TableName specifies the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}

// CompanyName returns the name of the associated company, if loaded
func (c *Contact) CompanyName() string {
	if c.Company == nil {
		return ""
	}
	return c.Company.Name
}

// Greeting returns the name used to address the contact
func (c *Contact) Greeting() string {
	if c.FirstName != "" {
		return c.FirstName
	}
	if fields := strings.Fields(c.Name); len(fields) > 0 {
		return fields[0]
	}
	return "there"
}

// NormalizeEmail canonicalises an address for storage and lookups
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// SplitName splits a display name into first and last name
func SplitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
