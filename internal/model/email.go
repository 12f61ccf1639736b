package model

import (
	"time"

	"gorm.io/gorm"
)

// EmailStatus is the state of a single outbound message
type EmailStatus string

const (
	EmailDraft     EmailStatus = "draft"
	EmailScheduled EmailStatus = "scheduled"
	EmailSent      EmailStatus = "sent"
	EmailFailed    EmailStatus = "failed"
)

// Pending reports whether the email has not reached a terminal status yet
func (s EmailStatus) Pending() bool {
	return s == EmailDraft || s == EmailScheduled
}

// Email represents one outbound send attempt tied to a contact
type Email struct {
	ID                uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	ContactID         uint           `json:"contact_id" gorm:"not null;index"`
	TemplateName      string         `json:"template_name" gorm:"type:varchar(100);not null"`
	Subject           string         `json:"subject" gorm:"type:varchar(998)"`
	Body              string         `json:"body" gorm:"type:text"`
	Status            EmailStatus    `json:"status" gorm:"type:varchar(50);not null;default:draft;index:idx_emails_status_scheduled"`
	ScheduledAt       time.Time      `json:"scheduled_at" gorm:"index:idx_emails_status_scheduled"`
	SentAt            *time.Time     `json:"sent_at" gorm:"index"`
	RepliedAt         *time.Time     `json:"replied_at"`
	FollowupNumber    int            `json:"followup_number" gorm:"not null;default:0"`
	ErrorMessage      string         `json:"error_message" gorm:"type:text"`
	ProviderMessageID string         `json:"provider_message_id" gorm:"type:varchar(255)"`
	CreatedAt         time.Time      `json:"created_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Contact *Contact `json:"contact,omitempty" gorm:"foreignKey:ContactID"`
}

// TableName specifies the table name for Email
func (Email) TableName() string {
	return "emails"
}
