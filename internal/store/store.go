// Package store defines the persistence operations the outreach engine
// consumes. Every method is a point operation; implementations must make each
// call atomic on its own.
package store

import (
	"context"
	"errors"
	"time"

	"smart-outreach-go/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrNotScheduled is returned when a status change expected a scheduled
	// email but the email had already moved on
	ErrNotScheduled = errors.New("email is no longer scheduled")
)

// ContactFilter narrows contact listings
type ContactFilter struct {
	Status model.ContactStatus
	Limit  int
}

// EmailFilter narrows email listings
type EmailFilter struct {
	Status    model.EmailStatus
	ContactID uint
	Limit     int
	Offset    int
}

// Store is the storage collaborator of the outreach engine
type Store interface {
	CreateCompany(ctx context.Context, company *model.Company) error
	GetCompany(ctx context.Context, id uint) (*model.Company, error)
	FindCompanyByName(ctx context.Context, name string) (*model.Company, error)
	ListCompanies(ctx context.Context, minPriority, limit int) ([]model.Company, error)

	// CreateContact inserts a contact. When the email already exists the
	// existing record is returned and created is false.
	CreateContact(ctx context.Context, contact *model.Contact) (id uint, created bool, err error)
	GetContact(ctx context.Context, id uint) (*model.Contact, error)
	GetContactByEmail(ctx context.Context, email string) (*model.Contact, error)
	ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error)
	// ContactsByStatus returns contacts oldest first
	ContactsByStatus(ctx context.Context, status model.ContactStatus, limit int) ([]model.Contact, error)
	UpdateContactStatus(ctx context.Context, id uint, status model.ContactStatus) error
	CountContactsByStatus(ctx context.Context) (map[model.ContactStatus]int64, error)

	CreateEmail(ctx context.Context, email *model.Email) error
	GetEmail(ctx context.Context, id uint) (*model.Email, error)
	ListEmails(ctx context.Context, filter EmailFilter) ([]model.Email, int64, error)
	// EmailsByContact returns the emails of a contact newest first
	EmailsByContact(ctx context.Context, contactID uint) ([]model.Email, error)
	// DueEmails returns up to limit scheduled emails with scheduled_at <= now,
	// oldest scheduled first, with Contact preloaded
	DueEmails(ctx context.Context, now time.Time, limit int) ([]model.Email, error)
	// MarkEmailSent moves a scheduled email to sent, or returns ErrNotScheduled
	MarkEmailSent(ctx context.Context, id uint, sentAt time.Time, providerMessageID string) error
	// MarkEmailFailed moves a scheduled email to failed, or returns ErrNotScheduled
	MarkEmailFailed(ctx context.Context, id uint, reason string) error
	// CancelPendingEmails fails every draft or scheduled email of a contact
	CancelPendingEmails(ctx context.Context, contactID uint, reason string) (int64, error)
	MarkContactEmailsReplied(ctx context.Context, contactID uint, repliedAt time.Time) error
	CountSentSince(ctx context.Context, since time.Time) (int64, error)
	CountEmailsByStatus(ctx context.Context, status model.EmailStatus) (int64, error)
	// CountRepliedEmails counts sent emails with replied_at set
	CountRepliedEmails(ctx context.Context) (int64, error)

	IsBlacklisted(ctx context.Context, email string) (bool, error)
	AddToBlacklist(ctx context.Context, email, reason string) error
	RemoveFromBlacklist(ctx context.Context, email string) error
	ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error)

	Ping(ctx context.Context) error
}
