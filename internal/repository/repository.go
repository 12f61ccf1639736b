package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
)

// Repository is the MySQL-backed store.Store
type Repository struct {
	db *gorm.DB
}

var _ store.Store = (*Repository)(nil)

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (r *Repository) CreateCompany(ctx context.Context, company *model.Company) error {
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uint) (*model.Company, error) {
	var company model.Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get company %d: %w", id, notFound(err))
	}
	return &company, nil
}

func (r *Repository) FindCompanyByName(ctx context.Context, name string) (*model.Company, error) {
	var company model.Company
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).
		Order("id ASC").
		First(&company).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find company %q: %w", name, notFound(err))
	}
	return &company, nil
}

func (r *Repository) ListCompanies(ctx context.Context, minPriority, limit int) ([]model.Company, error) {
	var companies []model.Company
	q := r.db.WithContext(ctx).Where("priority >= ?", minPriority).Order("priority DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

func (r *Repository) CreateContact(ctx context.Context, contact *model.Contact) (uint, bool, error) {
	contact.Email = model.NormalizeEmail(contact.Email)

	var existing model.Contact
	err := r.db.WithContext(ctx).Where("email = ?", contact.Email).First(&existing).Error
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, fmt.Errorf("database error checking contact: %w", err)
	}

	if contact.Status == "" {
		contact.Status = model.ContactNew
	}
	if err := r.db.WithContext(ctx).Omit("Company").Create(contact).Error; err != nil {
		return 0, false, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact.ID, true, nil
}

func (r *Repository) GetContact(ctx context.Context, id uint) (*model.Contact, error) {
	var contact model.Contact
	if err := r.db.WithContext(ctx).Preload("Company").First(&contact, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get contact %d: %w", id, notFound(err))
	}
	return &contact, nil
}

func (r *Repository) GetContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.WithContext(ctx).Preload("Company").
		Where("email = ?", model.NormalizeEmail(email)).
		First(&contact).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get contact %q: %w", email, notFound(err))
	}
	return &contact, nil
}

func (r *Repository) ListContacts(ctx context.Context, filter store.ContactFilter) ([]model.Contact, error) {
	var contacts []model.Contact
	q := r.db.WithContext(ctx).Preload("Company").Order("id DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

func (r *Repository) ContactsByStatus(ctx context.Context, status model.ContactStatus, limit int) ([]model.Contact, error) {
	var contacts []model.Contact
	q := r.db.WithContext(ctx).Preload("Company").Where("status = ?", status).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to get %s contacts: %w", status, err)
	}
	return contacts, nil
}

func (r *Repository) UpdateContactStatus(ctx context.Context, id uint, status model.ContactStatus) error {
	result := r.db.WithContext(ctx).Model(&model.Contact{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update contact %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero rows when the value is unchanged
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.Contact{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to update contact %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("failed to update contact %d: %w", id, store.ErrNotFound)
		}
	}
	return nil
}

func (r *Repository) CountContactsByStatus(ctx context.Context) (map[model.ContactStatus]int64, error) {
	var rows []struct {
		Status model.ContactStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Contact{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	out := make(map[model.ContactStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *Repository) CreateEmail(ctx context.Context, email *model.Email) error {
	if email.Status == "" {
		email.Status = model.EmailDraft
	}
	if err := r.db.WithContext(ctx).Omit("Contact").Create(email).Error; err != nil {
		return fmt.Errorf("failed to create email: %w", err)
	}
	return nil
}

func (r *Repository) GetEmail(ctx context.Context, id uint) (*model.Email, error) {
	var email model.Email
	if err := r.db.WithContext(ctx).Preload("Contact.Company").First(&email, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get email %d: %w", id, notFound(err))
	}
	return &email, nil
}

func (r *Repository) ListEmails(ctx context.Context, filter store.EmailFilter) ([]model.Email, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Email{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ContactID != 0 {
		q = q.Where("contact_id = ?", filter.ContactID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count emails: %w", err)
	}

	var emails []model.Email
	q = q.Preload("Contact.Company").Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&emails).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, total, nil
}

func (r *Repository) EmailsByContact(ctx context.Context, contactID uint) ([]model.Email, error) {
	var emails []model.Email
	err := r.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("created_at DESC, id DESC").
		Find(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get emails for contact %d: %w", contactID, err)
	}
	return emails, nil
}

func (r *Repository) DueEmails(ctx context.Context, now time.Time, limit int) ([]model.Email, error) {
	var emails []model.Email
	q := r.db.WithContext(ctx).Preload("Contact.Company").
		Where("status = ? AND scheduled_at <= ?", model.EmailScheduled, now).
		Order("scheduled_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&emails).Error; err != nil {
		return nil, fmt.Errorf("failed to get due emails: %w", err)
	}
	return emails, nil
}

// transition applies updates to a scheduled email only, so a second worker
// picking the same row cannot record it twice
func (r *Repository) transition(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Email{}).
		Where("id = ? AND status = ?", id, model.EmailScheduled).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update email %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.Email{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to update email %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("email %d: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("email %d: %w", id, store.ErrNotScheduled)
	}
	return nil
}

func (r *Repository) MarkEmailSent(ctx context.Context, id uint, sentAt time.Time, providerMessageID string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":              model.EmailSent,
		"sent_at":             sentAt,
		"provider_message_id": providerMessageID,
	})
}

func (r *Repository) MarkEmailFailed(ctx context.Context, id uint, reason string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":        model.EmailFailed,
		"error_message": reason,
	})
}

func (r *Repository) CancelPendingEmails(ctx context.Context, contactID uint, reason string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Email{}).
		Where("contact_id = ? AND status IN ?", contactID, []model.EmailStatus{model.EmailDraft, model.EmailScheduled}).
		Updates(map[string]interface{}{"status": model.EmailFailed, "error_message": reason})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cancel emails for contact %d: %w", contactID, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) MarkContactEmailsReplied(ctx context.Context, contactID uint, repliedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Email{}).
		Where("contact_id = ? AND status = ?", contactID, model.EmailSent).
		Update("replied_at", repliedAt).Error
	if err != nil {
		return fmt.Errorf("failed to mark replies for contact %d: %w", contactID, err)
	}
	return nil
}

func (r *Repository) CountSentSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Email{}).
		Where("status = ? AND sent_at >= ?", model.EmailSent, since).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sent emails: %w", err)
	}
	return n, nil
}

func (r *Repository) CountEmailsByStatus(ctx context.Context, status model.EmailStatus) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Email{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s emails: %w", status, err)
	}
	return n, nil
}

func (r *Repository) CountRepliedEmails(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Email{}).
		Where("status = ? AND replied_at IS NOT NULL", model.EmailSent).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count replied emails: %w", err)
	}
	return n, nil
}

func (r *Repository) IsBlacklisted(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.BlacklistEntry{}).
		Where("email = ?", model.NormalizeEmail(email)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("database error checking blacklist: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) AddToBlacklist(ctx context.Context, email, reason string) error {
	entry := model.BlacklistEntry{Email: model.NormalizeEmail(email), Reason: reason}
	err := r.db.WithContext(ctx).
		Where(model.BlacklistEntry{Email: entry.Email}).
		FirstOrCreate(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to blacklist %s: %w", email, err)
	}
	return nil
}

func (r *Repository) RemoveFromBlacklist(ctx context.Context, email string) error {
	err := r.db.WithContext(ctx).
		Where("email = ?", model.NormalizeEmail(email)).
		Delete(&model.BlacklistEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove %s from blacklist: %w", email, err)
	}
	return nil
}

func (r *Repository) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	var entries []model.BlacklistEntry
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list blacklist: %w", err)
	}
	return entries, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
