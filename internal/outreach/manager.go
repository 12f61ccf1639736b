package outreach

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/lifecycle"
	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
	"smart-outreach-go/internal/templates"
)

// ContactInput is a contact to add. CompanyName is matched case-insensitively
// and created when unknown; CompanyID wins when both are set.
type ContactInput struct {
	Email       string `json:"email" binding:"required"`
	Name        string `json:"name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Title       string `json:"title"`
	LinkedIn    string `json:"linkedin"`
	Source      string `json:"source"`
	CompanyID   *uint  `json:"company_id"`
	CompanyName string `json:"company_name"`
}

// QueueResult summarises QueueNewContacts
type QueueResult struct {
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Summary is a contact with its email history counts
type Summary struct {
	Contact    *model.Contact `json:"contact"`
	EmailCount int            `json:"email_count"`
	SentCount  int            `json:"sent_count"`
	LastEmail  *model.Email   `json:"last_email"`
	Emails     []model.Email  `json:"emails"`
}

// Stats is the pipeline overview
type Stats struct {
	Contacts   map[model.ContactStatus]int64 `json:"contacts"`
	Emails     map[model.EmailStatus]int64   `json:"emails"`
	SentToday  int64                         `json:"sent_today"`
	DailyLimit int64                         `json:"daily_limit"`
	ReplyRate  float64                       `json:"reply_rate"`
}

// Manager owns contact bookkeeping around the planner
type Manager struct {
	store         store.Store
	planner       *Planner
	gate          *Gate
	initial       templates.Kind
	cancelOnReply bool
	now           func() time.Time
}

func NewManager(st store.Store, planner *Planner, gate *Gate, initial templates.Kind, cancelOnReply bool) *Manager {
	return &Manager{
		store:         st,
		planner:       planner,
		gate:          gate,
		initial:       initial,
		cancelOnReply: cancelOnReply,
		now:           time.Now,
	}
}

// InitialTemplate is the template QueueNewContacts schedules
func (m *Manager) InitialTemplate() templates.Kind {
	return m.initial
}

// AddCompany stores a company with its priority normalised to 1-5
func (m *Manager) AddCompany(ctx context.Context, company *model.Company) (uint, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return 0, ErrCompanyName
	}
	company.Priority = model.NormalizePriority(company.Priority)
	if err := m.store.CreateCompany(ctx, company); err != nil {
		return 0, err
	}
	logrus.Infof("Company added: %s (ID: %d)", company.Name, company.ID)
	return company.ID, nil
}

// resolveCompany finds a company by name or creates it
func (m *Manager) resolveCompany(ctx context.Context, name string) (uint, error) {
	existing, err := m.store.FindCompanyByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	return m.AddCompany(ctx, &model.Company{Name: name})
}

// AddContact stores a contact. An existing address returns its id with
// created=false.
func (m *Manager) AddContact(ctx context.Context, in ContactInput) (uint, bool, error) {
	address := model.NormalizeEmail(in.Email)
	if address == "" {
		return 0, false, ErrMissingRecipient
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return 0, false, fmt.Errorf("%w: %s", ErrInvalidEmail, in.Email)
	}

	if existing, err := m.store.GetContactByEmail(ctx, address); err == nil {
		logrus.Warnf("Contact already exists: %s", address)
		return existing.ID, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return 0, false, err
	}

	blacklisted, err := m.store.IsBlacklisted(ctx, address)
	if err != nil {
		return 0, false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return 0, false, fmt.Errorf("%w: %s", ErrBlacklisted, address)
	}

	companyID := in.CompanyID
	if companyID == nil && strings.TrimSpace(in.CompanyName) != "" {
		id, err := m.resolveCompany(ctx, in.CompanyName)
		if err != nil {
			return 0, false, err
		}
		companyID = &id
	}

	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" {
		first, last = model.SplitName(in.Name)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSpace(first + " " + last)
	}

	contact := &model.Contact{
		CompanyID: companyID,
		Name:      name,
		FirstName: first,
		LastName:  last,
		Email:     address,
		Title:     strings.TrimSpace(in.Title),
		LinkedIn:  strings.TrimSpace(in.LinkedIn),
		Source:    strings.TrimSpace(in.Source),
		Status:    model.ContactNew,
	}
	id, created, err := m.store.CreateContact(ctx, contact)
	if err != nil {
		return 0, false, err
	}
	if created {
		logrus.Infof("Contact added: %s (ID: %d)", address, id)
	}
	return id, created, nil
}

// QueueNewContacts schedules the initial template for up to limit contacts
// still in the new state
func (m *Manager) QueueNewContacts(ctx context.Context, limit int) (QueueResult, error) {
	var res QueueResult
	contacts, err := m.store.ContactsByStatus(ctx, model.ContactNew, limit)
	if err != nil {
		return res, fmt.Errorf("failed to load new contacts: %w", err)
	}

	for _, c := range contacts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, err := m.planner.ScheduleInitial(ctx, c.ID, m.initial, nil)
		switch {
		case errors.Is(err, ErrPendingEmail):
			res.Skipped++
		case err != nil:
			logrus.Errorf("Failed to queue %s: %v", c.Email, err)
			res.Failed++
		case out.Denied != "":
			res.Skipped++
		default:
			res.Scheduled++
		}
	}

	logrus.Infof("Queued %d new contacts (%d skipped, %d failed)", res.Scheduled, res.Skipped, res.Failed)
	return res, nil
}

// ScheduleAllFollowups schedules remaining follow-ups for every contact that
// has been contacted and is still open. It returns the number of emails
// created.
func (m *Manager) ScheduleAllFollowups(ctx context.Context) (int, error) {
	created := 0
	for _, status := range model.ContactedStatuses {
		contacts, err := m.store.ContactsByStatus(ctx, status, 0)
		if err != nil {
			return created, fmt.Errorf("failed to load %s contacts: %w", status, err)
		}
		for _, c := range contacts {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			ids, err := m.planner.ScheduleFollowups(ctx, c.ID)
			if err != nil {
				logrus.Errorf("Failed to schedule follow-ups for %s: %v", c.Email, err)
				continue
			}
			created += len(ids)
		}
	}
	logrus.Infof("Scheduled %d follow-ups", created)
	return created, nil
}

func (m *Manager) getContact(ctx context.Context, id uint) (*model.Contact, error) {
	c, err := m.store.GetContact(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrContactNotFound, id)
	}
	return c, err
}

// MarkReplied closes the contact, stamps replied_at on its sent emails and,
// when configured, cancels its pending emails
func (m *Manager) MarkReplied(ctx context.Context, id uint) error {
	contact, err := m.getContact(ctx, id)
	if err != nil {
		return err
	}
	return m.markReplied(ctx, contact, m.now())
}

func (m *Manager) markReplied(ctx context.Context, contact *model.Contact, at time.Time) error {
	if contact.Status != model.ContactReplied {
		if _, err := lifecycle.Transition(contact.Status, model.ContactReplied); err != nil {
			return err
		}
		if err := m.store.UpdateContactStatus(ctx, contact.ID, model.ContactReplied); err != nil {
			return err
		}
	}
	if err := m.store.MarkContactEmailsReplied(ctx, contact.ID, at); err != nil {
		return err
	}
	if m.cancelOnReply {
		n, err := m.store.CancelPendingEmails(ctx, contact.ID, "contact replied")
		if err != nil {
			return err
		}
		if n > 0 {
			logrus.Infof("Cancelled %d pending emails for %s", n, contact.Email)
		}
	}
	logrus.Infof("Contact %d marked as replied", contact.ID)
	return nil
}

// MarkNotInterested closes the contact, cancels its pending emails and
// optionally blacklists the address
func (m *Manager) MarkNotInterested(ctx context.Context, id uint, blacklist bool) error {
	contact, err := m.getContact(ctx, id)
	if err != nil {
		return err
	}

	if contact.Status != model.ContactNotInterested {
		if _, err := lifecycle.Transition(contact.Status, model.ContactNotInterested); err != nil {
			return err
		}
		if err := m.store.UpdateContactStatus(ctx, id, model.ContactNotInterested); err != nil {
			return err
		}
	}
	if _, err := m.store.CancelPendingEmails(ctx, id, "contact not interested"); err != nil {
		return err
	}
	if blacklist {
		if err := m.store.AddToBlacklist(ctx, contact.Email, "Marked not interested"); err != nil {
			return err
		}
		logrus.Infof("Added %s to blacklist", contact.Email)
	}

	logrus.Infof("Contact %d marked as not interested", id)
	return nil
}

// Summary returns a contact with its email history, newest first
func (m *Manager) Summary(ctx context.Context, id uint) (*Summary, error) {
	contact, err := m.getContact(ctx, id)
	if err != nil {
		return nil, err
	}
	emails, err := m.store.EmailsByContact(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &Summary{Contact: contact, EmailCount: len(emails), Emails: emails}
	for i := range emails {
		if emails[i].Status == model.EmailSent {
			s.SentCount++
		}
	}
	if len(emails) > 0 {
		s.LastEmail = &emails[0]
	}
	return s, nil
}

// Stats counts contacts and emails by status
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	contacts, err := m.store.CountContactsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	emails := make(map[model.EmailStatus]int64, 4)
	for _, status := range []model.EmailStatus{model.EmailDraft, model.EmailScheduled, model.EmailSent, model.EmailFailed} {
		n, err := m.store.CountEmailsByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		emails[status] = n
	}

	sentToday, err := m.gate.SentToday(ctx)
	if err != nil {
		return nil, err
	}
	replied, err := m.store.CountRepliedEmails(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Contacts:   contacts,
		Emails:     emails,
		SentToday:  sentToday,
		DailyLimit: m.gate.DailyLimit(),
	}
	if sent := emails[model.EmailSent]; sent > 0 {
		stats.ReplyRate = float64(replied) * 100 / float64(sent)
	}
	return stats, nil
}
