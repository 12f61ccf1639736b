// Package memory is an in-process implementation of store.Store. It backs the
// engine tests and dry runs; nothing is persisted.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
)

// Store keeps every record in maps guarded by a single mutex
type Store struct {
	mu        sync.Mutex
	nextID    uint
	now       func() time.Time
	companies map[uint]model.Company
	contacts  map[uint]model.Contact
	emails    map[uint]model.Email
	blacklist map[string]model.BlacklistEntry
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		now:       time.Now,
		companies: make(map[uint]model.Company),
		contacts:  make(map[uint]model.Contact),
		emails:    make(map[uint]model.Email),
		blacklist: make(map[string]model.BlacklistEntry),
	}
}

// SetClock overrides the clock used for created_at stamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateCompany(_ context.Context, company *model.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	company.ID = s.id()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = s.now()
	}
	s.companies[company.ID] = *company
	return nil
}

func (s *Store) GetCompany(_ context.Context, id uint) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) FindCompanyByName(_ context.Context, name string) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.sortedCompanyIDs() {
		c := s.companies[id]
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListCompanies(_ context.Context, minPriority, limit int) ([]model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Company
	for _, id := range s.sortedCompanyIDs() {
		c := s.companies[id]
		if c.Priority >= minPriority {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func (s *Store) sortedCompanyIDs() []uint {
	ids := make([]uint, 0, len(s.companies))
	for id := range s.companies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) CreateContact(_ context.Context, contact *model.Contact) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact.Email = model.NormalizeEmail(contact.Email)
	for _, c := range s.contacts {
		if c.Email == contact.Email {
			return c.ID, false, nil
		}
	}
	contact.ID = s.id()
	if contact.Status == "" {
		contact.Status = model.ContactNew
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = s.now()
	}
	stored := *contact
	stored.Company = nil
	s.contacts[contact.ID] = stored
	return contact.ID, true, nil
}

func (s *Store) GetContact(_ context.Context, id uint) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.withCompany(c), nil
}

func (s *Store) GetContactByEmail(_ context.Context, email string) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, c := range s.contacts {
		if c.Email == email {
			return s.withCompany(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) withCompany(c model.Contact) *model.Contact {
	if c.CompanyID != nil {
		if company, ok := s.companies[*c.CompanyID]; ok {
			c.Company = &company
		}
	}
	return &c
}

func (s *Store) ListContacts(_ context.Context, filter store.ContactFilter) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.contactsWhere(func(c model.Contact) bool {
		return filter.Status == "" || c.Status == filter.Status
	})
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return truncate(out, filter.Limit), nil
}

func (s *Store) ContactsByStatus(_ context.Context, status model.ContactStatus, limit int) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.contactsWhere(func(c model.Contact) bool { return c.Status == status })
	return truncate(out, limit), nil
}

// contactsWhere returns matching contacts oldest first
func (s *Store) contactsWhere(match func(model.Contact) bool) []model.Contact {
	var out []model.Contact
	for _, c := range s.contacts {
		if match(c) {
			out = append(out, *s.withCompany(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) UpdateContactStatus(_ context.Context, id uint, status model.ContactStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	s.contacts[id] = c
	return nil
}

func (s *Store) CountContactsByStatus(_ context.Context) (map[model.ContactStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.ContactStatus]int64)
	for _, c := range s.contacts {
		out[c.Status]++
	}
	return out, nil
}

func (s *Store) CreateEmail(_ context.Context, email *model.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[email.ContactID]; !ok {
		return store.ErrNotFound
	}
	email.ID = s.id()
	if email.Status == "" {
		email.Status = model.EmailDraft
	}
	if email.CreatedAt.IsZero() {
		email.CreatedAt = s.now()
	}
	stored := *email
	stored.Contact = nil
	s.emails[email.ID] = stored
	return nil
}

func (s *Store) GetEmail(_ context.Context, id uint) (*model.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.withContact(e), nil
}

func (s *Store) withContact(e model.Email) *model.Email {
	if c, ok := s.contacts[e.ContactID]; ok {
		e.Contact = s.withCompany(c)
	}
	return &e
}

func (s *Store) ListEmails(_ context.Context, filter store.EmailFilter) ([]model.Email, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Email
	for _, e := range s.emails {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.ContactID != 0 && e.ContactID != filter.ContactID {
			continue
		}
		out = append(out, *s.withContact(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[filter.Offset:]
	}
	return truncate(out, filter.Limit), total, nil
}

func (s *Store) EmailsByContact(_ context.Context, contactID uint) ([]model.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Email
	for _, e := range s.emails {
		if e.ContactID == contactID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) DueEmails(_ context.Context, now time.Time, limit int) ([]model.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Email
	for _, e := range s.emails {
		if e.Status == model.EmailScheduled && !e.ScheduledAt.After(now) {
			out = append(out, *s.withContact(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, limit), nil
}

func (s *Store) MarkEmailSent(_ context.Context, id uint, sentAt time.Time, providerMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return store.ErrNotFound
	}
	if e.Status != model.EmailScheduled {
		return store.ErrNotScheduled
	}
	e.Status = model.EmailSent
	e.SentAt = &sentAt
	e.ProviderMessageID = providerMessageID
	s.emails[id] = e
	return nil
}

func (s *Store) MarkEmailFailed(_ context.Context, id uint, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return store.ErrNotFound
	}
	if e.Status != model.EmailScheduled {
		return store.ErrNotScheduled
	}
	e.Status = model.EmailFailed
	e.ErrorMessage = reason
	s.emails[id] = e
	return nil
}

func (s *Store) CancelPendingEmails(_ context.Context, contactID uint, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.emails {
		if e.ContactID == contactID && e.Status.Pending() {
			e.Status = model.EmailFailed
			e.ErrorMessage = reason
			s.emails[id] = e
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkContactEmailsReplied(_ context.Context, contactID uint, repliedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.emails {
		if e.ContactID == contactID && e.Status == model.EmailSent {
			at := repliedAt
			e.RepliedAt = &at
			s.emails[id] = e
		}
	}
	return nil
}

func (s *Store) CountSentSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.emails {
		if e.Status == model.EmailSent && e.SentAt != nil && !e.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountEmailsByStatus(_ context.Context, status model.EmailStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.emails {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountRepliedEmails(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.emails {
		if e.Status == model.EmailSent && e.RepliedAt != nil {
			n++
		}
	}
	return n, nil
}

func (s *Store) IsBlacklisted(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[model.NormalizeEmail(email)]
	return ok, nil
}

func (s *Store) AddToBlacklist(_ context.Context, email, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = model.NormalizeEmail(email)
	if _, ok := s.blacklist[email]; ok {
		return nil
	}
	s.blacklist[email] = model.BlacklistEntry{ID: s.id(), Email: email, Reason: reason, CreatedAt: s.now()}
	return nil
}

func (s *Store) RemoveFromBlacklist(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blacklist, model.NormalizeEmail(email))
	return nil
}

func (s *Store) ListBlacklist(_ context.Context) ([]model.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BlacklistEntry, 0, len(s.blacklist))
	for _, b := range s.blacklist {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
