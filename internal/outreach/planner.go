package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/lifecycle"
	"smart-outreach-go/internal/metrics"
	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
	"smart-outreach-go/internal/templates"
	"smart-outreach-go/internal/window"
)

// ScheduleResult reports the email created by ScheduleInitial, or why none was
type ScheduleResult struct {
	EmailID uint       `json:"email_id,omitempty"`
	Denied  DenyReason `json:"denied,omitempty"`
}

// Planner turns contacts into scheduled emails
type Planner struct {
	store    store.Store
	policy   *window.Policy
	renderer *templates.Renderer
	followup config.FollowupConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewPlanner(st store.Store, policy *window.Policy, renderer *templates.Renderer, followup config.FollowupConfig, m *metrics.Metrics) *Planner {
	return &Planner{
		store:    st,
		policy:   policy,
		renderer: renderer,
		followup: followup,
		metrics:  m,
		now:      time.Now,
	}
}

// history is what the planner needs to know about past emails of a contact
type history struct {
	sent          int
	pending       bool
	lastSubject   string
	initialSentAt time.Time
	foundInitial  bool
}

func (p *Planner) history(ctx context.Context, contactID uint) (history, error) {
	emails, err := p.store.EmailsByContact(ctx, contactID)
	if err != nil {
		return history{}, fmt.Errorf("failed to load email history: %w", err)
	}

	var h history
	// emails are newest first
	for _, e := range emails {
		switch {
		case e.Status.Pending():
			h.pending = true
		case e.Status == model.EmailSent:
			h.sent++
			if h.lastSubject == "" {
				h.lastSubject = e.Subject
			}
			if e.SentAt != nil && !h.foundInitial {
				h.initialSentAt = *e.SentAt
				h.foundInitial = e.FollowupNumber == 0
			}
		}
	}
	return h, nil
}

func (p *Planner) contact(ctx context.Context, contactID uint) (*model.Contact, error) {
	contact, err := p.store.GetContact(ctx, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrContactNotFound, contactID)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(contact.Email) == "" {
		return nil, fmt.Errorf("%w: contact %d", ErrMissingRecipient, contactID)
	}
	return contact, nil
}

// ScheduleInitial renders kind for the contact and schedules it at the next
// send instant. A blacklisted address is a denial, not an error.
func (p *Planner) ScheduleInitial(ctx context.Context, contactID uint, kind templates.Kind, extra map[string]string) (ScheduleResult, error) {
	contact, err := p.contact(ctx, contactID)
	if err != nil {
		return ScheduleResult{}, err
	}
	if lifecycle.IsTerminal(contact.Status) {
		return ScheduleResult{}, fmt.Errorf("%w: %s is %s", ErrContactClosed, contact.Email, contact.Status)
	}

	h, err := p.history(ctx, contactID)
	if err != nil {
		return ScheduleResult{}, err
	}
	if h.pending {
		return ScheduleResult{}, fmt.Errorf("%w: %s", ErrPendingEmail, contact.Email)
	}

	blacklisted, err := p.store.IsBlacklisted(ctx, contact.Email)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		logrus.Warnf("Cannot schedule: %s is blacklisted", contact.Email)
		p.metrics.Denied(string(DenyBlacklisted))
		return ScheduleResult{Denied: DenyBlacklisted}, nil
	}

	rendered, err := p.renderer.Render(kind, templateData(contact, extra))
	if err != nil {
		return ScheduleResult{}, err
	}

	email := &model.Email{
		ContactID:      contact.ID,
		TemplateName:   kind.String(),
		Subject:        rendered.Subject,
		Body:           rendered.Body,
		Status:         model.EmailScheduled,
		ScheduledAt:    p.policy.NextSendInstant(p.now()),
		FollowupNumber: h.sent,
	}
	if err := p.store.CreateEmail(ctx, email); err != nil {
		return ScheduleResult{}, err
	}

	p.metrics.Scheduled()
	logrus.WithFields(logrus.Fields{
		"email_id":     email.ID,
		"to":           contact.Email,
		"template":     email.TemplateName,
		"scheduled_at": email.ScheduledAt.Format(time.RFC3339),
	}).Info("Email scheduled")

	return ScheduleResult{EmailID: email.ID}, nil
}

// ScheduleFollowups schedules every remaining follow-up ordinal for a contact
// whose initial email has been sent. Blacklisted ordinals are skipped.
func (p *Planner) ScheduleFollowups(ctx context.Context, contactID uint) ([]uint, error) {
	contact, err := p.contact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	h, err := p.history(ctx, contactID)
	if err != nil {
		return nil, err
	}

	maxFollowups := p.followup.MaxFollowups
	switch {
	case h.sent == 0:
		logrus.Debugf("No initial email sent yet to %s", contact.Email)
		return []uint{}, nil
	case h.sent >= maxFollowups+1:
		logrus.Debugf("Follow-up cadence exhausted for %s", contact.Email)
		return []uint{}, nil
	case lifecycle.IsTerminal(contact.Status):
		logrus.Debugf("Skipping follow-ups for %s: %s", contact.Email, contact.Status)
		return []uint{}, nil
	case h.pending:
		logrus.Debugf("Skipping follow-ups for %s: email already pending", contact.Email)
		return []uint{}, nil
	}

	data := templateData(contact, map[string]string{
		"original_subject": strings.TrimSpace(stripReplyPrefix(h.lastSubject)),
	})

	ids := make([]uint, 0, maxFollowups-h.sent+1)
	for ordinal := h.sent; ordinal <= maxFollowups; ordinal++ {
		blacklisted, err := p.store.IsBlacklisted(ctx, contact.Email)
		if err != nil {
			return ids, fmt.Errorf("failed to check blacklist: %w", err)
		}
		if blacklisted {
			logrus.Warnf("Skipping follow-up %d: %s is blacklisted", ordinal, contact.Email)
			p.metrics.Denied(string(DenyBlacklisted))
			continue
		}

		kind := templates.FollowupKind(ordinal)
		rendered, err := p.renderer.Render(kind, data)
		if err != nil {
			return ids, err
		}

		email := &model.Email{
			ContactID:      contact.ID,
			TemplateName:   kind.String(),
			Subject:        rendered.Subject,
			Body:           rendered.Body,
			Status:         model.EmailScheduled,
			ScheduledAt:    p.followupInstant(h.initialSentAt, ordinal),
			FollowupNumber: ordinal,
		}
		if err := p.store.CreateEmail(ctx, email); err != nil {
			return ids, err
		}
		p.metrics.Scheduled()
		ids = append(ids, email.ID)
	}

	logrus.Infof("Scheduled %d follow-ups for %s", len(ids), contact.Email)
	return ids, nil
}

// followupInstant offsets the ordinal from the initial send, never earlier
// than now, then snaps it into the send window
func (p *Planner) followupInstant(initialSentAt time.Time, ordinal int) time.Time {
	now := p.now()
	at := now
	if !initialSentAt.IsZero() {
		due := initialSentAt.AddDate(0, 0, p.followup.FollowupOffsetDays(ordinal))
		if due.After(now) {
			at = due
		}
	}
	return p.policy.NextSendInstant(at)
}

func stripReplyPrefix(subject string) string {
	s := strings.TrimSpace(subject)
	for len(s) >= 3 && strings.EqualFold(s[:3], "re:") {
		s = strings.TrimSpace(s[3:])
	}
	return s
}

// templateData seeds per-contact values. extra overrides them, except that an
// empty company name never hides the stored one.
func templateData(c *model.Contact, extra map[string]string) map[string]string {
	data := map[string]string{
		"first_name":   c.Greeting(),
		"last_name":    c.LastName,
		"company_name": c.CompanyName(),
		"title":        c.Title,
	}
	for k, v := range extra {
		if k == "company_name" && v == "" {
			continue
		}
		data[k] = v
	}
	return data
}
