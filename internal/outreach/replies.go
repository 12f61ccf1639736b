package outreach

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/metrics"
	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/replies"
	"smart-outreach-go/internal/store"
)

// contactsPerStatus bounds how many contacts of each status are checked
const contactsPerStatus = 200

// DetectedReply pairs a reply with the contact it closed
type DetectedReply struct {
	ContactID uint      `json:"contact_id"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
}

// ReplyTracker moves contacted contacts to replied when the detector finds a
// message from them
type ReplyTracker struct {
	store    store.Store
	detector replies.Detector
	manager  *Manager
	metrics  *metrics.Metrics
	now      func() time.Time

	mu        sync.Mutex
	lastCheck time.Time
}

func NewReplyTracker(st store.Store, detector replies.Detector, manager *Manager, m *metrics.Metrics) *ReplyTracker {
	return &ReplyTracker{
		store:    st,
		detector: detector,
		manager:  manager,
		metrics:  m,
		now:      time.Now,
	}
}

// CheckReplies runs one detection pass. The first pass searches the whole
// mailbox; later passes only look at mail since the previous pass started.
func (t *ReplyTracker) CheckReplies(ctx context.Context) ([]DetectedReply, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var contacts []model.Contact
	for _, status := range model.ContactedStatuses {
		batch, err := t.store.ContactsByStatus(ctx, status, contactsPerStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s contacts: %w", status, err)
		}
		contacts = append(contacts, batch...)
	}
	if len(contacts) == 0 {
		logrus.Info("No contacted recipients to check")
		return []DetectedReply{}, nil
	}

	started := t.now()
	found, err := t.detector.FindReplies(ctx, contacts, t.lastCheck)
	if err != nil {
		return nil, fmt.Errorf("reply detection failed: %w", err)
	}

	byID := make(map[uint]*model.Contact, len(contacts))
	for i := range contacts {
		byID[contacts[i].ID] = &contacts[i]
	}

	detected := make([]DetectedReply, 0, len(found))
	for _, r := range found {
		contact, ok := byID[r.ContactID]
		if !ok {
			continue
		}
		at := r.Date
		if at.IsZero() {
			at = started
		}
		if err := t.manager.markReplied(ctx, contact, at); err != nil {
			return detected, fmt.Errorf("failed to mark %s replied: %w", contact.Email, err)
		}
		t.metrics.Replied()
		logrus.Infof("Reply found from %s: %q", contact.Email, r.Subject)
		detected = append(detected, DetectedReply{
			ContactID: contact.ID,
			Email:     contact.Email,
			Subject:   r.Subject,
			Date:      r.Date,
		})
	}

	t.lastCheck = started
	logrus.Infof("Found %d replies out of %d contacted", len(detected), len(contacts))
	return detected, nil
}
