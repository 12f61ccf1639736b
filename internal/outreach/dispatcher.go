package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/lifecycle"
	"smart-outreach-go/internal/metrics"
	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
	"smart-outreach-go/internal/transport"
	"smart-outreach-go/internal/window"
)

// Result summarises one batch
type Result struct {
	Sent   int  `json:"sent"`
	Failed int  `json:"failed"`
	Halted bool `json:"halted"`
}

// Dispatcher sends due emails one at a time
type Dispatcher struct {
	store       store.Store
	gate        *Gate
	transport   transport.Transport
	policy      *window.Policy
	sendTimeout time.Duration
	metrics     *metrics.Metrics
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(st store.Store, gate *Gate, tr transport.Transport, policy *window.Policy, sendTimeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = time.Minute
	}
	return &Dispatcher{
		store:       st,
		gate:        gate,
		transport:   tr,
		policy:      policy,
		sendTimeout: sendTimeout,
		metrics:     m,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessScheduledEmails sends up to batchSize due emails, oldest first.
// Individual failures are recorded on the email and counted. Reaching the
// daily limit ends the batch early. A misconfigured transport, a storage
// failure or cancellation returns the partial result with an error.
func (d *Dispatcher) ProcessScheduledEmails(ctx context.Context, batchSize int) (Result, error) {
	started := d.now()
	var res Result
	defer func() {
		sentToday, err := d.gate.SentToday(context.WithoutCancel(ctx))
		if err != nil {
			logrus.WithError(err).Warn("Failed to read sent-today count for metrics")
		}
		d.metrics.Batch(d.now().Sub(started), sentToday)
	}()

	due, err := d.store.DueEmails(ctx, started, batchSize)
	if err != nil {
		return res, fmt.Errorf("failed to load due emails: %w", err)
	}
	if len(due) == 0 {
		logrus.Debug("No emails due")
		return res, nil
	}
	logrus.Infof("Processing %d scheduled emails", len(due))

	// outcomes are recorded even if ctx is cancelled mid-send
	record := context.WithoutCancel(ctx)
	// set after a send attempt; the next send waits out a jitter first
	spaced := false

	for i := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		email := &due[i]
		log := logrus.WithFields(logrus.Fields{"email_id": email.ID, "followup": email.FollowupNumber})

		if email.Contact == nil || email.Contact.Email == "" {
			log.Warn("Email has no recipient, marking failed")
			if err := d.fail(record, email.ID, "contact not found"); err != nil {
				return res, err
			}
			res.Failed++
			continue
		}
		log = log.WithField("to", email.Contact.Email)

		if spaced {
			// no point waiting out the jitter when the cap is already used up
			reached, err := d.gate.LimitReached(ctx)
			if err != nil {
				return res, fmt.Errorf("dispatch gate: %w", err)
			}
			if reached {
				d.metrics.Denied(string(DenyDailyLimit))
				log.Warn("Daily limit reached, stopping batch")
				res.Halted = true
				return res, nil
			}
			if err := d.sleep(ctx, d.policy.Jitter()); err != nil {
				return res, err
			}
			spaced = false
		}

		// blacklist and cap are read after the jitter, right before the send
		adm, err := d.gate.Admit(ctx, email.Contact.Email)
		if err != nil {
			return res, fmt.Errorf("dispatch gate: %w", err)
		}
		if !adm.Allowed {
			d.metrics.Denied(string(adm.Reason))
			if adm.Reason == DenyDailyLimit {
				log.Warn("Daily limit reached, stopping batch")
				res.Halted = true
				return res, nil
			}
			log.Warn("Recipient is blacklisted, marking failed")
			if err := d.fail(record, email.ID, string(DenyBlacklisted)); err != nil {
				return res, err
			}
			res.Failed++
			continue
		}

		spaced = true
		out, err := d.send(ctx, record, email, log)
		adm.Done()
		switch out {
		case outcomeSent:
			res.Sent++
		case outcomeFailed:
			res.Failed++
		}
		if err != nil {
			return res, err
		}
	}

	logrus.Infof("Batch complete: %d sent, %d failed", res.Sent, res.Failed)
	return res, nil
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeSent
	outcomeFailed
)

// send delivers one email and stores the outcome. The returned error is
// systemic; a delivery failure is reported as outcomeFailed.
func (d *Dispatcher) send(ctx, record context.Context, email *model.Email, log *logrus.Entry) (outcome, error) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	messageID, err := d.transport.Send(sendCtx, transport.Message{
		To:      email.Contact.Email,
		ToName:  email.Contact.Name,
		Subject: email.Subject,
		Body:    email.Body,
	})
	cancel()

	if err != nil {
		if errors.Is(err, transport.ErrMisconfigured) {
			log.Errorf("Transport misconfigured, aborting batch: %v", err)
			return outcomeNone, fmt.Errorf("batch aborted: %w", err)
		}
		if ctx.Err() != nil {
			// shutting down: leave the email scheduled for the next run
			return outcomeNone, ctx.Err()
		}
		log.Errorf("Failed to send email: %v", err)
		if err := d.fail(record, email.ID, err.Error()); err != nil {
			return outcomeNone, err
		}
		return outcomeFailed, nil
	}

	if err := d.store.MarkEmailSent(record, email.ID, d.now(), messageID); err != nil {
		if errors.Is(err, store.ErrNotScheduled) {
			log.Warn("Email was already recorded by another run")
			return outcomeNone, nil
		}
		return outcomeNone, fmt.Errorf("failed to mark email %d sent: %w", email.ID, err)
	}
	d.metrics.Sent()

	// the contact may have replied while this batch was running
	contact, err := d.store.GetContact(record, email.ContactID)
	if err != nil {
		return outcomeSent, fmt.Errorf("failed to reload contact %d: %w", email.ContactID, err)
	}
	if next, changed := lifecycle.AfterSend(contact.Status, email.FollowupNumber); changed {
		if err := d.store.UpdateContactStatus(record, email.ContactID, next); err != nil {
			return outcomeSent, fmt.Errorf("failed to advance contact %d: %w", email.ContactID, err)
		}
	}

	log.WithField("message_id", messageID).Info("Email sent")
	return outcomeSent, nil
}

func (d *Dispatcher) fail(ctx context.Context, emailID uint, reason string) error {
	err := d.store.MarkEmailFailed(ctx, emailID, reason)
	if errors.Is(err, store.ErrNotScheduled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark email %d failed: %w", emailID, err)
	}
	d.metrics.Failed(failureLabel(reason))
	return nil
}

func failureLabel(reason string) string {
	switch reason {
	case string(DenyBlacklisted), "contact not found":
		return reason
	}
	return "transport"
}
