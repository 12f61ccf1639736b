// Package replies finds inbound replies from contacted recipients and exposes
// a read-only view of the inbox.
package replies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/model"
)

// ErrMessageNotFound is returned when an inbox message id does not exist
var ErrMessageNotFound = errors.New("message not found")

// Reply is the most recent inbound message from a contact
type Reply struct {
	ContactID uint
	From      string
	Subject   string
	Date      time.Time
}

// Message is an inbox entry
type Message struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
	Body    string    `json:"body,omitempty"`
	Labels  []string  `json:"labels,omitempty"`
}

// Detector searches the mailbox for messages from the given contacts. A zero
// since searches the whole mailbox.
type Detector interface {
	FindReplies(ctx context.Context, contacts []model.Contact, since time.Time) ([]Reply, error)
}

// Profile summarises the connected mailbox
type Profile struct {
	EmailAddress  string `json:"email_address"`
	MessagesTotal int64  `json:"messages_total"`
	ThreadsTotal  int64  `json:"threads_total,omitempty"`
}

// Inbox lists, searches and reads mailbox messages
type Inbox interface {
	ListInbox(ctx context.Context, limit int) ([]Message, error)
	// Search matches query against subject, sender and body, newest first
	Search(ctx context.Context, query string, limit int) ([]Message, error)
	ReadMessage(ctx context.Context, id string) (*Message, error)
	Profile(ctx context.Context) (*Profile, error)
}

// Client is both a Detector and an Inbox
type Client interface {
	Detector
	Inbox
}

// New builds the client selected by cfg.Replies.Provider
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.Replies.Provider {
	case config.RepliesIMAP, "":
		user, pass := cfg.IMAPCredentials()
		if user == "" || pass == "" {
			return nil, fmt.Errorf("imap credentials are required for reply detection")
		}
		return NewIMAP(IMAPSettings{
			Host:     cfg.Replies.IMAPHost,
			Port:     cfg.Replies.IMAPPort,
			User:     user,
			Password: pass,
			Mailbox:  cfg.Replies.Mailbox,
		}), nil
	case config.RepliesGmail:
		return NewGmail(ctx, cfg.Email)
	default:
		return nil, fmt.Errorf("unknown replies provider: %s", cfg.Replies.Provider)
	}
}

func formatAddress(a *mail.Address) string {
	if a == nil {
		return ""
	}
	if a.Name == "" {
		return "<" + a.Address + ">"
	}
	return a.Name + " <" + a.Address + ">"
}

// extractText returns the first text/plain part of a raw message, falling back
// to the first text/html part
func extractText(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	var html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		content, err := io.ReadAll(p.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read part body: %w", err)
		}

		switch {
		case strings.HasPrefix(ct, "text/plain"):
			return strings.TrimSpace(string(content)), nil
		case strings.HasPrefix(ct, "text/html") && html == "":
			html = string(content)
		}
	}
	return strings.TrimSpace(html), nil
}
