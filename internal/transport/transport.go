// Package transport delivers rendered outreach emails through the configured
// provider.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"smart-outreach-go/internal/config"
)

// ErrMisconfigured marks failures caused by credentials or provider setup.
// A batch stops on these instead of failing every remaining message.
var ErrMisconfigured = errors.New("transport misconfigured")

// Message is one outbound email
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Transport sends messages and returns the provider message id
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
	Verify(ctx context.Context) error
}

// Sender identifies the From/Reply-To of outgoing mail
type Sender struct {
	Name               string
	Email              string
	ReplyTo            string
	IncludeUnsubscribe bool
}

// New builds the transport selected by cfg.Email.Provider
func New(ctx context.Context, cfg *config.Config) (Transport, error) {
	sender := Sender{
		Name:               cfg.Email.FromName,
		Email:              cfg.Email.FromEmail,
		ReplyTo:            cfg.Email.ReplyTo,
		IncludeUnsubscribe: cfg.Compliance.IncludeUnsubscribe,
	}
	if sender.Email == "" {
		return nil, fmt.Errorf("%w: from address is required", ErrMisconfigured)
	}

	switch cfg.Email.Provider {
	case config.ProviderGmail:
		return NewGmail(ctx, cfg.Email, sender)
	case config.ProviderGmailAppPassword:
		if cfg.Email.GmailAppPassword == "" {
			return nil, fmt.Errorf("%w: gmail app password is required", ErrMisconfigured)
		}
		return NewSMTP(SMTPSettings{
			Host:     "smtp.gmail.com",
			Port:     587,
			Username: cfg.Email.FromEmail,
			Password: cfg.Email.GmailAppPassword,
		}, sender), nil
	case config.ProviderSendGrid:
		if cfg.Email.SendGridAPIKey == "" {
			return nil, fmt.Errorf("%w: sendgrid api key is required", ErrMisconfigured)
		}
		return NewSMTP(SMTPSettings{
			Host:     "smtp.sendgrid.net",
			Port:     587,
			Username: "apikey",
			Password: cfg.Email.SendGridAPIKey,
		}, sender), nil
	case config.ProviderSMTP:
		if cfg.Email.SMTPHost == "" {
			return nil, fmt.Errorf("%w: smtp host is required", ErrMisconfigured)
		}
		return NewSMTP(SMTPSettings{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPassword,
		}, sender), nil
	case config.ProviderResend:
		if cfg.Email.ResendAPIKey == "" {
			return nil, fmt.Errorf("%w: resend api key is required", ErrMisconfigured)
		}
		return NewResend(cfg.Email.ResendAPIKey, sender), nil
	default:
		return nil, fmt.Errorf("%w: unknown email provider: %s", ErrMisconfigured, cfg.Email.Provider)
	}
}

// newMessageID returns an RFC 5322 msg-id without angle brackets
func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return uuid.NewString() + "@" + domain
}

// htmlBody renders the plain-text body as a minimal HTML alternative
func htmlBody(body string) string {
	escaped := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(body)
	return strings.ReplaceAll(escaped, "\n", "<br>\n")
}

func unsubscribeHeader(s Sender) string {
	addr := s.ReplyTo
	if addr == "" {
		addr = s.Email
	}
	return fmt.Sprintf("<mailto:%s?subject=unsubscribe>", addr)
}
