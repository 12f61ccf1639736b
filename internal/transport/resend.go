package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// Resend sends through the Resend HTTP API
type Resend struct {
	client *resend.Client
	sender Sender
}

func NewResend(apiKey string, sender Sender) *Resend {
	return &Resend{client: resend.NewClient(apiKey), sender: sender}
}

func (t *Resend) Send(ctx context.Context, msg Message) (string, error) {
	from := t.sender.Email
	if t.sender.Name != "" {
		from = fmt.Sprintf("%s <%s>", t.sender.Name, t.sender.Email)
	}
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: msg.Subject,
		Text:    msg.Body,
		Html:    htmlBody(msg.Body),
		ReplyTo: t.sender.ReplyTo,
	}
	if t.sender.IncludeUnsubscribe {
		req.Headers = map[string]string{"List-Unsubscribe": unsubscribeHeader(t.sender)}
	}

	sent, err := t.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", classifyResend(err)
	}
	logrus.WithFields(logrus.Fields{"to": msg.To, "message_id": sent.Id}).Debug("Email sent via Resend")
	return sent.Id, nil
}

// Verify lists the account domains, which fails on a bad key
func (t *Resend) Verify(ctx context.Context) error {
	if _, err := t.client.Domains.ListWithContext(ctx); err != nil {
		return classifyResend(err)
	}
	return nil
}

func classifyResend(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "api key") || strings.Contains(msg, "domain is not verified") {
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	return fmt.Errorf("resend send failed: %w", err)
}
