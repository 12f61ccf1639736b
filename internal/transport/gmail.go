package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"smart-outreach-go/internal/config"
)

var timeNow = time.Now

const gmailSendAttempts = 3

// Gmail sends through the Gmail API with an OAuth2 refresh token
type Gmail struct {
	service *gmail.Service
	sender  Sender
}

// OAuthConfig is the Gmail client used for sending and reading. redirectURL
// is only needed for the consent flow.
func OAuthConfig(cfg config.EmailConfig, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope, gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
	}
}

// NewGmail creates a Gmail API transport
func NewGmail(ctx context.Context, cfg config.EmailConfig, sender Sender) (*Gmail, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: gmail oauth2 credentials are required", ErrMisconfigured)
	}

	tokenSource := OAuthConfig(cfg, "").TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Gmail{service: service, sender: sender}, nil
}

// Send delivers msg, retrying quota and rate limit responses with backoff
func (t *Gmail) Send(ctx context.Context, msg Message) (string, error) {
	raw, _, err := compose(t.sender, msg)
	if err != nil {
		return "", fmt.Errorf("failed to compose email: %w", err)
	}
	message := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}

	var lastErr error
	for attempt := 1; attempt <= gmailSendAttempts; attempt++ {
		sent, err := t.service.Users.Messages.Send("me", message).Context(ctx).Do()
		if err == nil {
			logrus.WithFields(logrus.Fields{"to": msg.To, "gmail_id": sent.Id}).Debug("Email sent via Gmail API")
			return sent.Id, nil
		}

		lastErr = classifyGmail(err)
		if !isRateLimited(err) {
			return "", lastErr
		}

		wait := time.Duration(attempt*attempt) * time.Second
		logrus.Warnf("Gmail rate limited (attempt %d/%d), waiting %v", attempt, gmailSendAttempts, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("failed to send email after %d attempts: %w", gmailSendAttempts, lastErr)
}

// Verify checks the token by reading the account profile
func (t *Gmail) Verify(ctx context.Context) error {
	if _, err := t.service.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return classifyGmail(err)
	}
	return nil
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rateLimitExceeded")
}

func classifyGmail(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	return fmt.Errorf("gmail send failed: %w", err)
}

// compose builds a multipart/alternative RFC 5322 message
func compose(sender Sender, msg Message) ([]byte, string, error) {
	id := newMessageID(sender.Email)

	var h mail.Header
	h.SetDate(timeNow())
	h.SetAddressList("From", []*mail.Address{{Name: sender.Name, Address: sender.Email}})
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: msg.To}})
	if sender.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: sender.ReplyTo}})
	}
	if sender.IncludeUnsubscribe {
		h.Set("List-Unsubscribe", unsubscribeHeader(sender))
	}
	h.SetSubject(msg.Subject)
	h.SetMessageID(id)

	var buf bytes.Buffer
	w, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", err
	}
	tw, err := w.CreateInline()
	if err != nil {
		return nil, "", err
	}

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", msg.Body},
		{"text/html", htmlBody(msg.Body)},
	}
	for _, p := range parts {
		var ph mail.InlineHeader
		ph.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		pw, err := tw.CreatePart(ph)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.WriteString(pw, p.body); err != nil {
			return nil, "", err
		}
		if err := pw.Close(); err != nil {
			return nil, "", err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), id, nil
}
