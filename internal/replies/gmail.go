package replies

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	msgmail "github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/model"
)

// Gmail searches the mailbox through the Gmail API
type Gmail struct {
	service *gmail.Service
}

func NewGmail(ctx context.Context, cfg config.EmailConfig) (*Gmail, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("gmail oauth2 credentials are required for reply detection")
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Gmail{service: service}, nil
}

func replyQuery(address string, since time.Time) string {
	q := "from:" + address
	if !since.IsZero() {
		q += fmt.Sprintf(" after:%d", since.Unix())
	}
	return q
}

func (g *Gmail) FindReplies(ctx context.Context, contacts []model.Contact, since time.Time) ([]Reply, error) {
	var found []Reply
	for _, contact := range contacts {
		resp, err := g.service.Users.Messages.List("me").Q(replyQuery(contact.Email, since)).MaxResults(1).Context(ctx).Do()
		if err != nil {
			return found, fmt.Errorf("failed to search messages from %s: %w", contact.Email, err)
		}
		if len(resp.Messages) == 0 {
			continue
		}

		reply := Reply{ContactID: contact.ID, From: contact.Email}
		if msg, err := g.metadata(ctx, resp.Messages[0].Id); err != nil {
			logrus.Warnf("Failed to get reply metadata from %s: %v", contact.Email, err)
		} else {
			reply.Subject = msg.Subject
			reply.Date = msg.Date
		}
		found = append(found, reply)
	}
	return found, nil
}

func (g *Gmail) metadata(ctx context.Context, id string) (*Message, error) {
	msg, err := g.service.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "To", "Subject", "Date").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := gmailMessage(msg)
	return &out, nil
}

func (g *Gmail) ListInbox(ctx context.Context, limit int) ([]Message, error) {
	return g.list(ctx, g.service.Users.Messages.List("me").LabelIds("INBOX").MaxResults(int64(limit)))
}

// Search passes query through as a Gmail search expression
func (g *Gmail) Search(ctx context.Context, query string, limit int) ([]Message, error) {
	return g.list(ctx, g.service.Users.Messages.List("me").Q(query).MaxResults(int64(limit)))
}

func (g *Gmail) list(ctx context.Context, call *gmail.UsersMessagesListCall) ([]Message, error) {
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	out := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg, err := g.metadata(ctx, m.Id)
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", m.Id, err)
			continue
		}
		out = append(out, *msg)
	}
	return out, nil
}

func (g *Gmail) Profile(ctx context.Context) (*Profile, error) {
	p, err := g.service.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &Profile{EmailAddress: p.EmailAddress, MessagesTotal: p.MessagesTotal, ThreadsTotal: p.ThreadsTotal}, nil
}

func (g *Gmail) ReadMessage(ctx context.Context, id string) (*Message, error) {
	msg, err := g.service.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	out := gmailMessage(msg)
	if msg.Payload != nil {
		plain, html := gmailBody(msg.Payload)
		out.Body = plain
		if out.Body == "" {
			out.Body = html
		}
	}
	return &out, nil
}

func gmailMessage(msg *gmail.Message) Message {
	out := Message{ID: msg.Id, Labels: msg.LabelIds, Subject: "(no subject)"}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			if h.Value != "" {
				out.Subject = h.Value
			}
		case "From":
			out.From = h.Value
			if addr, err := mail.ParseAddress(h.Value); err == nil {
				out.From = formatAddress((*msgmail.Address)(addr))
			}
		case "To":
			out.To = h.Value
		case "Date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				out.Date = t
			}
		}
	}
	return out
}

// gmailBody walks the part tree and returns the plain and html bodies
func gmailBody(part *gmail.MessagePart) (string, string) {
	var plain, html string
	if part.Body != nil && part.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			switch {
			case strings.HasPrefix(part.MimeType, "text/plain"):
				plain = string(data)
			case strings.HasPrefix(part.MimeType, "text/html"):
				html = string(data)
			}
		}
	}
	for _, sub := range part.Parts {
		p, h := gmailBody(sub)
		if plain == "" {
			plain = p
		}
		if html == "" {
			html = h
		}
	}
	return strings.TrimSpace(plain), strings.TrimSpace(html)
}
