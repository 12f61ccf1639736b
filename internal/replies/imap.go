package replies

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/model"
)

// IMAPSettings describes the mailbox to search
type IMAPSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Mailbox  string
}

// IMAP dials a fresh connection per call
type IMAP struct {
	settings IMAPSettings
}

func NewIMAP(s IMAPSettings) *IMAP {
	if s.Mailbox == "" {
		s.Mailbox = "INBOX"
	}
	return &IMAP{settings: s}
}

func (d *IMAP) connect(readOnly bool) (*client.Client, *imap.MailboxStatus, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", d.settings.Host, d.settings.Port), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	if err := c.Login(d.settings.User, d.settings.Password); err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}
	mbox, err := c.Select(d.settings.Mailbox, readOnly)
	if err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("failed to select %s: %w", d.settings.Mailbox, err)
	}
	return c, mbox, nil
}

// FindReplies searches by From header for each contact and reports the most
// recent match
func (d *IMAP) FindReplies(ctx context.Context, contacts []model.Contact, since time.Time) ([]Reply, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	c, _, err := d.connect(true)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	var found []Reply
	for _, contact := range contacts {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		criteria := imap.NewSearchCriteria()
		criteria.Header.Add("From", contact.Email)
		if !since.IsZero() {
			criteria.Since = since
		}

		uids, err := c.UidSearch(criteria)
		if err != nil {
			return found, fmt.Errorf("failed to search messages from %s: %w", contact.Email, err)
		}
		if len(uids) == 0 {
			continue
		}

		reply := Reply{ContactID: contact.ID, From: contact.Email}
		msgs, err := d.fetchEnvelopes(c, uids[len(uids)-1:])
		if err != nil {
			logrus.Warnf("Failed to fetch reply envelope from %s: %v", contact.Email, err)
		} else if len(msgs) > 0 {
			reply.Subject = msgs[0].Subject
			reply.Date = msgs[0].Date
		}
		found = append(found, reply)
	}
	return found, nil
}

func (d *IMAP) fetchEnvelopes(c *client.Client, uids []uint32) ([]Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid}, messages)
	}()

	var out []Message
	for msg := range messages {
		out = append(out, envelopeMessage(msg))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return out, nil
}

// ListInbox returns the newest limit messages, newest first
func (d *IMAP) ListInbox(ctx context.Context, limit int) ([]Message, error) {
	c, mbox, err := d.connect(true)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if mbox.Messages == 0 || limit <= 0 {
		return []Message{}, nil
	}
	start := uint32(1)
	if mbox.Messages > uint32(limit) {
		start = mbox.Messages - uint32(limit) + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(start, mbox.Messages)

	messages := make(chan *imap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid}, messages)
	}()

	var out []Message
	for msg := range messages {
		out = append(out, envelopeMessage(msg))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, ctx.Err()
}

// Search runs an IMAP OR search over Subject, From and body text
func (d *IMAP) Search(ctx context.Context, query string, limit int) ([]Message, error) {
	c, _, err := d.connect(true)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	uids, err := c.UidSearch(searchCriteria(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search messages for %q: %w", query, err)
	}
	if len(uids) == 0 || limit <= 0 {
		return []Message{}, nil
	}
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	out, err := d.fetchEnvelopes(c, uids)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, ctx.Err()
}

func searchCriteria(query string) *imap.SearchCriteria {
	subject := imap.NewSearchCriteria()
	subject.Header.Add("Subject", query)
	from := imap.NewSearchCriteria()
	from.Header.Add("From", query)
	body := imap.NewSearchCriteria()
	body.Body = []string{query}

	fromOrBody := imap.NewSearchCriteria()
	fromOrBody.Or = [][2]*imap.SearchCriteria{{from, body}}

	criteria := imap.NewSearchCriteria()
	criteria.Or = [][2]*imap.SearchCriteria{{subject, fromOrBody}}
	return criteria
}

// Profile reports the login and the message count of the selected mailbox
func (d *IMAP) Profile(ctx context.Context) (*Profile, error) {
	c, mbox, err := d.connect(true)
	if err != nil {
		return nil, err
	}
	defer c.Logout()
	return &Profile{EmailAddress: d.settings.User, MessagesTotal: int64(mbox.Messages)}, ctx.Err()
}

// ReadMessage fetches the full message by UID and marks it seen
func (d *IMAP) ReadMessage(ctx context.Context, id string) (*Message, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	c, _, err := d.connect(false)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))
	section := &imap.BodySectionName{}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	out := envelopeMessage(msg)
	if r := msg.GetBody(section); r != nil {
		body, err := extractText(r)
		if err != nil {
			logrus.Warnf("Failed to parse message %s body: %v", id, err)
		}
		out.Body = body
	}
	return &out, ctx.Err()
}

func envelopeMessage(msg *imap.Message) Message {
	out := Message{ID: strconv.FormatUint(uint64(msg.Uid), 10), Labels: msg.Flags}
	if msg.Envelope == nil {
		out.Subject = "(no subject)"
		return out
	}
	out.Subject = msg.Envelope.Subject
	if out.Subject == "" {
		out.Subject = "(no subject)"
	}
	out.Date = msg.Envelope.Date
	if len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		out.From = imapAddress(from)
	}
	if len(msg.Envelope.To) > 0 {
		out.To = msg.Envelope.To[0].Address()
	}
	return out
}

func imapAddress(a *imap.Address) string {
	if a.PersonalName == "" {
		return "<" + a.Address() + ">"
	}
	return a.PersonalName + " <" + a.Address() + ">"
}
