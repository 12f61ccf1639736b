package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// SMTPSettings describes an authenticated submission server
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTP sends through a submission server. It backs the smtp,
// gmail-app-password and sendgrid providers.
type SMTP struct {
	dialer *gomail.Dialer
	sender Sender
}

func NewSMTP(s SMTPSettings, sender Sender) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(s.Host, s.Port, s.Username, s.Password),
		sender: sender,
	}
}

// Send delivers msg. The connection deadline follows ctx, so once Send
// returns nothing is left writing to the server.
func (t *SMTP) Send(ctx context.Context, msg Message) (string, error) {
	m, id := t.build(msg)

	sc, err := t.dial(ctx)
	if err != nil {
		return "", t.sendError(ctx, msg.To, err)
	}
	if err := gomail.Send(sc, m); err != nil {
		sc.abort()
		return "", t.sendError(ctx, msg.To, err)
	}
	if err := sc.Close(); err != nil {
		logrus.WithError(err).WithField("to", msg.To).Debug("SMTP quit failed after delivery")
	}

	logrus.WithFields(logrus.Fields{"to": msg.To, "message_id": id}).Debug("Email sent via SMTP")
	return id, nil
}

func (t *SMTP) sendError(ctx context.Context, to string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("smtp send to %s: %w", to, ctx.Err())
	}
	return classifySMTP(err)
}

func (t *SMTP) build(msg Message) (*gomail.Message, string) {
	id := newMessageID(t.sender.Email)

	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.sender.Email, t.sender.Name)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	if t.sender.ReplyTo != "" {
		m.SetHeader("Reply-To", t.sender.ReplyTo)
	}
	if t.sender.IncludeUnsubscribe {
		m.SetHeader("List-Unsubscribe", unsubscribeHeader(t.sender))
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", "<"+id+">")
	m.SetDateHeader("Date", timeNow())
	m.SetBody("text/plain", msg.Body)
	m.AddAlternative("text/html", htmlBody(msg.Body))
	return m, id
}

// Verify opens and closes an authenticated connection
func (t *SMTP) Verify(ctx context.Context) error {
	sc, err := t.dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classifySMTP(err)
	}
	return sc.Close()
}

// dial follows gomail.Dialer.Dial but binds the connection to ctx
func (t *SMTP) dial(ctx context.Context) (*smtpSession, error) {
	d := t.dialer
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })

	s := &smtpSession{conn: conn, stop: stop}
	if d.SSL {
		conn = tls.Client(conn, t.tlsConfig())
	}
	c, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		s.abort()
		return nil, err
	}
	s.client = c

	localName := d.LocalName
	if localName == "" {
		localName = "localhost"
	}
	if err := c.Hello(localName); err != nil {
		s.abort()
		return nil, err
	}
	if !d.SSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(t.tlsConfig()); err != nil {
				s.abort()
				return nil, err
			}
		}
	}
	if d.Username != "" {
		ok, mechs := c.Extension("AUTH")
		if !ok {
			s.abort()
			return nil, fmt.Errorf("%w: %s does not offer AUTH", ErrMisconfigured, d.Host)
		}
		auth := smtp.PlainAuth("", d.Username, d.Password, d.Host)
		if strings.Contains(mechs, "CRAM-MD5") && !strings.Contains(mechs, "PLAIN") {
			auth = smtp.CRAMMD5Auth(d.Username, d.Password)
		}
		if err := c.Auth(auth); err != nil {
			s.abort()
			return nil, err
		}
	}
	return s, nil
}

func (t *SMTP) tlsConfig() *tls.Config {
	if t.dialer.TLSConfig != nil {
		return t.dialer.TLSConfig
	}
	return &tls.Config{ServerName: t.dialer.Host}
}

// smtpSession is a gomail.SendCloser over one ctx-bound connection
type smtpSession struct {
	conn   net.Conn
	client *smtp.Client
	stop   func() bool
}

func (s *smtpSession) Send(from string, to []string, msg io.WriterTo) error {
	if err := s.client.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.client.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (s *smtpSession) Close() error {
	defer s.stop()
	if err := s.client.Quit(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}

// abort drops the connection without a QUIT
func (s *smtpSession) abort() {
	s.stop()
	s.conn.Close()
}

// classifySMTP marks authentication rejections as configuration errors
func classifySMTP(err error) error {
	if errors.Is(err, ErrMisconfigured) {
		return err
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && (tpErr.Code == 530 || tpErr.Code == 534 || tpErr.Code == 535) {
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	return fmt.Errorf("smtp send failed: %w", err)
}
