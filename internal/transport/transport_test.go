package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/config"
)

func baseConfig(provider string) *config.Config {
	return &config.Config{
		Email: config.EmailConfig{
			Provider:  provider,
			FromName:  "Jane Doe",
			FromEmail: "jane@example.com",
		},
	}
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := baseConfig(config.ProviderGmailAppPassword)
	cfg.Email.GmailAppPassword = "secret"
	tr, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &SMTP{}, tr)

	cfg = baseConfig(config.ProviderSendGrid)
	cfg.Email.SendGridAPIKey = "SG.key"
	tr, err = New(context.Background(), cfg)
	require.NoError(t, err)
	smtp := tr.(*SMTP)
	assert.Equal(t, "smtp.sendgrid.net", smtp.dialer.Host)
	assert.Equal(t, "apikey", smtp.dialer.Username)

	cfg = baseConfig(config.ProviderResend)
	cfg.Email.ResendAPIKey = "re_key"
	tr, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &Resend{}, tr)
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	for _, provider := range []string{
		config.ProviderGmail,
		config.ProviderGmailAppPassword,
		config.ProviderSendGrid,
		config.ProviderSMTP,
		config.ProviderResend,
	} {
		_, err := New(context.Background(), baseConfig(provider))
		assert.ErrorIs(t, err, ErrMisconfigured, provider)
	}
}

func TestUnknownProviderMessage(t *testing.T) {
	_, err := New(context.Background(), baseConfig("carrier-pigeon"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown email provider: carrier-pigeon")
}

func TestComposeProducesAlternativeParts(t *testing.T) {
	sender := Sender{Name: "Jane Doe", Email: "jane@example.com", ReplyTo: "replies@example.com", IncludeUnsubscribe: true}
	raw, id, err := compose(sender, Message{To: "bob@acme.io", ToName: "Bob", Subject: "Hello <there>", Body: "line one\nline two"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@example.com"))

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Hello <there>", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "bob@acme.io", to[0].Address)

	gotID, err := mr.Header.MessageID()
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "<mailto:replies@example.com?subject=unsubscribe>", mr.Header.Get("List-Unsubscribe"))

	bodies := map[string]string{}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		h, ok := p.Header.(*mail.InlineHeader)
		require.True(t, ok)
		ct, _, _ := h.ContentType()
		b, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		bodies[ct] = string(b)
	}
	assert.Equal(t, "line one\nline two", strings.ReplaceAll(bodies["text/plain"], "\r\n", "\n"))
	assert.Contains(t, bodies["text/html"], "line one<br>")
}

func TestHTMLBodyEscapes(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c<br>\nd", htmlBody("a <b> & c\nd"))
}

func TestClassifySMTP(t *testing.T) {
	authErr := &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}
	assert.ErrorIs(t, classifySMTP(authErr), ErrMisconfigured)

	mailboxErr := &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	err := classifySMTP(mailboxErr)
	assert.False(t, errors.Is(err, ErrMisconfigured))
	assert.Contains(t, err.Error(), "mailbox unavailable")
}

func TestNewMessageIDUsesSenderDomain(t *testing.T) {
	assert.True(t, strings.HasSuffix(newMessageID("a@b.io"), "@b.io"))
	assert.True(t, strings.HasSuffix(newMessageID("nobody"), "@localhost"))
}
