package outreach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/model"
)

func TestAddContactNormalisesAndSplitsName(t *testing.T) {
	f := newFixture(t, 10)

	id, created, err := f.manager.AddContact(f.ctx, ContactInput{
		Email:       "  Ada.Lovelace@Example.COM ",
		Name:        "Ada King Lovelace",
		CompanyName: "Analytical Engines",
	})
	require.NoError(t, err)
	assert.True(t, created)

	c := f.contact(id)
	assert.Equal(t, "ada.lovelace@example.com", c.Email)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "King Lovelace", c.LastName)
	assert.Equal(t, model.ContactNew, c.Status)
	assert.Equal(t, "Analytical Engines", c.CompanyName())
}

func TestAddContactDuplicateReturnsExisting(t *testing.T) {
	f := newFixture(t, 10)
	first := f.addContact("bob@acme.io", "Acme")

	id, created, err := f.manager.AddContact(f.ctx, ContactInput{Email: "BOB@acme.io"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, id)
}

func TestAddContactRejections(t *testing.T) {
	f := newFixture(t, 10)
	require.NoError(t, f.store.AddToBlacklist(f.ctx, "spam@acme.io", "requested"))

	_, _, err := f.manager.AddContact(f.ctx, ContactInput{Email: "spam@acme.io"})
	assert.ErrorIs(t, err, ErrBlacklisted)

	_, _, err = f.manager.AddContact(f.ctx, ContactInput{Email: "   "})
	assert.ErrorIs(t, err, ErrMissingRecipient)

	_, _, err = f.manager.AddContact(f.ctx, ContactInput{Email: "not-an-address"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestAddContactMatchesCompanyCaseInsensitively(t *testing.T) {
	f := newFixture(t, 10)
	companyID, err := f.manager.AddCompany(f.ctx, &model.Company{Name: "Acme", Priority: 9})
	require.NoError(t, err)

	c := f.addContact("bob@acme.io", "ACME")
	require.NotNil(t, f.contact(c).CompanyID)
	assert.Equal(t, companyID, *f.contact(c).CompanyID)

	company, err := f.store.GetCompany(f.ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, 5, company.Priority)

	_, err = f.manager.AddCompany(f.ctx, &model.Company{Name: "  "})
	assert.ErrorIs(t, err, ErrCompanyName)
}

func TestQueueNewContacts(t *testing.T) {
	f := newFixture(t, 10)
	a := f.addContact("a@x.com", "Acme")
	f.addContact("b@x.com", "Acme")
	f.addContact("c@x.com", "Acme")
	require.NoError(t, f.store.AddToBlacklist(f.ctx, "c@x.com", "requested"))

	_, err := f.planner.ScheduleInitial(f.ctx, a, f.manager.initial, nil)
	require.NoError(t, err)

	res, err := f.manager.QueueNewContacts(f.ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, QueueResult{Scheduled: 1, Skipped: 2}, res)
}

func TestMarkRepliedKeepsPendingByDefault(t *testing.T) {
	f := newFixture(t, 10)
	c := f.addContact("bob@acme.io", "Acme")
	sent := f.addEmail(c, model.EmailSent, 0, f.now.Add(-5*24*time.Hour))
	pending := f.addEmail(c, model.EmailScheduled, 1, f.now.Add(24*time.Hour))
	f.setStatus(c, model.ContactContacted)

	require.NoError(t, f.manager.MarkReplied(f.ctx, c))

	assert.Equal(t, model.ContactReplied, f.contact(c).Status)
	require.NotNil(t, f.email(sent).RepliedAt)
	assert.Equal(t, model.EmailScheduled, f.email(pending).Status)

	// idempotent
	require.NoError(t, f.manager.MarkReplied(f.ctx, c))
}

func TestMarkRepliedCancelsPendingWhenConfigured(t *testing.T) {
	f := newFixture(t, 10)
	f.manager.cancelOnReply = true
	c := f.addContact("bob@acme.io", "Acme")
	f.addEmail(c, model.EmailSent, 0, f.now.Add(-5*24*time.Hour))
	pending := f.addEmail(c, model.EmailScheduled, 1, f.now.Add(24*time.Hour))

	require.NoError(t, f.manager.MarkReplied(f.ctx, c))

	e := f.email(pending)
	assert.Equal(t, model.EmailFailed, e.Status)
	assert.Equal(t, "contact replied", e.ErrorMessage)
}

func TestMarkNotInterestedWithBlacklist(t *testing.T) {
	f := newFixture(t, 10)
	c := f.addContact("bob@acme.io", "Acme")
	pending := f.addEmail(c, model.EmailScheduled, 0, f.now.Add(time.Hour))

	require.NoError(t, f.manager.MarkNotInterested(f.ctx, c, true))

	assert.Equal(t, model.ContactNotInterested, f.contact(c).Status)
	assert.Equal(t, model.EmailFailed, f.email(pending).Status)
	blacklisted, err := f.store.IsBlacklisted(f.ctx, "bob@acme.io")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	err = f.manager.MarkReplied(f.ctx, c)
	assert.Error(t, err, "terminal states are sticky")

	assert.ErrorIs(t, f.manager.MarkNotInterested(f.ctx, 404, false), ErrContactNotFound)
}

func TestSummaryAndStats(t *testing.T) {
	f := newFixture(t, 25)
	a := f.addContact("a@x.com", "Acme")
	b := f.addContact("b@x.com", "Acme")
	f.addEmail(a, model.EmailSent, 0, f.now.Add(-time.Hour))
	last := f.addEmail(a, model.EmailScheduled, 1, f.now.Add(time.Hour))
	f.addEmail(b, model.EmailSent, 0, f.now.Add(-2*time.Hour))
	f.setStatus(a, model.ContactContacted)
	f.setStatus(b, model.ContactContacted)
	require.NoError(t, f.manager.MarkReplied(f.ctx, b))

	s, err := f.manager.Summary(f.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, s.EmailCount)
	assert.Equal(t, 1, s.SentCount)
	require.NotNil(t, s.LastEmail)
	assert.Equal(t, last, s.LastEmail.ID)

	stats, err := f.manager.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Contacts[model.ContactContacted])
	assert.Equal(t, int64(1), stats.Contacts[model.ContactReplied])
	assert.Equal(t, int64(2), stats.Emails[model.EmailSent])
	assert.Equal(t, int64(1), stats.Emails[model.EmailScheduled])
	assert.Equal(t, int64(2), stats.SentToday)
	assert.Equal(t, int64(25), stats.DailyLimit)
	assert.InDelta(t, 50.0, stats.ReplyRate, 0.001)
}

func TestScheduleAllFollowups(t *testing.T) {
	f := newFixture(t, 10)
	contacted := f.addContact("ada@acme.io", "Acme")
	f.addEmail(contacted, model.EmailSent, 0, f.now.Add(-time.Hour))
	f.setStatus(contacted, model.ContactContacted)
	f.addContact("bob@acme.io", "Acme")

	created, err := f.manager.ScheduleAllFollowups(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// a second pass finds pending follow-ups and adds nothing
	created, err = f.manager.ScheduleAllFollowups(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}
