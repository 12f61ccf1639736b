package outreach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/model"
)

func TestGateDeniesBlacklistedAddress(t *testing.T) {
	f := newFixture(t, 10)
	require.NoError(t, f.store.AddToBlacklist(f.ctx, "A@X.com", "bounced"))

	adm, err := f.gate.Admit(f.ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, adm.Allowed)
	assert.Equal(t, DenyBlacklisted, adm.Reason)
}

func TestGateReservationsCountTowardLimit(t *testing.T) {
	f := newFixture(t, 1)

	first, err := f.gate.Admit(f.ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	second, err := f.gate.Admit(f.ctx, "b@x.com")
	require.NoError(t, err)
	assert.False(t, second.Allowed)
	assert.Equal(t, DenyDailyLimit, second.Reason)

	first.Done()
	first.Done()

	third, err := f.gate.Admit(f.ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, third.Allowed)
	third.Done()
	assert.Equal(t, int64(0), f.gate.inFlight)
}

func TestGateCountsSendsSinceLocalMidnight(t *testing.T) {
	f := newFixture(t, 2)
	c := f.addContact("a@x.com", "Acme")

	f.addEmail(c, model.EmailSent, 0, f.now.Add(-24*time.Hour))
	f.addEmail(c, model.EmailSent, 1, f.now.Add(-time.Hour))

	n, err := f.gate.SentToday(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	adm, err := f.gate.Admit(f.ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, adm.Allowed)
	adm.Done()

	f.addEmail(c, model.EmailSent, 2, f.now.Add(-time.Minute))
	reached, err := f.gate.LimitReached(f.ctx)
	require.NoError(t, err)
	assert.True(t, reached)
}
