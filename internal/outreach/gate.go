package outreach

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smart-outreach-go/internal/store"
)

// DenyReason explains why the gate refused a send
type DenyReason string

const (
	DenyBlacklisted DenyReason = "blacklisted"
	DenyDailyLimit  DenyReason = "daily_limit"
)

// Admission is the outcome of a gate check. An allowed admission holds a slot
// of the daily cap until Done is called.
type Admission struct {
	Allowed bool
	Reason  DenyReason
	done    func()
}

// Done releases the reserved slot. Call it once the send outcome is stored.
func (a Admission) Done() {
	if a.done != nil {
		a.done()
	}
}

// Gate enforces the blacklist and the daily cap immediately before a send
type Gate struct {
	store      store.Store
	dailyLimit int64
	loc        *time.Location
	now        func() time.Time

	mu       sync.Mutex
	inFlight int64
}

func NewGate(st store.Store, dailyLimit int, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.Local
	}
	return &Gate{
		store:      st,
		dailyLimit: int64(dailyLimit),
		loc:        loc,
		now:        time.Now,
	}
}

// Admit checks address against live blacklist and sent-today state
func (g *Gate) Admit(ctx context.Context, address string) (Admission, error) {
	blacklisted, err := g.store.IsBlacklisted(ctx, address)
	if err != nil {
		return Admission{}, err
	}
	if blacklisted {
		return Admission{Reason: DenyBlacklisted}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sent, err := g.store.CountSentSince(ctx, g.startOfDay())
	if err != nil {
		return Admission{}, err
	}
	if sent+g.inFlight >= g.dailyLimit {
		return Admission{Reason: DenyDailyLimit}, nil
	}

	g.inFlight++
	var once sync.Once
	return Admission{
		Allowed: true,
		done: func() {
			once.Do(func() {
				g.mu.Lock()
				g.inFlight--
				g.mu.Unlock()
			})
		},
	}, nil
}

// SentToday counts emails sent since local midnight
func (g *Gate) SentToday(ctx context.Context) (int64, error) {
	n, err := g.store.CountSentSince(ctx, g.startOfDay())
	if err != nil {
		return 0, fmt.Errorf("failed to count emails sent today: %w", err)
	}
	return n, nil
}

// LimitReached reports whether the daily cap is used up, ignoring reservations
func (g *Gate) LimitReached(ctx context.Context) (bool, error) {
	n, err := g.SentToday(ctx)
	if err != nil {
		return false, err
	}
	return n >= g.dailyLimit, nil
}

// DailyLimit returns the configured cap
func (g *Gate) DailyLimit() int64 {
	return g.dailyLimit
}

func (g *Gate) startOfDay() time.Time {
	now := g.now().In(g.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)
}
