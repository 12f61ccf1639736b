// Package window decides when automated sends are allowed and computes the
// next instant an email may be dispatched.
package window

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Settings describes the send window
type Settings struct {
	Days               []string
	Start              string
	End                string
	Timezone           string
	MinIntervalMinutes int
	MaxIntervalMinutes int
}

// Policy evaluates the send window in its configured timezone
type Policy struct {
	days     map[time.Weekday]bool
	start    int // minutes after midnight
	end      int
	loc      *time.Location
	minDelay time.Duration
	maxDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Policy. rng is the only source of non-determinism; pass a
// seeded generator in tests.
func New(s Settings, rng *rand.Rand) (*Policy, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}

	start, err := parseClock(s.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	end, err := parseClock(s.End)
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}
	if end < start {
		return nil, fmt.Errorf("window end %s is before start %s", s.End, s.Start)
	}

	if s.MinIntervalMinutes < 0 || s.MaxIntervalMinutes < s.MinIntervalMinutes {
		return nil, fmt.Errorf("invalid interval %d-%d minutes", s.MinIntervalMinutes, s.MaxIntervalMinutes)
	}

	days := make(map[time.Weekday]bool, len(s.Days))
	weekday := false
	for _, name := range s.Days {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		days[d] = true
		if !isWeekend(d) {
			weekday = true
		}
	}
	if !weekday {
		return nil, fmt.Errorf("send days must include at least one weekday")
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Policy{
		days:     days,
		start:    start,
		end:      end,
		loc:      loc,
		minDelay: time.Duration(s.MinIntervalMinutes) * time.Minute,
		maxDelay: time.Duration(s.MaxIntervalMinutes) * time.Minute,
		rng:      rng,
	}, nil
}

// Location returns the configured timezone
func (p *Policy) Location() *time.Location {
	return p.loc
}

// IsWithinWindow reports whether now falls on a send day and between the
// window start and end, both inclusive.
func (p *Policy) IsWithinWindow(now time.Time) bool {
	local := now.In(p.loc)
	if !p.days[local.Weekday()] {
		return false
	}
	m := minuteOfDay(local)
	return m >= p.start && m <= p.end
}

// NextSendInstant returns the next instant a message scheduled at now may be
// sent. The result never falls on a weekend and never before window start.
func (p *Policy) NextSendInstant(now time.Time) time.Time {
	local := now.In(p.loc)
	m := minuteOfDay(local)

	var t time.Time
	switch {
	case m >= p.end:
		t = p.atStart(local.AddDate(0, 0, 1))
	case m < p.start:
		t = p.atStart(local)
	default:
		t = local.Add(p.Jitter())
	}

	for !p.sendable(t.Weekday()) {
		t = p.atStart(t.AddDate(0, 0, 1))
	}
	return t
}

// Jitter draws a uniformly random delay in [min, max) of the configured send
// interval, at millisecond resolution.
func (p *Policy) Jitter() time.Duration {
	minMs := p.minDelay.Milliseconds()
	spread := p.maxDelay.Milliseconds() - minMs

	p.mu.Lock()
	r := p.rng.Float64()
	p.mu.Unlock()

	return time.Duration(minMs+int64(r*float64(spread))) * time.Millisecond
}

func (p *Policy) atStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), p.start/60, p.start%60, 0, 0, p.loc)
}

func (p *Policy) sendable(d time.Weekday) bool {
	return !isWeekend(d) && p.days[d]
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParseWeekday accepts full or three-letter English day names, any case
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
