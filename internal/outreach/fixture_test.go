package outreach

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/replies"
	"smart-outreach-go/internal/store/memory"
	"smart-outreach-go/internal/templates"
	"smart-outreach-go/internal/transport"
	"smart-outreach-go/internal/window"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, msg transport.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *mockTransport) Verify(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) FindReplies(ctx context.Context, contacts []model.Contact, since time.Time) ([]replies.Reply, error) {
	args := m.Called(ctx, contacts, since)
	found, _ := args.Get(0).([]replies.Reply)
	return found, args.Error(1)
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	now        time.Time
	loc        *time.Location
	store      *memory.Store
	policy     *window.Policy
	planner    *Planner
	gate       *Gate
	dispatcher *Dispatcher
	manager    *Manager
	transport  *mockTransport
	slept      []time.Duration
}

var followupCadence = config.FollowupConfig{
	FirstFollowupDays:  4,
	SecondFollowupDays: 10,
	FinalFollowupDays:  18,
	MaxFollowups:       3,
}

func newFixture(t *testing.T, dailyLimit int) *fixture {
	t.Helper()

	policy, err := window.New(window.Settings{
		Days:               []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		Start:              "09:00",
		End:                "17:00",
		Timezone:           "America/Los_Angeles",
		MinIntervalMinutes: 5,
		MaxIntervalMinutes: 15,
	}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	renderer, err := templates.NewRenderer(map[string]string{
		"your_name":      "Jane Doe",
		"your_skill":     "Backend",
		"your_specialty": "distributed systems",
		"your_email":     "jane@example.com",
	})
	require.NoError(t, err)

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		loc:       policy.Location(),
		store:     memory.New(),
		policy:    policy,
		transport: &mockTransport{},
	}
	// Wednesday, inside the window
	f.now = time.Date(2026, 10, 14, 10, 0, 0, 0, f.loc)
	clock := func() time.Time { return f.now }
	f.store.SetClock(clock)

	f.gate = NewGate(f.store, dailyLimit, f.loc)
	f.gate.now = clock

	f.planner = NewPlanner(f.store, policy, renderer, followupCadence, nil)
	f.planner.now = clock

	f.dispatcher = NewDispatcher(f.store, f.gate, f.transport, policy, time.Second, nil)
	f.dispatcher.now = clock
	f.dispatcher.sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}

	f.manager = NewManager(f.store, f.planner, f.gate, templates.ColdGeneral, false)
	f.manager.now = clock
	return f
}

func (f *fixture) addContact(email, company string) uint {
	f.t.Helper()
	id, created, err := f.manager.AddContact(f.ctx, ContactInput{Email: email, Name: "Test Person", CompanyName: company})
	require.NoError(f.t, err)
	require.True(f.t, created)
	return id
}

// addEmail stores an email directly, bypassing the planner
func (f *fixture) addEmail(contactID uint, status model.EmailStatus, followup int, at time.Time) uint {
	f.t.Helper()
	e := &model.Email{
		ContactID:      contactID,
		TemplateName:   templates.FollowupKind(followup).String(),
		Subject:        "Backend engineer interested in Acme",
		Body:           "body",
		Status:         status,
		ScheduledAt:    at,
		FollowupNumber: followup,
	}
	if status == model.EmailSent {
		sentAt := at
		e.SentAt = &sentAt
	}
	require.NoError(f.t, f.store.CreateEmail(f.ctx, e))
	return e.ID
}

func (f *fixture) email(id uint) *model.Email {
	f.t.Helper()
	e, err := f.store.GetEmail(f.ctx, id)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) contact(id uint) *model.Contact {
	f.t.Helper()
	c, err := f.store.GetContact(f.ctx, id)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) setStatus(id uint, status model.ContactStatus) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpdateContactStatus(f.ctx, id, status))
}
