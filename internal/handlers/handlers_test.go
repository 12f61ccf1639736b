package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/config"
	"smart-outreach-go/internal/outreach"
	"smart-outreach-go/internal/replies"
	"smart-outreach-go/internal/scheduler"
	"smart-outreach-go/internal/store/memory"
	"smart-outreach-go/internal/templates"
	"smart-outreach-go/internal/window"
)

type idleDispatcher struct{}

func (idleDispatcher) ProcessScheduledEmails(context.Context, int) (outreach.Result, error) {
	return outreach.Result{}, nil
}

type fakeInbox struct{}

func (fakeInbox) ListInbox(context.Context, int) ([]replies.Message, error) {
	return []replies.Message{{ID: "7", From: "Ada <ada@acme.io>", Subject: "Re: hello"}}, nil
}

func (fakeInbox) Search(_ context.Context, query string, _ int) ([]replies.Message, error) {
	if query != "hello" {
		return []replies.Message{}, nil
	}
	return []replies.Message{{ID: "7", From: "Ada <ada@acme.io>", Subject: "Re: hello"}}, nil
}

func (fakeInbox) Profile(context.Context) (*replies.Profile, error) {
	return &replies.Profile{EmailAddress: "jane@example.com", MessagesTotal: 3}, nil
}

func (fakeInbox) ReadMessage(_ context.Context, id string) (*replies.Message, error) {
	if id != "7" {
		return nil, replies.ErrMessageNotFound
	}
	return &replies.Message{ID: "7", Body: "Sounds good"}, nil
}

type testAPI struct {
	t      *testing.T
	store  *memory.Store
	router *gin.Engine
}

func newTestAPI(t *testing.T, inbox replies.Inbox) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	policy, err := window.New(window.Settings{
		Days:               []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		Start:              "09:00",
		End:                "17:00",
		Timezone:           "America/Los_Angeles",
		MinIntervalMinutes: 5,
		MaxIntervalMinutes: 15,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	renderer, err := templates.NewRenderer(map[string]string{"your_name": "Jane Doe", "your_skill": "Backend"})
	require.NoError(t, err)

	st := memory.New()
	gate := outreach.NewGate(st, 25, policy.Location())
	planner := outreach.NewPlanner(st, policy, renderer, config.FollowupConfig{
		FirstFollowupDays:  4,
		SecondFollowupDays: 10,
		FinalFollowupDays:  18,
		MaxFollowups:       3,
	}, nil)
	manager := outreach.NewManager(st, planner, gate, templates.ColdGeneral, false)
	sched := scheduler.NewScheduler(&config.SchedulerConfig{IntervalMinutes: 15}, 10, idleDispatcher{}, nil, policy, gate)

	h := NewHandlers(Services{
		Store:     st,
		Manager:   manager,
		Planner:   planner,
		Importer:  outreach.NewImporter(manager),
		Inbox:     inbox,
		Renderer:  renderer,
		Scheduler: sched,
	})
	router := gin.New()
	h.SetupRoutes(router)
	t.Cleanup(func() {
		sched.Stop()
		sched.Wait()
	})

	return &testAPI{t: t, store: st, router: router}
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) addContact(email string) uint {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/contacts", fmt.Sprintf(`{"email":%q,"name":"Ada Lovelace","company_name":"Acme"}`, email))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var created ContactCreated
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &created))
	return created.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Database)
	assert.False(t, resp.Scheduler.Running)
}

func TestCreateCompany(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodPost, "/api/v1/companies", `{"name":"Acme","priority":9}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(5), decode[map[string]interface{}](t, w)["priority"])

	w = api.do(http.MethodPost, "/api/v1/companies", `{"website":"acme.io"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/companies", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, w), 1)
}

func TestCreateContact(t *testing.T) {
	api := newTestAPI(t, nil)

	id := api.addContact("ada@acme.io")

	w := api.do(http.MethodPost, "/api/v1/contacts", `{"email":"ADA@acme.io"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContactCreated{ID: id, Created: false}, decode[ContactCreated](t, w))

	w = api.do(http.MethodPost, "/api/v1/contacts", `{"email":"not-an-address"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode[ErrorResponse](t, w).Error)

	w = api.do(http.MethodGet, fmt.Sprintf("/api/v1/contacts/%d", id), "")
	assert.Equal(t, http.StatusOK, w.Code)
	summary := decode[outreach.Summary](t, w)
	assert.Equal(t, "ada@acme.io", summary.Contact.Email)
	assert.Equal(t, "Acme", summary.Contact.CompanyName())
}

func TestGetContactErrors(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/api/v1/contacts/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/contacts/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, w).Error)
}

func TestScheduleContact(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.addContact("ada@acme.io")
	path := fmt.Sprintf("/api/v1/contacts/%d/schedule", id)

	w := api.do(http.MethodPost, path, `{"template":"cold_general"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotZero(t, decode[ScheduleResponse](t, w).EmailID)

	// a second initial email while one is pending is refused
	w = api.do(http.MethodPost, path, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, fmt.Sprintf("/api/v1/emails?contact_id=%d", id), "")
	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[EmailList](t, w)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Backend engineer interested in Acme", list.Items[0].Subject)
}

func TestScheduleUnknownTemplate(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.addContact("ada@acme.io")

	w := api.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%d/schedule", id), `{"template":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleBlacklistedContact(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.addContact("ada@acme.io")

	w := api.do(http.MethodPost, "/api/v1/blacklist", `{"email":"Ada@Acme.io","reason":"asked"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%d/schedule", id), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "blacklisted", decode[ScheduleResponse](t, w).Denied)

	w = api.do(http.MethodDelete, "/api/v1/blacklist/ada@acme.io", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%d/schedule", id), "")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestMarkRepliedClosesContact(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.addContact("ada@acme.io")

	w := api.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%d/replied", id), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%d/schedule", id), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%d/not-interested", id), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMarkNotInterestedBlacklists(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.addContact("ada@acme.io")

	w := api.do(http.MethodPost, fmt.Sprintf("/api/v1/contacts/%d/not-interested", id), `{"blacklist":true}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	blacklisted, err := api.store.IsBlacklisted(context.Background(), "ada@acme.io")
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestQueueContacts(t *testing.T) {
	api := newTestAPI(t, nil)
	api.addContact("ada@acme.io")
	api.addContact("grace@acme.io")

	w := api.do(http.MethodPost, "/api/v1/contacts/queue", `{"limit":5}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, outreach.QueueResult{Scheduled: 2}, decode[outreach.QueueResult](t, w))
}

func TestImportContacts(t *testing.T) {
	api := newTestAPI(t, nil)

	csv := "email,name,company_name\nada@acme.io,Ada Lovelace,Acme\n,No Address,Acme\n"
	w := api.do(http.MethodPost, "/api/v1/contacts/import", csv)
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[outreach.ImportResult](t, w)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Failed)

	w = api.do(http.MethodPost, "/api/v1/contacts/import", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplates(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodGet, "/api/v1/templates", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]TemplateInfo](t, w), len(templates.Kinds()))

	w = api.do(http.MethodGet, "/api/v1/templates/cold_general/preview?first_name=Ada", "")
	assert.Equal(t, http.StatusOK, w.Code)
	preview := decode[TemplatePreview](t, w)
	assert.Equal(t, "Backend engineer interested in Example Corp", preview.Subject)
	assert.True(t, strings.HasPrefix(preview.Body, "Hi Ada,"))

	w = api.do(http.MethodGet, "/api/v1/templates/unknown/preview", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	api := newTestAPI(t, nil)
	api.addContact("ada@acme.io")

	w := api.do(http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	stats := decode[outreach.Stats](t, w)
	assert.Equal(t, int64(25), stats.DailyLimit)
	assert.Equal(t, int64(1), stats.Contacts["new"])
}

func TestInbox(t *testing.T) {
	api := newTestAPI(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodGet, "/api/v1/inbox", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodPost, "/api/v1/replies/check", "").Code)

	api = newTestAPI(t, fakeInbox{})
	w := api.do(http.MethodGet, "/api/v1/inbox?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]replies.Message](t, w), 1)

	w = api.do(http.MethodGet, "/api/v1/inbox/7", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sounds good", decode[replies.Message](t, w).Body)

	w = api.do(http.MethodGet, "/api/v1/inbox/8", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/v1/inbox?q=hello", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]replies.Message](t, w), 1)

	w = api.do(http.MethodGet, "/api/v1/inbox?q=nothing", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]replies.Message](t, w))

	w = api.do(http.MethodGet, "/api/v1/mailbox/profile", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane@example.com", decode[replies.Profile](t, w).EmailAddress)
}

func TestExportContacts(t *testing.T) {
	api := newTestAPI(t, nil)
	api.addContact("ada@acme.io")

	w := api.do(http.MethodGet, "/api/v1/contacts/export", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,company_name,name,email"))
	assert.Contains(t, lines[1], "ada@acme.io")

	w = api.do(http.MethodGet, "/api/v1/contacts/export?status=replied", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(w.Body.String()), "\n")+1)
}

func TestSchedulerEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(http.MethodPost, "/api/v1/scheduler/start", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[scheduler.Status](t, w).Running)

	w = api.do(http.MethodPost, "/api/v1/scheduler/start", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/v1/scheduler/run", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = api.do(http.MethodPost, "/api/v1/scheduler/stop", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/v1/scheduler/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[scheduler.Status](t, w).Running)
}
