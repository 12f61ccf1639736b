package replies

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func TestSearchCriteriaMatchesSubjectFromOrBody(t *testing.T) {
	c := searchCriteria("invoice")
	require.Len(t, c.Or, 1)

	subject := c.Or[0][0]
	assert.Equal(t, "invoice", subject.Header.Get("Subject"))

	rest := c.Or[0][1]
	require.Len(t, rest.Or, 1)
	assert.Equal(t, "invoice", rest.Or[0][0].Header.Get("From"))
	assert.Equal(t, []string{"invoice"}, rest.Or[0][1].Body)

	// the criteria serialize as a nested OR
	fields := c.Format()
	assert.Equal(t, imap.RawString("OR"), fields[0])
}

func gmailAgainst(t *testing.T, routes map[string]interface{}) (*Gmail, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return &Gmail{service: svc}, &seen
}

func TestGmailSearchPassesQuery(t *testing.T) {
	g, seen := gmailAgainst(t, map[string]interface{}{
		"/gmail/v1/users/me/messages": map[string]interface{}{
			"messages": []map[string]string{{"id": "m1"}},
		},
		"/gmail/v1/users/me/messages/m1": map[string]interface{}{
			"id": "m1",
			"payload": map[string]interface{}{
				"headers": []map[string]string{
					{"name": "Subject", "value": "Invoice 42"},
					{"name": "From", "value": "Bob <bob@acme.io>"},
				},
			},
		},
	})

	found, err := g.Search(context.Background(), "subject:invoice", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "m1", found[0].ID)
	assert.Equal(t, "Invoice 42", found[0].Subject)

	require.NotEmpty(t, *seen)
	list := (*seen)[0].URL.Query()
	assert.Equal(t, "subject:invoice", list.Get("q"))
	assert.Equal(t, "5", list.Get("maxResults"))
}

func TestGmailProfile(t *testing.T) {
	g, _ := gmailAgainst(t, map[string]interface{}{
		"/gmail/v1/users/me/profile": map[string]interface{}{
			"emailAddress":  "jane@example.com",
			"messagesTotal": 120,
			"threadsTotal":  80,
		},
	})

	p, err := g.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Profile{EmailAddress: "jane@example.com", MessagesTotal: 120, ThreadsTotal: 80}, p)
}
