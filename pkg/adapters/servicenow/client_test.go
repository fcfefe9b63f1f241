package servicenow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/now", User: "admin", Password: "secret"})
	require.NoError(t, err)
	return c
}

func writeResult(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	c, err := NewClient(Config{Instance: "dev123"})
	require.NoError(t, err)
	assert.Equal(t, "https://dev123.service-now.com/api/now", c.baseURL)
	assert.Equal(t, domain.DefaultPriorities, c.PriorityVocabulary())
}

func TestLookupUserByEmail(t *testing.T) {
	tests := []struct {
		name     string
		rows     []map[string]string
		callerID string
		matches  []string
	}{
		{"Single", []map[string]string{{"sys_id": "abc"}}, "abc", nil},
		{"None", []map[string]string{}, "", []string{}},
		{"Several", []map[string]string{{"sys_id": "a"}, {"sys_id": "b"}}, "", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/now/table/sys_user", r.URL.Path)
				assert.Equal(t, "email=a@b.com", r.URL.Query().Get("sysparm_query"))
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "admin", user)
				assert.Equal(t, "secret", pass)
				writeResult(w, http.StatusOK, tt.rows)
			})

			got := c.LookupUserByEmail(context.Background(), "a@b.com")
			assert.NoError(t, got.Err)
			assert.Equal(t, tt.callerID, got.CallerID)
			assert.Equal(t, tt.matches, got.Matches)
		})
	}
}

func TestLookupUserByEmail_BackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"User Not Authenticated","detail":"Required to provide Auth information"},"status":"failure"}`))
	})

	got := c.LookupUserByEmail(context.Background(), "a@b.com")
	require.Error(t, got.Err)
	assert.Equal(t, "User Not Authenticated", got.Err.Error())

	var be *domain.BackendError
	require.ErrorAs(t, got.Err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.Status)
}

func TestLookupUserByEmail_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	got := c.LookupUserByEmail(context.Background(), "a@b.com")
	require.Error(t, got.Err)
	assert.Equal(t, "ServiceNow error: 502", got.Err.Error())
}

func TestCreateIncident(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/now/table/incident", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "disk full", body["short_description"])
		assert.Equal(t, "the disk is full", body["description"])
		assert.Equal(t, "2", body["urgency"])
		assert.Equal(t, "a@b.com", body["caller_id"])

		writeResult(w, http.StatusCreated, map[string]string{"number": "INC0010001"})
	})

	number, err := c.CreateIncident(context.Background(), domain.NewIncident{
		Description:      "the disk is full",
		ShortDescription: "disk full",
		PriorityCode:     "2",
		Email:            "a@b.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "INC0010001", number)
}

func TestCreateIncident_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"Operation Failed"}}`))
	})

	_, err := c.CreateIncident(context.Background(), domain.NewIncident{})
	require.Error(t, err)
	assert.Equal(t, "Operation Failed", err.Error())
}

func TestRetrieveIncidentsByEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/now/table/sys_user":
			writeResult(w, http.StatusOK, []map[string]string{{"sys_id": "abc"}})
		case "/api/now/table/incident":
			assert.Equal(t, "caller_id=abc", r.URL.Query().Get("sysparm_query"))
			assert.Equal(t, "true", r.URL.Query().Get("sysparm_display_value"))
			writeResult(w, http.StatusOK, []map[string]string{
				{"number": "INC1", "short_description": "disk full", "opened_at": "2024-01-01 10:00:00", "state": "New"},
				{"number": "INC2", "short_description": "vpn", "opened_at": "2024-01-02 10:00:00", "state": "Closed"},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	incidents, err := c.RetrieveIncidentsByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Equal(t, "INC1", incidents[0].Number)
	assert.Equal(t, domain.IncidentNew, incidents[0].State)
	assert.Equal(t, domain.IncidentClosed, incidents[1].State)
	assert.Equal(t, "a@b.com", incidents[1].Email)
}

func TestRetrieveIncidentsByEmail_UnknownUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, http.StatusOK, []map[string]string{})
	})

	_, err := c.RetrieveIncidentsByEmail(context.Background(), "nobody@b.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody@b.com")
}

func TestLookupUserByEmail_QuerySeparatorNeverSent(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("sysparm_query"))
		writeResult(w, http.StatusOK, []map[string]string{{"sys_id": "admin-sys-id"}})
	})
	ctx := context.Background()

	got := c.LookupUserByEmail(ctx, "nobody@x.com^ORuser_name=admin")
	assert.NoError(t, got.Err)
	assert.Empty(t, got.CallerID)
	assert.Equal(t, []string{}, got.Matches)

	_, err := c.RetrieveIncidentsByEmail(ctx, "nobody@x.com^ORuser_name=admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not find a unique ServiceNow user")

	assert.Empty(t, queries)
}
