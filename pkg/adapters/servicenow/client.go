// Package servicenow is a TicketClient for the ServiceNow Table API.
//
// Every call is a single HTTP request without retries. Error payloads of the
// form {"error": {"message": "..."}} are surfaced as *domain.BackendError so
// their text reaches the user verbatim.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 30 * time.Second

// Config holds the instance coordinates and credentials.
type Config struct {
	// Instance is the ServiceNow instance name, e.g. "dev12345".
	Instance string
	// BaseURL overrides the URL derived from Instance (up to and including /api/now).
	BaseURL  string
	User     string
	Password string
	Timeout  time.Duration
	// Priorities overrides the label to urgency-code vocabulary.
	Priorities domain.PriorityVocabulary
}

// Client implements ports.TicketClient.
type Client struct {
	baseURL    string
	user       string
	password   string
	priorities domain.PriorityVocabulary
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.TicketClient = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a ServiceNow client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		if cfg.Instance == "" {
			return nil, fmt.Errorf("servicenow: instance or base url required")
		}
		base = fmt.Sprintf("https://%s.service-now.com/api/now", cfg.Instance)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	priorities := cfg.Priorities
	if len(priorities) == 0 {
		priorities = domain.DefaultPriorities
	}

	c := &Client{
		baseURL:    base,
		user:       cfg.User,
		password:   cfg.Password,
		priorities: priorities,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type userRow struct {
	SysID string `json:"sys_id"`
}

type incidentRow struct {
	Number           string `json:"number"`
	Description      string `json:"description"`
	ShortDescription string `json:"short_description"`
	Priority         string `json:"priority"`
	OpenedAt         string `json:"opened_at"`
	State            string `json:"state"`
}

type createdRow struct {
	Number string `json:"number"`
}

// LookupUserByEmail resolves email to a sys_user sys_id.
// An email carrying the encoded-query separator matches no user and is never sent.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) ports.UserLookup {
	if strings.Contains(email, "^") {
		c.logger.Warn("rejected email with query separator", "email", email)
		return ports.UserLookup{Matches: []string{}}
	}

	q := url.Values{}
	q.Set("sysparm_query", "email="+email)
	q.Set("sysparm_fields", "sys_id")

	var rows []userRow
	if err := c.do(ctx, http.MethodGet, "/table/sys_user?"+q.Encode(), nil, &rows); err != nil {
		return ports.UserLookup{Err: err}
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.SysID)
	}
	if len(ids) == 1 {
		return ports.UserLookup{CallerID: ids[0]}
	}
	return ports.UserLookup{Matches: ids}
}

// PriorityVocabulary returns the configured label to urgency mapping.
func (c *Client) PriorityVocabulary() domain.PriorityVocabulary {
	return c.priorities
}

// CreateIncident opens an incident on behalf of the caller identified by email.
func (c *Client) CreateIncident(ctx context.Context, inc domain.NewIncident) (string, error) {
	body := map[string]string{
		"short_description": inc.ShortDescription,
		"description":       inc.Description,
		"urgency":           inc.PriorityCode,
		"caller_id":         inc.Email,
	}

	var created createdRow
	path := "/table/incident?sysparm_input_display_value=true&sysparm_fields=number"
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return "", err
	}
	if created.Number == "" {
		return "", domain.NewBackendError(0, "ServiceNow did not return an incident number")
	}
	return created.Number, nil
}

// RetrieveIncidentsByEmail lists the incidents whose caller has the given email.
func (c *Client) RetrieveIncidentsByEmail(ctx context.Context, email string) ([]domain.Incident, error) {
	lookup := c.LookupUserByEmail(ctx, email)
	if lookup.Err != nil {
		return nil, lookup.Err
	}
	if lookup.CallerID == "" {
		return nil, domain.NewBackendError(0, "Could not find a unique ServiceNow user for %s", email)
	}

	q := url.Values{}
	q.Set("sysparm_query", "caller_id="+lookup.CallerID)
	q.Set("sysparm_display_value", "true")
	q.Set("sysparm_fields", "number,description,short_description,priority,opened_at,state")

	var rows []incidentRow
	if err := c.do(ctx, http.MethodGet, "/table/incident?"+q.Encode(), nil, &rows); err != nil {
		return nil, err
	}

	incidents := make([]domain.Incident, 0, len(rows))
	for _, r := range rows {
		incidents = append(incidents, domain.Incident{
			Number:           r.Number,
			Description:      r.Description,
			ShortDescription: r.ShortDescription,
			Priority:         r.Priority,
			Email:            email,
			OpenedAt:         r.OpenedAt,
			State:            domain.IncidentState(r.State),
		})
	}
	return incidents, nil
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "servicenow request failed", "method", method, "path", req.URL.Path, "err", err)
		return domain.NewBackendError(0, "Could not reach ServiceNow: %v", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "servicenow request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if decodeErr == nil && env.Error != nil && env.Error.Message != "" {
			return domain.NewBackendError(resp.StatusCode, "%s", env.Error.Message)
		}
		return domain.NewBackendError(resp.StatusCode, "ServiceNow error: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
