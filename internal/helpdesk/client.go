// Package helpdesk is the HTTP client for the Chatwoot account that mirrors
// CRM contacts and authenticates brokers.
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tork-crm/tork-api/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when no access token is configured
	ErrNotConfigured = errors.New("helpdesk access token not configured")

	// ErrInvalidCredentials is returned when sign-in is rejected
	ErrInvalidCredentials = errors.New("invalid helpdesk credentials")

	// ErrUserExists is returned when the platform API reports a duplicate user (422)
	ErrUserExists = errors.New("helpdesk user already exists")
)

// StatusError is a non-2xx helpdesk response
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("helpdesk %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Contact is a helpdesk contact record
type Contact struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Identifier  string `json:"identifier,omitempty"`
}

// ContactPayload is the create/update body. Empty keys are omitted.
type ContactPayload struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Agent is a helpdesk user as returned by sign-in and the platform API
type Agent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// Client talks to one helpdesk account
type Client struct {
	baseURL       string
	accountID     string
	accessToken   string
	platformToken string
	httpClient    *http.Client
	maxRetries    uint64
	retryBase     time.Duration
	logger        *zap.Logger
}

// NewClient creates a helpdesk client. Every request is bounded by helpdesk.timeout.
func NewClient(cfg *config.HelpdeskConfig, logger *zap.Logger) *Client {
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		accountID:     cfg.AccountID,
		accessToken:   cfg.AccessToken,
		platformToken: cfg.PlatformToken,
		httpClient:    &http.Client{Timeout: timeout},
		maxRetries:    uint64(maxRetries),
		retryBase:     200 * time.Millisecond,
		logger:        logger,
	}
}

// Enabled reports whether contact operations can be performed
func (c *Client) Enabled() bool {
	return c.accessToken != ""
}

// SearchContacts runs a free-text contact search
func (c *Client) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	var resp struct {
		Payload []Contact `json:"payload"`
	}
	path := c.accountPath("/contacts/search?q=" + url.QueryEscape(query))
	if err := c.do(ctx, http.MethodGet, path, c.accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// ListContacts returns one page of contacts; an empty slice means no more pages
func (c *Client) ListContacts(ctx context.Context, page int) ([]Contact, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	var resp struct {
		Payload []Contact `json:"payload"`
	}
	path := c.accountPath("/contacts?page=" + strconv.Itoa(page))
	if err := c.do(ctx, http.MethodGet, path, c.accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// CreateContact creates a helpdesk contact
func (c *Client) CreateContact(ctx context.Context, payload ContactPayload) (*Contact, error) {
	var resp struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := c.do(ctx, http.MethodPost, c.accountPath("/contacts"), c.accessToken, payload, &resp); err != nil {
		return nil, err
	}
	return decodeContactPayload(resp.Payload)
}

// UpdateContact replaces name and keys of an existing contact
func (c *Client) UpdateContact(ctx context.Context, id int64, payload ContactPayload) (*Contact, error) {
	var resp struct {
		Payload json.RawMessage `json:"payload"`
	}
	path := c.accountPath("/contacts/" + strconv.FormatInt(id, 10))
	if err := c.do(ctx, http.MethodPut, path, c.accessToken, payload, &resp); err != nil {
		return nil, err
	}
	return decodeContactPayload(resp.Payload)
}

// UpsertContact searches by email first, otherwise by phone, and updates the
// first hit or creates a new contact. Repeating it converges on one record.
func (c *Client) UpsertContact(ctx context.Context, payload ContactPayload) (*Contact, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	query := payload.Email
	if query == "" {
		query = payload.PhoneNumber
	}

	if query != "" {
		hits, err := c.SearchContacts(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to search helpdesk contacts: %w", err)
		}
		if len(hits) > 0 {
			c.logger.Debug("helpdesk contact exists, updating", zap.Int64("helpdesk_contact_id", hits[0].ID))
			return c.UpdateContact(ctx, hits[0].ID, payload)
		}
	}

	return c.CreateContact(ctx, payload)
}

// SignIn verifies agent credentials. Any non-2xx answer is ErrInvalidCredentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Agent, error) {
	var resp struct {
		Data *Agent `json:"data"`
	}
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/sign_in", "", body, &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if resp.Data == nil || resp.Data.Email == "" {
		return nil, ErrInvalidCredentials
	}
	return resp.Data, nil
}

// CreateAgent creates a platform user and links it to the account as an agent
func (c *Client) CreateAgent(ctx context.Context, name, email, password string) (*Agent, error) {
	if c.platformToken == "" {
		return nil, errors.New("helpdesk platform token not configured")
	}

	var agent Agent
	body := map[string]string{"name": name, "email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/platform/api/v1/users", c.platformToken, body, &agent)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnprocessableEntity {
			return nil, ErrUserExists
		}
		return nil, err
	}

	link := map[string]interface{}{"user_id": agent.ID, "role": "agent"}
	path := "/platform/api/v1/accounts/" + url.PathEscape(c.accountID) + "/account_users"
	if err := c.do(ctx, http.MethodPost, path, c.platformToken, link, nil); err != nil {
		return nil, fmt.Errorf("failed to add agent to account: %w", err)
	}
	return &agent, nil
}

func (c *Client) accountPath(suffix string) string {
	return "/api/v1/accounts/" + url.PathEscape(c.accountID) + suffix
}

// do sends one request, retrying network errors, 429 and 5xx with
// exponential backoff. out may be nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode helpdesk request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("api_access_token", token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &StatusError{Method: method, Path: stripQuery(path), StatusCode: resp.StatusCode, Body: truncate(string(raw), 300)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}

		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode helpdesk response: %w", err)
		}
		return nil
	})
}

// decodeContactPayload accepts both {"contact": {...}} and a bare contact
func decodeContactPayload(raw json.RawMessage) (*Contact, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty helpdesk contact payload")
	}
	var wrapped struct {
		Contact *Contact `json:"contact"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Contact != nil {
		return wrapped.Contact, nil
	}
	var contact Contact
	if err := json.Unmarshal(raw, &contact); err != nil {
		return nil, fmt.Errorf("failed to decode helpdesk contact: %w", err)
	}
	return &contact, nil
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
