package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/config"
	"github.com/tork-crm/tork-api/internal/domain"
	"go.uber.org/zap"
)

type revokedSet map[string]bool

func (s revokedSet) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s[tokenID], nil
}

func newTestMiddleware(t *testing.T, webhook config.WebhookConfig, revoked RevocationChecker) (*Middleware, *TokenManager) {
	tokens := newTestTokenManager(t)
	cfg := &config.Config{ApiKey: config.ApiKeyConfig{Value: "admin-key"}, Webhook: webhook}
	return NewMiddleware(cfg, tokens, revoked, zap.NewNop()), tokens
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = io.WriteString(w, string(user.Role))
	})
}

func TestAuthenticate(t *testing.T) {
	revoked := revokedSet{}
	m, tokens := newTestMiddleware(t, config.WebhookConfig{}, revoked)
	handler := m.Authenticate(echoUser())

	token, _, err := tokens.Issue(testUser())
	require.NoError(t, err)

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, string(domain.UserRoleBroker), rr.Body.String())
	})

	t.Run("api key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
		req.Header.Set("x-api-key", "admin-key")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, string(domain.UserRoleAdmin), rr.Body.String())
	})

	t.Run("wrong api key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
		req.Header.Set("x-api-key", "guess")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		userCtx, err := tokens.Validate(token)
		require.NoError(t, err)
		revoked[userCtx.TokenID] = true

		req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	m, _ := newTestMiddleware(t, config.WebhookConfig{}, nil)
	handler := m.RequireRole(domain.UserRoleAdmin)(echoUser())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/crm/stages", nil)
	req = req.WithContext(WithUserContext(req.Context(), &UserContext{Role: domain.UserRoleBroker}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = req.WithContext(WithUserContext(req.Context(), SystemContext("System")))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookGuard(t *testing.T) {
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	m, _ := newTestMiddleware(t, config.WebhookConfig{ApiKey: "hook-key", SigningSecret: "hook-secret"}, nil)
	m.now = func() time.Time { return now }

	var seenBody string
	handler := m.WebhookGuard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"nome":"Ana","telefone":"5511999990001"}`
	ts := strconv.FormatInt(now.Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	req.Header.Set("x-api-key", "hook-key")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", SignHex("hook-secret", ts, []byte(body)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, body, seenBody, "body is restored for the handler")

	req = httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	req.Header.Set("x-api-key", "hook-key")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", SignHex("wrong", ts, []byte(body)))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookGuard_OpenWhenUnconfigured(t *testing.T) {
	m, _ := newTestMiddleware(t, config.WebhookConfig{}, nil)
	handler := m.WebhookGuard(echoUser())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
}
