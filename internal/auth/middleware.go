package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tork-crm/tork-api/internal/config"
	"github.com/tork-crm/tork-api/internal/domain"
	"go.uber.org/zap"
)

// maxSignedBodyBytes caps the body read for signature verification
const maxSignedBodyBytes = 1 << 20

// RevocationChecker reports whether a token id was revoked by logout
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	tokens  *TokenManager
	revoked RevocationChecker
	apiKey  string
	webhook config.WebhookConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.Config, tokens *TokenManager, revoked RevocationChecker, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens:  tokens,
		revoked: revoked,
		apiKey:  cfg.ApiKey.Value,
		webhook: cfg.Webhook,
		logger:  logger,
		now:     time.Now,
	}
}

// Authenticate requires a Bearer session token or the system API key
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if !constantTimeEqual(apiKey, m.apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := WithUserContext(r.Context(), SystemContext("System"))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token, ok := BearerToken(r)
		if !ok {
			http.Error(w, "Unauthorized: missing or malformed authorization header", http.StatusUnauthorized)
			return
		}

		userCtx, err := m.tokens.Validate(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		if m.revoked != nil && userCtx.TokenID != "" {
			revoked, err := m.revoked.IsRevoked(r.Context(), userCtx.TokenID)
			if err != nil {
				// denylist unavailable: fail open, the token is still signed and unexpired
				m.logger.Error("token revocation check failed", zap.Error(err))
			} else if revoked {
				http.Error(w, "Unauthorized: "+ErrRevokedToken.Error(), http.StatusUnauthorized)
				return
			}
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", userCtx.UserID.String()),
			zap.String("role", string(userCtx.Role)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireRole middleware ensures user has specific role
func (m *Middleware) RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, "Forbidden: no user context", http.StatusForbidden)
				return
			}

			if !userCtx.HasRole(roles...) {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WebhookGuard protects inbound webhooks. The x-api-key header is checked
// when webhook.apiKey is set, and an HMAC signature when webhook.signingSecret is set.
// With neither configured the route is open, as lead-capture forms expect.
func (m *Middleware) WebhookGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.webhook.ApiKey != "" && !constantTimeEqual(r.Header.Get("x-api-key"), m.webhook.ApiKey) {
			m.logger.Warn("webhook rejected: bad api key",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeWebhookError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if m.webhook.SigningSecret != "" {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes))
			if err != nil {
				writeWebhookError(w, http.StatusBadRequest, "Invalid body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			err = VerifySignature(SignatureInput{
				Secret:          m.webhook.SigningSecret,
				TimestampHeader: r.Header.Get("X-Timestamp"),
				SignatureHeader: r.Header.Get("X-Signature"),
				Body:            body,
				Now:             m.now(),
				Window:          m.webhook.SignatureWindowDuration(),
			})
			if err != nil {
				m.logger.Warn("webhook rejected: bad signature",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeWebhookError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		ctx := WithUserContext(r.Context(), SystemContext("Webhook"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an Authorization header
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func constantTimeEqual(provided, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.WebhookError{Error: message})
}
