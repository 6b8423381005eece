package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tork-crm/tork-api/internal/domain"
)

// SystemUserID identifies requests authenticated with the API key
var SystemUserID = uuid.Nil

// UserContext holds authenticated user information
type UserContext struct {
	UserID    uuid.UUID
	Name      string
	Email     string
	Role      domain.UserRole
	TokenID   string
	ExpiresAt time.Time
	IsSystem  bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasRole checks if user has one of the given roles. System callers pass every check.
func (u *UserContext) HasRole(roles ...domain.UserRole) bool {
	if u.IsSystem {
		return true
	}
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// IsAdmin checks if user can change pipeline configuration
func (u *UserContext) IsAdmin() bool {
	return u.HasRole(domain.UserRoleAdmin)
}

// SystemContext returns the identity used for API key and webhook callers
func SystemContext(name string) *UserContext {
	return &UserContext{
		UserID:   SystemUserID,
		Name:     name,
		Email:    "system@torkcrm.com.br",
		Role:     domain.UserRoleAdmin,
		IsSystem: true,
	}
}

// Actor returns the id and display name recorded in audit rows
func Actor(ctx context.Context) (string, string) {
	user, ok := FromContext(ctx)
	if !ok {
		return "system", "System"
	}
	if user.IsSystem {
		return "system", user.Name
	}
	return user.UserID.String(), user.Name
}
