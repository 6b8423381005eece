package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/helpdesk"
	"github.com/tork-crm/tork-api/internal/mapper"
	"github.com/tork-crm/tork-api/internal/repository"
	"go.uber.org/zap"
)

const helpdeskAdminRole = "administrator"

// IdentityProvider verifies and creates helpdesk agents
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*helpdesk.Agent, error)
	CreateAgent(ctx context.Context, name, email, password string) (*helpdesk.Agent, error)
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// TokenRevoker denies a token until it expires
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

// AuthService signs users in through the helpdesk and keeps a local mirror
// of them. No password is stored locally.
type AuthService struct {
	identity IdentityProvider
	userRepo *repository.UserRepository
	tokens   TokenIssuer
	revoked  TokenRevoker
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	identity IdentityProvider,
	userRepo *repository.UserRepository,
	tokens TokenIssuer,
	revoked TokenRevoker,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		identity: identity,
		userRepo: userRepo,
		tokens:   tokens,
		revoked:  revoked,
		logger:   logger,
		now:      time.Now,
	}
}

// Login verifies the credentials with the helpdesk, refreshes the local user
// and issues a token. Bad credentials yield ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Login()))
	if email == "" || req.Password == "" {
		return nil, ErrUnauthorized
	}

	agent, err := s.identity.SignIn(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, helpdesk.ErrInvalidCredentials) {
			s.logger.Info("Helpdesk rejected credentials", zap.String("email", email))
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", ErrHelpdeskUnavailable, err)
	}

	name := displayName(agent, email)
	role := domain.UserRoleBroker
	if agent.Role == helpdeskAdminRole {
		role = domain.UserRoleAdmin
	}
	loginAt := s.now().UTC()

	user, err := s.userRepo.Upsert(ctx, &domain.User{
		Email:       email,
		Name:        name,
		Role:        role,
		HelpdeskID:  helpdeskID(agent),
		LastLoginAt: &loginAt,
	}, func(existing *domain.User) {
		existing.Name = name
		existing.LastLoginAt = &loginAt
		if existing.HelpdeskID == nil {
			existing.HelpdeskID = helpdeskID(agent)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      mapper.ToUserDTO(user),
	}, nil
}

// Register creates the helpdesk agent, then the local user. An agent that
// already exists in the helpdesk is not an error.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: missing fields", ErrInvalidInput)
	}

	agent, err := s.identity.CreateAgent(ctx, name, email, req.Password)
	switch {
	case errors.Is(err, helpdesk.ErrUserExists):
		s.logger.Warn("Helpdesk user already exists, syncing local user", zap.String("email", email))
	case err != nil:
		s.logger.Error("Helpdesk user creation failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrHelpdeskUnavailable, err)
	}

	user, err := s.userRepo.Upsert(ctx, &domain.User{
		Email:      email,
		Name:       name,
		Role:       domain.UserRoleBroker,
		HelpdeskID: helpdeskID(agent),
	}, func(existing *domain.User) {
		existing.Name = name
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}

	return &domain.RegisterResponse{
		Success: true,
		User:    mapper.ToUserDTO(user),
	}, nil
}

// Logout revokes the caller's token until it would have expired
func (s *AuthService) Logout(ctx context.Context, user *auth.UserContext) error {
	if user == nil || user.TokenID == "" {
		return nil
	}
	if err := s.revoked.Revoke(ctx, user.TokenID, user.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// displayName prefers the agent name, then its display name, then the
// local part of the e-mail
func displayName(agent *helpdesk.Agent, email string) string {
	if agent != nil {
		if name := strings.TrimSpace(agent.Name); name != "" {
			return name
		}
		if name := strings.TrimSpace(agent.DisplayName); name != "" {
			return name
		}
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func helpdeskID(agent *helpdesk.Agent) *int64 {
	if agent == nil || agent.ID == 0 {
		return nil
	}
	id := agent.ID
	return &id
}
