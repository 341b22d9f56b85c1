package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"security-console/internal/domain"
	"security-console/internal/ports"
)

const minPasswordLength = 8

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        domain.User `json:"user"`
}

type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenIssuer
	logger ports.Logger
}

func NewAuthService(users ports.UserRepository, tokens ports.TokenIssuer, logger ports.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidInput
	}
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	if s.tokens == nil {
		return LoginResult{}, fmt.Errorf("token issuing disabled: %w", domain.ErrUnsupportedOperation)
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt, User: user}, nil
}

// Me resolves the caller's local user. Identity-provider subjects are not
// local ids, so an unknown id falls back to the username.
func (s *AuthService) Me(ctx context.Context, principal domain.Principal) (domain.User, error) {
	if principal.UserID != "" {
		user, err := s.users.GetByID(ctx, principal.UserID)
		if err == nil || !errors.Is(err, domain.ErrNotFound) || principal.Username == "" {
			return user, err
		}
	}
	if principal.Username == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return s.users.GetByUsername(ctx, principal.Username)
}

func (s *AuthService) ChangePassword(ctx context.Context, principal domain.Principal, current, next string) error {
	if len(next) < minPasswordLength {
		return fmt.Errorf("new password must have at least %d characters: %w", minPasswordLength, domain.ErrInvalidInput)
	}
	user, err := s.Me(ctx, principal)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// EnsureDefaultAdmin creates the bootstrap admin account when no admin exists.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, password string) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.IsAdmin {
			return nil
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	admin := domain.User{
		ID:           "admin-001",
		Username:     "admin",
		Email:        "admin@securityconsole.local",
		FirstName:    "System",
		LastName:     "Administrator",
		PasswordHash: string(hash),
		Roles:        []string{"Admin"},
		ModuleAccess: append([]domain.ModuleType(nil), domain.ModuleTypes...),
		IsAdmin:      true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return err
	}
	s.logger.Warn(ctx, "created default admin user, change its password", "username", admin.Username)
	return nil
}
