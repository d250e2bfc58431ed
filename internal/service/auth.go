package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *tokens.Issuer
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Image    Upload
}

type LoginResult struct {
	User    *models.User
	Token   string
	Expires time.Time
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Register always creates a Customer; roles are never taken from input.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" {
		return nil, invalid("Username is required")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, invalid("A valid email is required")
	}
	if len(in.Password) < 6 {
		return nil, invalid("Password must be at least 6 characters")
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleCustomer,
		Image:        in.Image.Data,
		ImageType:    in.Image.ContentType,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, err
	}
	return &user, nil
}

// Login fails with ErrInvalidCredentials without saying which part was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(notFound(err, "user"), ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, Expires: exp}, nil
}

// Resolve maps a session token to the current user record.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.Repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *AuthService) Avatar(ctx context.Context, rawID string) (*models.User, error) {
	id, err := parseID(rawID, "user")
	if err != nil {
		return nil, err
	}
	u, err := s.Repo.GetUserImage(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if len(u.Image) == 0 {
		return nil, fmt.Errorf("avatar: %w", ErrNotFound)
	}
	return u, nil
}

// EnsureAdmin creates the admin account or promotes an existing one.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	u, err := s.Register(ctx, RegisterInput{Username: username, Email: email, Password: password})
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict):
		u, err = s.Repo.GetUserByEmail(ctx, normalizeEmail(email))
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if err := s.Repo.SetUserRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return nil, err
	}
	u.Role = models.RoleAdmin
	return u, nil
}
