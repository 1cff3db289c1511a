package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/document-registry/internal/model"
	"github.com/iliyamo/document-registry/internal/repository"
	"github.com/iliyamo/document-registry/internal/utils"
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// AuthService registers users, checks credentials and issues/verifies
// bearer tokens.
type AuthService struct {
	users      UserStore
	tokens     *utils.TokenIssuer
	bcryptCost int
}

func NewAuthService(users UserStore, tokens *utils.TokenIssuer, bcryptCost int) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Lastname string
}

// Register hashes the password and persists the user.  The username is
// stored exactly as given (case-sensitive); only surrounding whitespace is
// trimmed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (uint64, error) {
	username := strings.TrimSpace(in.Username)
	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return 0, invalid("Please provide username and password", missing...)
	}
	if len(in.Password) > utils.MaxPasswordBytes {
		return 0, invalid(fmt.Sprintf("Password must be at most %d bytes", utils.MaxPasswordBytes), "password")
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.users.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Lastname:     strings.TrimSpace(in.Lastname),
	})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return 0, ErrConflict
		}
		return 0, err
	}
	slog.InfoContext(ctx, "user registered", "user_id", id, "username", username)
	return id, nil
}

// Login verifies the credentials and mints a token for the username.  An
// unknown username and a wrong password both yield ErrInvalidCredentials
// and cost one bcrypt comparison each.
func (s *AuthService) Login(ctx context.Context, username, password string) (utils.AccessToken, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return utils.AccessToken{}, invalid("Please provide username and password")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			utils.BurnPasswordCheck(password, s.bcryptCost)
			return utils.AccessToken{}, ErrInvalidCredentials
		}
		return utils.AccessToken{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return utils.AccessToken{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(u.Username)
}

// Principal is the authenticated caller extracted from a token.
type Principal struct {
	Username string
}

// Verify checks a raw bearer token.  It returns ErrUnauthenticated when raw
// is empty and ErrForbidden for a bad signature or an expired token.
func (s *AuthService) Verify(raw string) (Principal, error) {
	username, err := s.tokens.Verify(raw)
	switch {
	case err == nil:
		return Principal{Username: username}, nil
	case errors.Is(err, utils.ErrTokenMissing):
		return Principal{}, ErrUnauthenticated
	default:
		return Principal{}, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
}
