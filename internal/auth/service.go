package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"spaceshop-server/internal/shared/errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence surface the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	InviteUser(ctx context.Context, email string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*User, string, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type Service struct {
	store           UserStore
	jwtSecret       string
	tokenExpiration time.Duration
	// serviceKey gates the elevated directory operations (invite). The
	// gift workflow cannot provision recipients without it.
	serviceKey string
	logger     *slog.Logger
}

func NewService(store UserStore, jwtSecret string, tokenExpiration time.Duration, serviceKey string, logger *slog.Logger) *Service {
	logger.Debug("Initializing auth service", "gift_directory_configured", serviceKey != "")

	return &Service{
		store:           store,
		jwtSecret:       jwtSecret,
		tokenExpiration: tokenExpiration,
		serviceKey:      serviceKey,
		logger:          logger,
	}
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*User, error) {
	logger := s.logger.With("component", "auth_service", "operation", "sign_up", "email", email)

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.Validation("a valid email is required")
	}
	if len(password) < 6 {
		return nil, errors.Validation("password must be at least 6 characters")
	}

	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, errors.WrapExternal("failed to check existing account", err)
	}
	if existing != nil {
		return nil, errors.Conflict("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.WrapInternal("failed to hash password", err)
	}

	user, err := s.store.CreateUser(ctx, email, string(hash))
	if err != nil {
		return nil, errors.WrapExternal("failed to create account", err)
	}

	logger.Info("Account created", "user_id", user.ID)
	return user, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	logger := s.logger.With("component", "auth_service", "operation", "sign_in", "email", email)

	user, hash, err := s.store.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return nil, errors.WrapExternal("failed to load account", err)
	}
	if user == nil || hash == "" {
		return nil, errors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		logger.Warn("Password mismatch")
		return nil, errors.Unauthorized("invalid email or password")
	}

	token, expiresAt, err := GenerateJWT(s.jwtSecret, user, s.tokenExpiration)
	if err != nil {
		return nil, errors.WrapInternal("failed to issue token", err)
	}

	logger.Info("User signed in", "user_id", user.ID)
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// GetUserFromToken validates a bearer token and resolves the live
// account behind it.
func (s *Service) GetUserFromToken(ctx context.Context, token string) (*User, error) {
	claims, err := ValidateJWT(s.jwtSecret, token)
	if err != nil {
		return nil, errors.Unauthorized("invalid token")
	}

	tokenUser, err := claims.User()
	if err != nil {
		return nil, errors.Unauthorized("invalid token")
	}

	user, err := s.store.GetUserByID(ctx, tokenUser.ID)
	if err != nil {
		return nil, errors.WrapExternal("failed to load account", err)
	}
	if user == nil {
		return nil, errors.Unauthorized("invalid token")
	}

	return user, nil
}

// GiftAvailable reports whether the elevated directory credential is
// configured. The gift workflow is refused entirely without it, even
// for recipients that already have an account.
func (s *Service) GiftAvailable() bool {
	return s.serviceKey != ""
}

// FindUserByEmail exposes the directory lookup used by the gift
// workflow. Returns nil when no account matches.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, errors.WrapExternal("failed to look up recipient", err)
	}
	return user, nil
}

// InviteUserByEmail provisions an unconfirmed account. This is the
// elevated-privilege path: without the service credential it fails
// before touching the store.
func (s *Service) InviteUserByEmail(ctx context.Context, email string) (*User, error) {
	if s.serviceKey == "" {
		return nil, errors.Unavailable("gifting requires the admin service credential")
	}

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.Validation("a valid recipient email is required")
	}

	user, err := s.store.InviteUser(ctx, email)
	if err != nil {
		return nil, errors.WrapExternal("failed to invite recipient", err)
	}
	if user == nil || user.ID == uuid.Nil {
		return nil, errors.External("recipient account could not be provisioned")
	}

	s.logger.Info("Recipient invited", "user_id", user.ID, "email", email)
	return user, nil
}
