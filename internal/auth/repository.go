package auth

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"spaceshop-server/internal/shared/database"

	"github.com/google/uuid"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing user repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

const userColumns = "id, email, confirmed, invited_at, created_at, updated_at"

func scanUser(row *sql.Row) (*User, string, error) {
	var user User
	var passwordHash sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&passwordHash,
		&user.Confirmed,
		&user.InvitedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, "", err
	}
	return &user, passwordHash.String, nil
}

// CreateUser inserts a confirmed-pending account with a password hash.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	logger := r.logger.With("component", "user_repository", "operation", "create", "email", email)
	logger.Info("Creating user account")

	query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	var user User
	err := r.db.QueryRowContext(ctx, query, email, passwordHash).Scan(
		&user.ID,
		&user.Email,
		&user.Confirmed,
		&user.InvitedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		logger.Error("Failed to create user", "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("User created successfully", "user_id", user.ID)
	return &user, nil
}

// InviteUser provisions an unconfirmed account without credentials.
func (r *Repository) InviteUser(ctx context.Context, email string) (*User, error) {
	logger := r.logger.With("component", "user_repository", "operation", "invite", "email", email)
	logger.Info("Inviting user account")

	query := `
		INSERT INTO users (email, password_hash, confirmed, invited_at)
		VALUES ($1, NULL, FALSE, NOW())
		RETURNING ` + userColumns

	var user User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Confirmed,
		&user.InvitedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		logger.Error("Failed to invite user", "error", err)
		return nil, fmt.Errorf("failed to invite user: %w", err)
	}

	logger.Info("User invited successfully", "user_id", user.ID)
	return &user, nil
}

// FindUserByEmail returns nil when no account matches.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	logger := r.logger.With("component", "user_repository", "operation", "find_by_email", "email", email)
	logger.Debug("Finding user by email")

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`

	var user User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Confirmed,
		&user.InvitedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No user found with email")
			return nil, nil
		}
		logger.Error("Database error finding user by email", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &user, nil
}

// GetCredentialsByEmail returns the user and stored password hash for
// login checks. Both are nil/empty when no account matches.
func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*User, string, error) {
	logger := r.logger.With("component", "user_repository", "operation", "get_credentials", "email", email)
	logger.Debug("Loading credentials by email")

	query := `
		SELECT id, email, password_hash, confirmed, invited_at, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`

	user, hash, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No user found with email")
			return nil, "", nil
		}
		logger.Error("Database error loading credentials", "error", err)
		return nil, "", fmt.Errorf("database error: %w", err)
	}

	return user, hash, nil
}

// GetUserByID returns nil when no account matches.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	logger := r.logger.With("component", "user_repository", "operation", "get_by_id", "user_id", id)
	logger.Debug("Getting user by ID")

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	var user User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Confirmed,
		&user.InvitedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No user found with ID")
			return nil, nil
		}
		logger.Error("Database error getting user by ID", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &user, nil
}
