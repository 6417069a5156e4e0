package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			user_id, email, display_name, avatar_url, superadmin, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.pool.Exec(ctx, query,
		user.UserID,
		user.Email,
		user.DisplayName,
		user.AvatarURL,
		user.Superadmin,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Debug().
		Str("user_id", user.UserID.String()).
		Msg("Created user")

	return nil
}

func (s *UserStore) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := userSelect + ` WHERE user_id = $1 AND deleted_at IS NULL`
	return s.scanOne(ctx, query, userID)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := userSelect + ` WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	return s.scanOne(ctx, query, email)
}

// UpsertFromSSO creates or refreshes a user from a verified identity provider
// profile, keyed on email.
func (s *UserStore) UpsertFromSSO(ctx context.Context, profile store.SSOProfile) (*models.User, error) {
	query := `
		INSERT INTO users (email, display_name, avatar_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (lower(email)) WHERE email IS NOT NULL AND deleted_at IS NULL
		DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now()
		RETURNING user_id, email, display_name, avatar_url, superadmin, created_at, updated_at, deleted_at
	`

	var user models.User
	err := s.pool.QueryRow(ctx, query, profile.Email, profile.DisplayName, profile.AvatarURL).Scan(
		&user.UserID,
		&user.Email,
		&user.DisplayName,
		&user.AvatarURL,
		&user.Superadmin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user from sso profile: %w", err)
	}

	return &user, nil
}

func (s *UserStore) CreateCredential(ctx context.Context, cred *models.PasswordCredential) error {
	query := `
		INSERT INTO password_credentials (
			credential_id, user_id, org_id, username, password_hash, enabled, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := s.pool.Exec(ctx, query,
		cred.CredentialID,
		cred.UserID,
		cred.OrgID,
		cred.Username,
		cred.PasswordHash,
		cred.Enabled,
		cred.CreatedAt,
		cred.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "password_credentials_org_username_key") {
			return store.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

// FindCredentials returns all enabled credentials with the given username.
// Usernames are unique per organization, not globally, so several may match.
func (s *UserStore) FindCredentials(ctx context.Context, username string) ([]*models.PasswordCredential, error) {
	query := `
		SELECT credential_id, user_id, org_id, username, password_hash, enabled, created_at, updated_at
		FROM password_credentials
		WHERE username = $1 AND enabled
	`

	rows, err := s.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find credentials: %w", err)
	}
	defer rows.Close()

	var result []*models.PasswordCredential
	for rows.Next() {
		var cred models.PasswordCredential
		if err := rows.Scan(
			&cred.CredentialID,
			&cred.UserID,
			&cred.OrgID,
			&cred.Username,
			&cred.PasswordHash,
			&cred.Enabled,
			&cred.CreatedAt,
			&cred.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		result = append(result, &cred)
	}

	return result, rows.Err()
}

const userSelect = `
	SELECT user_id, email, display_name, avatar_url, superadmin, created_at, updated_at, deleted_at
	FROM users
`

func (s *UserStore) scanOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.UserID,
		&user.Email,
		&user.DisplayName,
		&user.AvatarURL,
		&user.Superadmin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
