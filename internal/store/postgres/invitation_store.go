package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

// InvitationStore implements store.InvitationStore using PostgreSQL.
type InvitationStore struct {
	pool *pgxpool.Pool
}

// NewInvitationStore creates a new PostgreSQL-backed invitation store.
func NewInvitationStore(pool *pgxpool.Pool) *InvitationStore {
	return &InvitationStore{pool: pool}
}

func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (
			invitation_id, org_id, email, role, token, invited_by, expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := s.pool.Exec(ctx, query,
		inv.InvitationID,
		inv.OrgID,
		inv.Email,
		inv.Role,
		inv.Token,
		inv.InvitedBy,
		inv.ExpiresAt,
		inv.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	log.Debug().
		Str("invitation_id", inv.InvitationID.String()).
		Str("org_id", inv.OrgID.String()).
		Msg("Created invitation")

	return nil
}

func (s *InvitationStore) GetValidByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `
		SELECT invitation_id, org_id, email, role, token, invited_by,
			expires_at, accepted_by, accepted_at, created_at
		FROM invitations
		WHERE token = $1 AND accepted_at IS NULL AND expires_at > now()
	`

	var inv models.Invitation
	err := s.pool.QueryRow(ctx, query, token).Scan(
		&inv.InvitationID,
		&inv.OrgID,
		&inv.Email,
		&inv.Role,
		&inv.Token,
		&inv.InvitedBy,
		&inv.ExpiresAt,
		&inv.AcceptedBy,
		&inv.AcceptedAt,
		&inv.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return &inv, nil
}

// Redeem consumes an invitation and provisions the invited user, their
// password credential and their membership in a single transaction. An
// existing account with the invited email is reused, so an invitation into a
// second organization only adds the credential and membership. The
// invitation row is locked so concurrent redemptions of the same token
// cannot both succeed.
func (s *InvitationStore) Redeem(ctx context.Context, params store.RedeemParams) (*store.Redeemed, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	var inv models.Invitation
	err = tx.QueryRow(ctx, `
		SELECT invitation_id, org_id, email, role
		FROM invitations
		WHERE token = $1 AND accepted_at IS NULL AND expires_at > now()
		FOR UPDATE
	`, params.Token).Scan(&inv.InvitationID, &inv.OrgID, &inv.Email, &inv.Role)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to lock invitation: %w", err)
	}

	now := time.Now()
	email := inv.Email

	// An invitation to a second organization reuses the existing account for
	// that email instead of tripping the unique email constraint.
	var user *models.User
	existing := &models.User{}
	err = tx.QueryRow(ctx, `
		SELECT user_id, email, display_name, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1) AND deleted_at IS NULL
	`, email).Scan(&existing.UserID, &existing.Email, &existing.DisplayName, &existing.CreatedAt, &existing.UpdatedAt)

	switch {
	case err == nil:
		user = existing
	case errors.Is(err, pgx.ErrNoRows):
		user = &models.User{
			UserID:      uuid.New(),
			Email:       &email,
			DisplayName: params.DisplayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO users (user_id, email, display_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, user.UserID, user.Email, user.DisplayName, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create invited user: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to find invited user: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO password_credentials (
			credential_id, user_id, org_id, username, password_hash, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, true, $6, $7)
	`, uuid.New(), user.UserID, inv.OrgID, params.Username, params.PasswordHash, now, now)
	if err != nil {
		if isUniqueViolation(err, "password_credentials_org_username_key") {
			return nil, store.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	membership := &models.Membership{
		UserID:    user.UserID,
		OrgID:     inv.OrgID,
		Role:      inv.Role,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (user_id, org_id, role, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, true, $4, $5)
		ON CONFLICT (user_id, org_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
	`, membership.UserID, membership.OrgID, membership.Role, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE invitations SET accepted_by = $2, accepted_at = $3
		WHERE invitation_id = $1
	`, inv.InvitationID, user.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invitation accepted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	log.Info().
		Str("invitation_id", inv.InvitationID.String()).
		Str("user_id", user.UserID.String()).
		Str("org_id", inv.OrgID.String()).
		Msg("Redeemed invitation")

	return &store.Redeemed{
		User:       user,
		Membership: membership,
		OrgID:      inv.OrgID,
	}, nil
}
