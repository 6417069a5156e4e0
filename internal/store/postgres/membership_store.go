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

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func (s *MembershipStore) Get(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT user_id, org_id, role, is_default, created_at, updated_at
		FROM memberships
		WHERE user_id = $1 AND org_id = $2
	`

	var m models.Membership
	err := s.pool.QueryRow(ctx, query, userID, orgID).Scan(
		&m.UserID,
		&m.OrgID,
		&m.Role,
		&m.IsDefault,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &m, nil
}

func (s *MembershipStore) Upsert(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (user_id, org_id, role, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, org_id)
		DO UPDATE SET
			role = EXCLUDED.role,
			is_default = EXCLUDED.is_default,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		membership.UserID,
		membership.OrgID,
		membership.Role,
		membership.IsDefault,
		membership.CreatedAt,
		membership.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}

	log.Debug().
		Str("user_id", membership.UserID.String()).
		Str("org_id", membership.OrgID.String()).
		Str("role", membership.Role).
		Msg("Upserted membership")

	return nil
}

func (s *MembershipStore) SetRole(ctx context.Context, userID, orgID uuid.UUID, role string) error {
	query := `
		UPDATE memberships SET role = $3, updated_at = now()
		WHERE user_id = $1 AND org_id = $2
	`

	result, err := s.pool.Exec(ctx, query, userID, orgID, role)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

func (s *MembershipStore) Delete(ctx context.Context, userID, orgID uuid.UUID) error {
	query := `
		DELETE FROM memberships
		WHERE user_id = $1 AND org_id = $2
	`

	result, err := s.pool.Exec(ctx, query, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

func (s *MembershipStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*store.Member, error) {
	query := `
		SELECT m.user_id, COALESCE(u.email, ''), u.display_name, m.role, m.created_at
		FROM memberships m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.org_id = $1 AND u.deleted_at IS NULL
		ORDER BY m.created_at
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*store.Member
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.DisplayName, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}

	return members, rows.Err()
}

func (s *MembershipStore) CountAdmins(ctx context.Context, orgID uuid.UUID) (int, error) {
	query := `
		SELECT count(*) FROM memberships
		WHERE org_id = $1 AND role = 'admin'
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}

	return count, nil
}
