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

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with the other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{pool: pool}
}

func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (
			org_id, name, slug, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.Slug,
		org.CreatedAt,
		org.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "organizations_slug_key") {
			return store.ErrSlugTaken
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("slug", org.Slug).
		Msg("Created organization")

	return nil
}

func (s *OrganizationStore) GetByID(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT org_id, name, slug, created_at, updated_at, deleted_at
		FROM organizations
		WHERE org_id = $1 AND deleted_at IS NULL
	`

	return s.scanOne(ctx, query, orgID)
}

func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	query := `
		SELECT org_id, name, slug, created_at, updated_at, deleted_at
		FROM organizations
		WHERE slug = $1 AND deleted_at IS NULL
	`

	return s.scanOne(ctx, query, slug)
}

func (s *OrganizationStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*store.OrganizationWithRole, error) {
	query := `
		SELECT o.org_id, o.name, o.slug, o.created_at, o.updated_at, o.deleted_at, m.role
		FROM organizations o
		JOIN memberships m ON m.org_id = o.org_id
		WHERE m.user_id = $1 AND o.deleted_at IS NULL
		ORDER BY o.created_at
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var result []*store.OrganizationWithRole
	for rows.Next() {
		var org models.Organization
		var role string
		if err := rows.Scan(&org.OrgID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt, &org.DeletedAt, &role); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		result = append(result, &store.OrganizationWithRole{Organization: &org, Role: role})
	}

	return result, rows.Err()
}

func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()

	query := `
		UPDATE organizations SET
			name = $2,
			slug = $3,
			updated_at = $4
		WHERE org_id = $1 AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.Slug,
		org.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "organizations_slug_key") {
			return store.ErrSlugTaken
		}
		return fmt.Errorf("failed to update organization: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Msg("Updated organization")

	return nil
}

func (s *OrganizationStore) scanOne(ctx context.Context, query string, arg any) (*models.Organization, error) {
	var org models.Organization
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&org.OrgID,
		&org.Name,
		&org.Slug,
		&org.CreatedAt,
		&org.UpdatedAt,
		&org.DeletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}
