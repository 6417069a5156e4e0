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
	"github.com/wolfeidau/logicore/internal/tenant"
)

// AccessRequestStore implements store.AccessRequestStore using PostgreSQL.
//
// Create and GetPending run before the requester has any tenant scope and
// are keyed on the requester's identity. The review operations take the
// reviewing admin's scope and refuse to touch requests outside it.
type AccessRequestStore struct {
	pool *pgxpool.Pool
}

// NewAccessRequestStore creates a new PostgreSQL-backed access request store.
func NewAccessRequestStore(pool *pgxpool.Pool) *AccessRequestStore {
	return &AccessRequestStore{pool: pool}
}

func (s *AccessRequestStore) Create(ctx context.Context, req *models.AccessRequest) error {
	query := `
		INSERT INTO access_requests (
			request_id, org_id, user_id, email, display_name, avatar_url,
			provider, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		req.RequestID,
		req.OrgID,
		req.UserID,
		req.Email,
		req.DisplayName,
		req.AvatarURL,
		req.Provider,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "access_requests_pending_key") {
			return store.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create access request: %w", err)
	}

	log.Debug().
		Str("request_id", req.RequestID.String()).
		Str("org_id", req.OrgID.String()).
		Msg("Created access request")

	return nil
}

func (s *AccessRequestStore) GetPending(ctx context.Context, userID, orgID uuid.UUID) (*models.AccessRequest, error) {
	query := accessRequestSelect + `
		WHERE user_id = $1 AND org_id = $2 AND status = 'pending'
	`

	req, err := s.scanOne(s.pool.QueryRow(ctx, query, userID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccessRequestNotFound
		}
		return nil, fmt.Errorf("failed to get pending access request: %w", err)
	}

	return req, nil
}

func (s *AccessRequestStore) List(ctx context.Context, scope tenant.Scope, statusFilter string) ([]*models.AccessRequest, error) {
	if !scope.HasOrg() {
		return nil, nil
	}

	query := accessRequestSelect + `
		WHERE org_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, scope.OrgID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessRequest
	for rows.Next() {
		req, err := s.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access request: %w", err)
		}
		result = append(result, req)
	}

	return result, rows.Err()
}

func (s *AccessRequestStore) Approve(ctx context.Context, scope tenant.Scope, requestID uuid.UUID, role string, reviewerID uuid.UUID) (*models.AccessRequest, error) {
	if !scope.HasOrg() {
		return nil, store.ErrAccessRequestNotFound
	}

	query := `
		UPDATE access_requests SET
			status = 'approved',
			role = $4,
			reviewed_by = $5,
			reviewed_at = now(),
			updated_at = now()
		WHERE request_id = $1 AND org_id = $2 AND status = $3
		RETURNING request_id, org_id, user_id, email, display_name, avatar_url,
			provider, status, role, reviewed_by, reviewed_at, created_at, updated_at
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	req, err := s.scanOne(tx.QueryRow(ctx, query,
		requestID, scope.OrgID, models.AccessRequestPending, role, reviewerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyMiss(ctx, scope, requestID)
		}
		return nil, fmt.Errorf("failed to approve access request: %w", err)
	}

	// The membership lands in the same transaction, an approved request can
	// never be stranded without one.
	_, err = tx.Exec(ctx, `
		INSERT INTO memberships (user_id, org_id, role, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, true, now(), now())
		ON CONFLICT (user_id, org_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
	`, req.UserID, req.OrgID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	log.Info().
		Str("request_id", requestID.String()).
		Str("role", role).
		Msg("Approved access request")

	return req, nil
}

func (s *AccessRequestStore) Decline(ctx context.Context, scope tenant.Scope, requestID uuid.UUID, reviewerID uuid.UUID) error {
	if !scope.HasOrg() {
		return store.ErrAccessRequestNotFound
	}

	query := `
		UPDATE access_requests SET
			status = 'declined',
			reviewed_by = $4,
			reviewed_at = now(),
			updated_at = now()
		WHERE request_id = $1 AND org_id = $2 AND status = $3
	`

	result, err := s.pool.Exec(ctx, query, requestID, scope.OrgID, models.AccessRequestPending, reviewerID)
	if err != nil {
		return fmt.Errorf("failed to decline access request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return s.classifyMiss(ctx, scope, requestID)
	}

	log.Info().
		Str("request_id", requestID.String()).
		Msg("Declined access request")

	return nil
}

// classifyMiss distinguishes a request that is outside the reviewer's org or
// does not exist from one that was already reviewed.
func (s *AccessRequestStore) classifyMiss(ctx context.Context, scope tenant.Scope, requestID uuid.UUID) error {
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT status FROM access_requests
		WHERE request_id = $1 AND org_id = $2
	`, requestID, scope.OrgID).Scan(&status)

	if err != nil {
		return store.ErrAccessRequestNotFound
	}

	return store.ErrRequestNotPending
}

const accessRequestSelect = `
	SELECT request_id, org_id, user_id, email, display_name, avatar_url,
		provider, status, role, reviewed_by, reviewed_at, created_at, updated_at
	FROM access_requests
`

func (s *AccessRequestStore) scanOne(row pgx.Row) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := row.Scan(
		&req.RequestID,
		&req.OrgID,
		&req.UserID,
		&req.Email,
		&req.DisplayName,
		&req.AvatarURL,
		&req.Provider,
		&req.Status,
		&req.Role,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &req, nil
}
