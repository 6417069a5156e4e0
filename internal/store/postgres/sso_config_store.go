package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// SSOConfigStore implements store.SSOConfigStore using PostgreSQL.
//
// ResolveProvider and LookupForLogin call the two SECURITY DEFINER functions
// installed by the schema migration. They are the only reads in the system
// that bypass tenant scope, and each returns only what its login step needs.
type SSOConfigStore struct {
	pool *pgxpool.Pool
}

// NewSSOConfigStore creates a new PostgreSQL-backed SSO config store.
func NewSSOConfigStore(pool *pgxpool.Pool) *SSOConfigStore {
	return &SSOConfigStore{pool: pool}
}

func (s *SSOConfigStore) ResolveProvider(ctx context.Context, provider, externalOrgID string) (*models.ResolvedSSOProvider, error) {
	query := `SELECT client_id, organization_name, app_id FROM sso_resolve_provider($1, $2)`

	var resolved models.ResolvedSSOProvider
	err := s.pool.QueryRow(ctx, query, provider, externalOrgID).Scan(
		&resolved.ClientID,
		&resolved.OrganizationName,
		&resolved.AppID,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSSOConfigNotFound
		}
		return nil, fmt.Errorf("failed to resolve sso provider: %w", err)
	}

	return &resolved, nil
}

func (s *SSOConfigStore) LookupForLogin(ctx context.Context, provider, clientID string) (*models.SSOLoginConfig, error) {
	query := `SELECT client_id, client_secret_encrypted, org_id, org_slug FROM sso_lookup_for_login($1, $2)`

	var cfg models.SSOLoginConfig
	err := s.pool.QueryRow(ctx, query, provider, clientID).Scan(
		&cfg.ClientID,
		&cfg.ClientSecretEncrypted,
		&cfg.OrgID,
		&cfg.OrgSlug,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSSOConfigNotFound
		}
		return nil, fmt.Errorf("failed to look up sso login config: %w", err)
	}

	return &cfg, nil
}

func (s *SSOConfigStore) Get(ctx context.Context, scope tenant.Scope, provider string) (*models.SSOProviderConfig, error) {
	if !scope.HasOrg() {
		return nil, store.ErrSSOConfigNotFound
	}

	query := `
		SELECT config_id, org_id, provider, client_id, client_secret_encrypted,
			external_org_id, enabled, app_id, created_at, updated_at
		FROM sso_provider_configs
		WHERE org_id = $1 AND provider = $2
	`

	var cfg models.SSOProviderConfig
	err := s.pool.QueryRow(ctx, query, scope.OrgID, provider).Scan(
		&cfg.ConfigID,
		&cfg.OrgID,
		&cfg.Provider,
		&cfg.ClientID,
		&cfg.ClientSecretEncrypted,
		&cfg.ExternalOrgID,
		&cfg.Enabled,
		&cfg.AppID,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSSOConfigNotFound
		}
		return nil, fmt.Errorf("failed to get sso config: %w", err)
	}

	return &cfg, nil
}

// Upsert creates or replaces the organization's configuration for a
// provider. An empty secret on update keeps the stored one, so admins can
// rotate the client id without re-entering the secret.
func (s *SSOConfigStore) Upsert(ctx context.Context, scope tenant.Scope, cfg *models.SSOProviderConfig) error {
	if !scope.HasOrg() || cfg.OrgID != scope.OrgID {
		return store.ErrSSOConfigNotFound
	}

	query := `
		INSERT INTO sso_provider_configs (
			org_id, provider, client_id, client_secret_encrypted,
			external_org_id, enabled, app_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT ON CONSTRAINT sso_provider_configs_org_provider_key
		DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret_encrypted = CASE
				WHEN EXCLUDED.client_secret_encrypted = ''
				THEN sso_provider_configs.client_secret_encrypted
				ELSE EXCLUDED.client_secret_encrypted
			END,
			external_org_id = EXCLUDED.external_org_id,
			enabled = EXCLUDED.enabled,
			app_id = EXCLUDED.app_id,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		cfg.OrgID,
		cfg.Provider,
		cfg.ClientID,
		cfg.ClientSecretEncrypted,
		cfg.ExternalOrgID,
		cfg.Enabled,
		cfg.AppID,
	)

	if err != nil {
		if isUniqueViolation(err, "sso_provider_configs_client_id_key", "sso_provider_configs_external_org_key") {
			return store.ErrSSOConfigConflict
		}
		return fmt.Errorf("failed to upsert sso config: %w", err)
	}

	log.Info().
		Str("org_id", cfg.OrgID.String()).
		Str("provider", cfg.Provider).
		Msg("Upserted sso config")

	return nil
}

func (s *SSOConfigStore) Delete(ctx context.Context, scope tenant.Scope, provider string) error {
	if !scope.HasOrg() {
		return store.ErrSSOConfigNotFound
	}

	result, err := s.pool.Exec(ctx, `
		DELETE FROM sso_provider_configs
		WHERE org_id = $1 AND provider = $2
	`, scope.OrgID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete sso config: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrSSOConfigNotFound
	}

	return nil
}

func (s *SSOConfigStore) List(ctx context.Context, scope tenant.Scope) ([]*models.SSOProviderConfig, error) {
	if !scope.HasOrg() {
		return nil, nil
	}

	query := `
		SELECT config_id, org_id, provider, client_id, client_secret_encrypted,
			external_org_id, enabled, app_id, created_at, updated_at
		FROM sso_provider_configs
		WHERE org_id = $1
		ORDER BY provider
	`

	rows, err := s.pool.Query(ctx, query, scope.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sso configs: %w", err)
	}
	defer rows.Close()

	var result []*models.SSOProviderConfig
	for rows.Next() {
		var cfg models.SSOProviderConfig
		if err := rows.Scan(
			&cfg.ConfigID,
			&cfg.OrgID,
			&cfg.Provider,
			&cfg.ClientID,
			&cfg.ClientSecretEncrypted,
			&cfg.ExternalOrgID,
			&cfg.Enabled,
			&cfg.AppID,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sso config: %w", err)
		}
		result = append(result, &cfg)
	}

	return result, rows.Err()
}
