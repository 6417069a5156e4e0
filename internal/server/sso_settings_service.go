package server

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/secrets"
	"github.com/wolfeidau/logicore/internal/store"
)

// SSOSettingsService is the admin surface for an organization's SSO
// configuration. Client secrets are encrypted before they reach the store
// and are never returned, responses only say whether one is set.
type SSOSettingsService struct {
	ssoConfigs store.SSOConfigStore
	secretKey  string
}

// NewSSOSettingsService creates the SSO settings service.
func NewSSOSettingsService(ssoConfigs store.SSOConfigStore, secretKey string) *SSOSettingsService {
	return &SSOSettingsService{
		ssoConfigs: ssoConfigs,
		secretKey:  secretKey,
	}
}

// SSOSettings is the admin view of one provider configuration.
type SSOSettings struct {
	Provider      string    `json:"provider"`
	ClientID      string    `json:"client_id"`
	SecretSet     bool      `json:"secret_set"`
	ExternalOrgID string    `json:"external_org_id,omitempty"`
	Enabled       bool      `json:"enabled"`
	AppID         *string   `json:"app_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpsertSSOSettingsRequest creates or updates the caller organization's
// configuration for a provider. An empty ClientSecret on update keeps the
// stored secret.
type UpsertSSOSettingsRequest struct {
	Provider      string  `json:"provider"`
	ClientID      string  `json:"client_id"`
	ClientSecret  string  `json:"client_secret,omitempty"`
	ExternalOrgID string  `json:"external_org_id,omitempty"`
	Enabled       bool    `json:"enabled"`
	AppID         *string `json:"app_id,omitempty"`
}

// Upsert stores the configuration. Admin only.
func (s *SSOSettingsService) Upsert(ctx context.Context, req *UpsertSSOSettingsRequest) (*SSOSettings, error) {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := LookupSSOProvider(req.Provider); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if req.ClientID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("client_id is required"))
	}

	var encrypted string
	if req.ClientSecret != "" {
		encrypted, err = secrets.Encrypt(req.ClientSecret, s.secretKey)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}

	cfg := &models.SSOProviderConfig{
		ConfigID:              uuid.New(),
		OrgID:                 identity.OrgID,
		Provider:              req.Provider,
		ClientID:              req.ClientID,
		ClientSecretEncrypted: encrypted,
		ExternalOrgID:         req.ExternalOrgID,
		Enabled:               req.Enabled,
		AppID:                 req.AppID,
	}

	if err := s.ssoConfigs.Upsert(ctx, identity.Scope(), cfg); err != nil {
		switch {
		case errors.Is(err, store.ErrSSOConfigConflict):
			return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("client id or external org id already configured by another organization"))
		case errors.Is(err, store.ErrSSOConfigNotFound):
			return nil, connect.NewError(connect.CodePermissionDenied, errors.New("configuration outside caller scope"))
		default:
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}

	log.Info().
		Str("org_id", identity.OrgID.String()).
		Str("provider", req.Provider).
		Msg("updated sso settings")

	return s.Get(ctx, req.Provider)
}

// Get returns the organization's configuration for one provider. Admin only.
func (s *SSOSettingsService) Get(ctx context.Context, provider string) (*SSOSettings, error) {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := s.ssoConfigs.Get(ctx, identity.Scope(), provider)
	if err != nil {
		if errors.Is(err, store.ErrSSOConfigNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("sso configuration not found"))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return toSSOSettings(cfg), nil
}

// List returns all of the organization's provider configurations. Admin
// only.
func (s *SSOSettingsService) List(ctx context.Context) ([]*SSOSettings, error) {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	configs, err := s.ssoConfigs.List(ctx, identity.Scope())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	result := make([]*SSOSettings, 0, len(configs))
	for _, cfg := range configs {
		result = append(result, toSSOSettings(cfg))
	}
	return result, nil
}

// Delete removes the organization's configuration for a provider. Admin
// only.
func (s *SSOSettingsService) Delete(ctx context.Context, provider string) error {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}

	if err := s.ssoConfigs.Delete(ctx, identity.Scope(), provider); err != nil {
		if errors.Is(err, store.ErrSSOConfigNotFound) {
			return connect.NewError(connect.CodeNotFound, errors.New("sso configuration not found"))
		}
		return connect.NewError(connect.CodeInternal, err)
	}

	log.Info().
		Str("org_id", identity.OrgID.String()).
		Str("provider", provider).
		Msg("deleted sso settings")

	return nil
}

func toSSOSettings(cfg *models.SSOProviderConfig) *SSOSettings {
	return &SSOSettings{
		Provider:      cfg.Provider,
		ClientID:      cfg.ClientID,
		SecretSet:     cfg.ClientSecretEncrypted != "",
		ExternalOrgID: cfg.ExternalOrgID,
		Enabled:       cfg.Enabled,
		AppID:         cfg.AppID,
		UpdatedAt:     cfg.UpdatedAt,
	}
}
