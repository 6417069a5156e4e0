package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// SSOConfigStore implements store.SSOConfigStore in memory.
//
// ResolveProvider and LookupForLogin are the pre-auth paths and consult the
// org table to hide configs belonging to deleted organizations, matching the
// definer functions in the Postgres schema.
type SSOConfigStore struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]*models.SSOProviderConfig
	orgs    *OrganizationStore
}

func NewSSOConfigStore(orgs *OrganizationStore) *SSOConfigStore {
	return &SSOConfigStore{
		configs: make(map[uuid.UUID]*models.SSOProviderConfig),
		orgs:    orgs,
	}
}

func (s *SSOConfigStore) ResolveProvider(ctx context.Context, provider, externalOrgID string) (*models.ResolvedSSOProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if externalOrgID == "" {
		return nil, store.ErrSSOConfigNotFound
	}

	// Exact external-id match wins.
	if cfg := s.findEnabled(ctx, func(c *models.SSOProviderConfig) bool {
		return c.Provider == provider && c.ExternalOrgID == externalOrgID
	}); cfg != nil {
		return s.resolved(ctx, cfg)
	}

	// Fallback: the identifier retried as an organization slug, whole-string
	// equality only.
	org, err := s.orgs.GetBySlug(ctx, externalOrgID)
	if err == nil {
		if cfg := s.findEnabled(ctx, func(c *models.SSOProviderConfig) bool {
			return c.Provider == provider && c.OrgID == org.OrgID
		}); cfg != nil {
			return s.resolved(ctx, cfg)
		}
	}

	return nil, store.ErrSSOConfigNotFound
}

func (s *SSOConfigStore) LookupForLogin(ctx context.Context, provider, clientID string) (*models.SSOLoginConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.findEnabled(ctx, func(c *models.SSOProviderConfig) bool {
		return c.Provider == provider && c.ClientID == clientID
	})
	if cfg == nil {
		return nil, store.ErrSSOConfigNotFound
	}

	org, err := s.orgs.GetByID(ctx, cfg.OrgID)
	if err != nil {
		return nil, store.ErrSSOConfigNotFound
	}

	return &models.SSOLoginConfig{
		ClientID:              cfg.ClientID,
		ClientSecretEncrypted: cfg.ClientSecretEncrypted,
		OrgID:                 cfg.OrgID,
		OrgSlug:               org.Slug,
	}, nil
}

func (s *SSOConfigStore) Get(_ context.Context, scope tenant.Scope, provider string) (*models.SSOProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !scope.HasOrg() {
		return nil, store.ErrSSOConfigNotFound
	}

	for _, cfg := range s.configs {
		if cfg.OrgID == scope.OrgID && cfg.Provider == provider {
			cp := *cfg
			return &cp, nil
		}
	}
	return nil, store.ErrSSOConfigNotFound
}

func (s *SSOConfigStore) Upsert(_ context.Context, scope tenant.Scope, cfg *models.SSOProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !scope.HasOrg() || cfg.OrgID != scope.OrgID {
		return store.ErrSSOConfigNotFound
	}

	// client_id and external org id are unique across all orgs so the
	// pre-auth lookups resolve to a single config.
	for _, other := range s.configs {
		if other.OrgID == cfg.OrgID && other.Provider == cfg.Provider {
			continue
		}
		if other.Provider != cfg.Provider {
			continue
		}
		if other.ClientID == cfg.ClientID {
			return store.ErrSSOConfigConflict
		}
		if cfg.ExternalOrgID != "" && other.ExternalOrgID == cfg.ExternalOrgID {
			return store.ErrSSOConfigConflict
		}
	}

	for _, existing := range s.configs {
		if existing.OrgID == cfg.OrgID && existing.Provider == cfg.Provider {
			existing.ClientID = cfg.ClientID
			if cfg.ClientSecretEncrypted != "" {
				existing.ClientSecretEncrypted = cfg.ClientSecretEncrypted
			}
			existing.ExternalOrgID = cfg.ExternalOrgID
			existing.Enabled = cfg.Enabled
			existing.AppID = cfg.AppID
			existing.UpdatedAt = time.Now()
			return nil
		}
	}

	cp := *cfg
	if cp.ConfigID == uuid.Nil {
		cp.ConfigID = uuid.New()
	}
	s.configs[cp.ConfigID] = &cp
	return nil
}

func (s *SSOConfigStore) Delete(_ context.Context, scope tenant.Scope, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !scope.HasOrg() {
		return store.ErrSSOConfigNotFound
	}

	for id, cfg := range s.configs {
		if cfg.OrgID == scope.OrgID && cfg.Provider == provider {
			delete(s.configs, id)
			return nil
		}
	}
	return store.ErrSSOConfigNotFound
}

func (s *SSOConfigStore) List(_ context.Context, scope tenant.Scope) ([]*models.SSOProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !scope.HasOrg() {
		return nil, nil
	}

	var result []*models.SSOProviderConfig
	for _, cfg := range s.configs {
		if cfg.OrgID == scope.OrgID {
			cp := *cfg
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Provider < result[j].Provider
	})

	return result, nil
}

// findEnabled must be called with the lock held.
func (s *SSOConfigStore) findEnabled(ctx context.Context, match func(*models.SSOProviderConfig) bool) *models.SSOProviderConfig {
	for _, cfg := range s.configs {
		if !cfg.Enabled || !match(cfg) {
			continue
		}
		if _, err := s.orgs.GetByID(ctx, cfg.OrgID); err != nil {
			continue
		}
		return cfg
	}
	return nil
}

func (s *SSOConfigStore) resolved(ctx context.Context, cfg *models.SSOProviderConfig) (*models.ResolvedSSOProvider, error) {
	org, err := s.orgs.GetByID(ctx, cfg.OrgID)
	if err != nil {
		return nil, store.ErrSSOConfigNotFound
	}
	return &models.ResolvedSSOProvider{
		ClientID:         cfg.ClientID,
		OrganizationName: org.Name,
		AppID:            cfg.AppID,
	}, nil
}
