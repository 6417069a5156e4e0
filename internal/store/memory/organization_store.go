// Package memory provides in-memory store implementations used in tests and
// single-process development. The scoped stores honor the same tenant
// policies the Postgres schema enforces with row-level security, so the
// isolation properties can be exercised without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

// OrganizationStore implements store.OrganizationStore in memory.
type OrganizationStore struct {
	mu          sync.RWMutex
	orgs        map[uuid.UUID]*models.Organization
	memberships *MembershipStore
}

// NewOrganizationStore creates an in-memory organization store. The
// membership store is consulted by ListForUser.
func NewOrganizationStore(memberships *MembershipStore) *OrganizationStore {
	return &OrganizationStore{
		orgs:        make(map[uuid.UUID]*models.Organization),
		memberships: memberships,
	}
}

func (s *OrganizationStore) Create(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orgs {
		if existing.Slug == org.Slug && existing.DeletedAt == nil {
			return store.ErrSlugTaken
		}
	}

	cp := *org
	s.orgs[org.OrgID] = &cp
	return nil
}

func (s *OrganizationStore) GetByID(_ context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[orgID]
	if !ok || org.DeletedAt != nil {
		return nil, store.ErrOrganizationNotFound
	}

	cp := *org
	return &cp, nil
}

func (s *OrganizationStore) GetBySlug(_ context.Context, slug string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, org := range s.orgs {
		if org.Slug == slug && org.DeletedAt == nil {
			cp := *org
			return &cp, nil
		}
	}
	return nil, store.ErrOrganizationNotFound
}

func (s *OrganizationStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*store.OrganizationWithRole, error) {
	memberships := s.memberships.listByUser(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.OrganizationWithRole
	for _, m := range memberships {
		org, ok := s.orgs[m.OrgID]
		if !ok || org.DeletedAt != nil {
			continue
		}
		cp := *org
		result = append(result, &store.OrganizationWithRole{Organization: &cp, Role: m.Role})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Organization.CreatedAt.Before(result[j].Organization.CreatedAt)
	})

	return result, nil
}

func (s *OrganizationStore) Update(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.orgs[org.OrgID]
	if !ok || existing.DeletedAt != nil {
		return store.ErrOrganizationNotFound
	}

	for id, other := range s.orgs {
		if id != org.OrgID && other.Slug == org.Slug && other.DeletedAt == nil {
			return store.ErrSlugTaken
		}
	}

	existing.Name = org.Name
	existing.Slug = org.Slug
	existing.UpdatedAt = time.Now()
	return nil
}

// SoftDelete marks an organization deleted; used in tests of the invariant
// that a deleted org is invisible to new sessions.
func (s *OrganizationStore) SoftDelete(orgID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if org, ok := s.orgs[orgID]; ok {
		now := time.Now()
		org.DeletedAt = &now
	}
}
