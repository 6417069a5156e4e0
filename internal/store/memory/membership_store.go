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

type membershipKey struct {
	userID uuid.UUID
	orgID  uuid.UUID
}

// MembershipStore implements store.MembershipStore in memory.
type MembershipStore struct {
	mu          sync.RWMutex
	memberships map[membershipKey]*models.Membership
	users       *UserStore
}

func NewMembershipStore(users *UserStore) *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
		users:       users,
	}
}

func (s *MembershipStore) Get(_ context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memberships[membershipKey{userID: userID, orgID: orgID}]
	if !ok {
		return nil, store.ErrMembershipNotFound
	}

	cp := *m
	return &cp, nil
}

func (s *MembershipStore) Upsert(_ context.Context, membership *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{userID: membership.UserID, orgID: membership.OrgID}
	if existing, ok := s.memberships[key]; ok {
		existing.Role = membership.Role
		existing.IsDefault = membership.IsDefault
		existing.UpdatedAt = time.Now()
		return nil
	}

	cp := *membership
	s.memberships[key] = &cp
	return nil
}

func (s *MembershipStore) SetRole(_ context.Context, userID, orgID uuid.UUID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipKey{userID: userID, orgID: orgID}]
	if !ok {
		return store.ErrMembershipNotFound
	}

	m.Role = role
	m.UpdatedAt = time.Now()
	return nil
}

func (s *MembershipStore) Delete(_ context.Context, userID, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{userID: userID, orgID: orgID}
	if _, ok := s.memberships[key]; !ok {
		return store.ErrMembershipNotFound
	}

	delete(s.memberships, key)
	return nil
}

func (s *MembershipStore) ListByOrg(_ context.Context, orgID uuid.UUID) ([]*store.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*store.Member
	for _, m := range s.memberships {
		if m.OrgID != orgID {
			continue
		}

		member := &store.Member{
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.CreatedAt,
		}
		if s.users != nil {
			if u := s.users.get(m.UserID); u != nil {
				if u.Email != nil {
					member.Email = *u.Email
				}
				member.DisplayName = u.DisplayName
			}
		}
		members = append(members, member)
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})

	return members, nil
}

func (s *MembershipStore) CountAdmins(_ context.Context, orgID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.memberships {
		if m.OrgID == orgID && m.Role == models.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (s *MembershipStore) listByUser(userID uuid.UUID) []*models.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			cp := *m
			result = append(result, &cp)
		}
	}
	return result
}
