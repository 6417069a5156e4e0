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

// AccessRequestStore implements store.AccessRequestStore in memory.
//
// Create and GetPending run before the requester has tenant scope and are
// keyed on identity alone. Admin review operations require an org-bound
// scope matching the request's organization, mirroring the row-level
// policies the Postgres implementation relies on.
type AccessRequestStore struct {
	mu          sync.RWMutex
	requests    map[uuid.UUID]*models.AccessRequest
	memberships *MembershipStore
}

func NewAccessRequestStore(memberships *MembershipStore) *AccessRequestStore {
	return &AccessRequestStore{
		requests:    make(map[uuid.UUID]*models.AccessRequest),
		memberships: memberships,
	}
}

func (s *AccessRequestStore) Create(_ context.Context, req *models.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.UserID == req.UserID && existing.OrgID == req.OrgID &&
			existing.Status == models.AccessRequestPending {
			return store.ErrDuplicatePending
		}
	}

	cp := *req
	s.requests[req.RequestID] = &cp
	return nil
}

func (s *AccessRequestStore) GetPending(_ context.Context, userID, orgID uuid.UUID) (*models.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.requests {
		if req.UserID == userID && req.OrgID == orgID && req.Status == models.AccessRequestPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, store.ErrAccessRequestNotFound
}

func (s *AccessRequestStore) List(_ context.Context, scope tenant.Scope, statusFilter string) ([]*models.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !scope.HasOrg() {
		return nil, nil
	}

	var result []*models.AccessRequest
	for _, req := range s.requests {
		if req.OrgID != scope.OrgID {
			continue
		}
		if statusFilter != "" && req.Status != statusFilter {
			continue
		}
		cp := *req
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *AccessRequestStore) Approve(ctx context.Context, scope tenant.Scope, requestID uuid.UUID, role string, reviewerID uuid.UUID) (*models.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok || !scope.HasOrg() || req.OrgID != scope.OrgID {
		return nil, store.ErrAccessRequestNotFound
	}
	if req.Status != models.AccessRequestPending {
		return nil, store.ErrRequestNotPending
	}

	now := time.Now()

	// Membership first, so a failure can never leave an approved request
	// without one.
	err := s.memberships.Upsert(ctx, &models.Membership{
		UserID:    req.UserID,
		OrgID:     req.OrgID,
		Role:      role,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	req.Status = models.AccessRequestApproved
	req.Role = &role
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
	req.UpdatedAt = now

	cp := *req
	return &cp, nil
}

func (s *AccessRequestStore) Decline(_ context.Context, scope tenant.Scope, requestID uuid.UUID, reviewerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok || !scope.HasOrg() || req.OrgID != scope.OrgID {
		return store.ErrAccessRequestNotFound
	}
	if req.Status != models.AccessRequestPending {
		return store.ErrRequestNotPending
	}

	now := time.Now()
	req.Status = models.AccessRequestDeclined
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
	req.UpdatedAt = now
	return nil
}
