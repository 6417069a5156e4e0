package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

// InvitationStore implements store.InvitationStore in memory.
type InvitationStore struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*models.Invitation
	users       *UserStore
	memberships *MembershipStore
}

func NewInvitationStore(users *UserStore, memberships *MembershipStore) *InvitationStore {
	return &InvitationStore{
		invitations: make(map[uuid.UUID]*models.Invitation),
		users:       users,
		memberships: memberships,
	}
}

func (s *InvitationStore) Create(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *inv
	s.invitations[inv.InvitationID] = &cp
	return nil
}

func (s *InvitationStore) GetValidByToken(_ context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv := s.findValid(token)
	if inv == nil {
		return nil, store.ErrInvitationNotFound
	}

	cp := *inv
	return &cp, nil
}

// Redeem consumes the invitation and provisions the user, credential and
// membership in one step. The single mutex stands in for the transaction the
// Postgres implementation uses.
func (s *InvitationStore) Redeem(ctx context.Context, params store.RedeemParams) (*store.Redeemed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv := s.findValid(params.Token)
	if inv == nil {
		return nil, store.ErrInvitationNotFound
	}

	now := time.Now()
	email := inv.Email

	// Reuse an existing account with the invited email, matching the
	// postgres store. Only a first-time redemption creates a user.
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		user = &models.User{
			UserID:      uuid.New(),
			Email:       &email,
			DisplayName: params.DisplayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	cred := &models.PasswordCredential{
		CredentialID: uuid.New(),
		UserID:       user.UserID,
		OrgID:        inv.OrgID,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateCredential(ctx, cred); err != nil {
		return nil, err
	}

	membership := &models.Membership{
		UserID:    user.UserID,
		OrgID:     inv.OrgID,
		Role:      inv.Role,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.memberships.Upsert(ctx, membership); err != nil {
		return nil, err
	}

	inv.AcceptedBy = &user.UserID
	inv.AcceptedAt = &now

	return &store.Redeemed{
		User:       user,
		Membership: membership,
		OrgID:      inv.OrgID,
	}, nil
}

// findValid must be called with the lock held.
func (s *InvitationStore) findValid(token string) *models.Invitation {
	for _, inv := range s.invitations {
		if inv.Token == token && !inv.IsAccepted() && !inv.IsExpired() {
			return inv
		}
	}
	return nil
}
