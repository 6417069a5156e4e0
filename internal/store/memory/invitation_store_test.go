package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

func TestInvitationStore_Redeem(t *testing.T) {
	ctx := context.Background()

	users := NewUserStore()
	memberships := NewMembershipStore(users)
	s := NewInvitationStore(users, memberships)

	orgID := uuid.New()
	inv := newInvitation(orgID, "newhire@example.com", models.RoleMember, time.Hour)
	require.NoError(t, s.Create(ctx, inv))

	redeemed, err := s.Redeem(ctx, store.RedeemParams{
		Token:        inv.Token,
		Username:     "newhire",
		PasswordHash: "$2a$10$hash",
		DisplayName:  "New Hire",
	})
	require.NoError(t, err)
	require.Equal(t, orgID, redeemed.OrgID)
	require.Equal(t, models.RoleMember, redeemed.Membership.Role)
	require.True(t, redeemed.Membership.IsDefault)

	t.Run("user and credential are provisioned", func(t *testing.T) {
		u, err := users.GetByID(ctx, redeemed.User.UserID)
		require.NoError(t, err)
		require.Equal(t, "newhire@example.com", *u.Email)

		creds, err := users.FindCredentials(ctx, "newhire")
		require.NoError(t, err)
		require.Len(t, creds, 1)
		require.Equal(t, orgID, creds[0].OrgID)
	})

	t.Run("a redeemed invitation cannot be used again", func(t *testing.T) {
		_, err := s.GetValidByToken(ctx, inv.Token)
		require.ErrorIs(t, err, store.ErrInvitationNotFound)

		_, err = s.Redeem(ctx, store.RedeemParams{Token: inv.Token, Username: "other"})
		require.ErrorIs(t, err, store.ErrInvitationNotFound)
	})
}

func TestInvitationStore_Expired(t *testing.T) {
	ctx := context.Background()

	users := NewUserStore()
	memberships := NewMembershipStore(users)
	s := NewInvitationStore(users, memberships)

	inv := newInvitation(uuid.New(), "late@example.com", models.RoleMember, -time.Minute)
	require.NoError(t, s.Create(ctx, inv))

	_, err := s.GetValidByToken(ctx, inv.Token)
	require.ErrorIs(t, err, store.ErrInvitationNotFound)
}

func newInvitation(orgID uuid.UUID, email, role string, ttl time.Duration) *models.Invitation {
	return &models.Invitation{
		InvitationID: uuid.New(),
		OrgID:        orgID,
		Email:        email,
		Role:         role,
		Token:        uuid.NewString(),
		InvitedBy:    uuid.New(),
		ExpiresAt:    time.Now().Add(ttl),
		CreatedAt:    time.Now(),
	}
}
