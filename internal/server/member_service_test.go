package server

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/logicore/internal/models"
)

func TestMemberList(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")
	admin := f.seedUser(t, "admin@example.com", "Admin")
	member := f.seedUser(t, "member@example.com", "Member")
	f.join(t, admin, org, models.RoleAdmin)
	f.join(t, member, org, models.RoleMember)

	members, err := f.members.List(asMember(member, org, models.RoleMember))
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestMemberRemove(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")
	admin := f.seedUser(t, "admin@example.com", "Admin")
	second := f.seedUser(t, "second@example.com", "Second Admin")
	member := f.seedUser(t, "member@example.com", "Member")
	f.join(t, admin, org, models.RoleAdmin)
	f.join(t, second, org, models.RoleAdmin)
	f.join(t, member, org, models.RoleMember)

	adminCtx := asMember(admin, org, models.RoleAdmin)

	t.Run("cannot remove yourself", func(t *testing.T) {
		err := f.members.Remove(adminCtx, admin.UserID)
		require.Error(t, err)
		require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("member requires admin", func(t *testing.T) {
		err := f.members.Remove(asMember(member, org, models.RoleMember), second.UserID)
		require.Error(t, err)
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("removes a member", func(t *testing.T) {
		require.NoError(t, f.members.Remove(adminCtx, member.UserID))

		_, err := f.memberships.Get(t.Context(), member.UserID, org.OrgID)
		require.Error(t, err)
	})

	t.Run("removing the last admin refused", func(t *testing.T) {
		// the caller's token still says admin but the store has been
		// demoted, leaving second as the only admin
		require.NoError(t, f.memberships.SetRole(t.Context(), admin.UserID, org.OrgID, models.RoleMember))

		err := f.members.Remove(adminCtx, second.UserID)
		require.Error(t, err)
		require.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})
}

func TestMemberSetRole(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")
	admin := f.seedUser(t, "admin@example.com", "Admin")
	member := f.seedUser(t, "member@example.com", "Member")
	f.join(t, admin, org, models.RoleAdmin)
	f.join(t, member, org, models.RoleMember)

	adminCtx := asMember(admin, org, models.RoleAdmin)

	t.Run("promote", func(t *testing.T) {
		require.NoError(t, f.members.SetRole(adminCtx, &SetRoleRequest{UserID: member.UserID, Role: models.RoleAdmin}))

		m, err := f.memberships.Get(t.Context(), member.UserID, org.OrgID)
		require.NoError(t, err)
		require.True(t, m.IsAdmin())
	})

	t.Run("demote back", func(t *testing.T) {
		require.NoError(t, f.members.SetRole(adminCtx, &SetRoleRequest{UserID: member.UserID, Role: models.RoleMember}))
	})

	t.Run("demoting the last admin refused", func(t *testing.T) {
		err := f.members.SetRole(adminCtx, &SetRoleRequest{UserID: admin.UserID, Role: models.RoleMember})
		require.Error(t, err)
		require.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("invalid role", func(t *testing.T) {
		err := f.members.SetRole(adminCtx, &SetRoleRequest{UserID: member.UserID, Role: "owner"})
		require.Error(t, err)
		require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("unknown member", func(t *testing.T) {
		stranger := f.seedUser(t, "stranger@example.com", "Stranger")
		err := f.members.SetRole(adminCtx, &SetRoleRequest{UserID: stranger.UserID, Role: models.RoleMember})
		require.Error(t, err)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestTransferAdmin(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")
	admin := f.seedUser(t, "admin@example.com", "Admin")
	member := f.seedUser(t, "member@example.com", "Member")
	f.join(t, admin, org, models.RoleAdmin)
	f.join(t, member, org, models.RoleMember)

	require.NoError(t, f.members.TransferAdmin(asMember(admin, org, models.RoleAdmin), member.UserID))

	promoted, err := f.memberships.Get(t.Context(), member.UserID, org.OrgID)
	require.NoError(t, err)
	require.True(t, promoted.IsAdmin())

	demoted, err := f.memberships.Get(t.Context(), admin.UserID, org.OrgID)
	require.NoError(t, err)
	require.False(t, demoted.IsAdmin())

	count, err := f.memberships.CountAdmins(t.Context(), org.OrgID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
