package server

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/logicore/internal/models"
)

func TestGetOrganizationBySlug(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")

	t.Run("found", func(t *testing.T) {
		summary, err := f.accessRequests.GetOrganizationBySlug(t.Context(), "acme")
		require.NoError(t, err)
		require.Equal(t, org.OrgID, summary.OrgID)
		require.Equal(t, "Acme", summary.Name)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := f.accessRequests.GetOrganizationBySlug(t.Context(), "nope")
		require.Error(t, err)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("deleted organization hidden", func(t *testing.T) {
		doomed := f.seedOrg(t, "Doomed", "doomed")
		f.orgs.SoftDelete(doomed.OrgID)

		_, err := f.accessRequests.GetOrganizationBySlug(t.Context(), "doomed")
		require.Error(t, err)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestAccessRequestWorkflow(t *testing.T) {
	f := newFixture(t)

	home := f.seedOrg(t, "Home", "home")
	target := f.seedOrg(t, "Target", "target")

	admin := f.seedUser(t, "admin@target.example", "Admin")
	f.join(t, admin, target, models.RoleAdmin)

	requester := f.seedUser(t, "req@example.com", "Requester")
	f.join(t, requester, home, models.RoleMember)

	requesterCtx := asMember(requester, home, models.RoleMember)
	adminCtx := asMember(admin, target, models.RoleAdmin)

	t.Run("create", func(t *testing.T) {
		view, err := f.accessRequests.Create(requesterCtx, &CreateAccessRequestRequest{OrgSlug: "target"})
		require.NoError(t, err)
		require.Equal(t, target.OrgID, view.OrgID)
		require.Equal(t, models.AccessRequestPending, view.Status)
		require.Equal(t, "req@example.com", view.Email)
	})

	t.Run("duplicate pending", func(t *testing.T) {
		_, err := f.accessRequests.Create(requesterCtx, &CreateAccessRequestRequest{OrgSlug: "target"})
		require.Error(t, err)
		require.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
		require.Contains(t, err.Error(), "already_pending")
	})

	t.Run("members cannot request their own org", func(t *testing.T) {
		_, err := f.accessRequests.Create(requesterCtx, &CreateAccessRequestRequest{OrgSlug: "home"})
		require.Error(t, err)
		require.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
		require.Contains(t, err.Error(), "already_member")
	})

	t.Run("approve creates the membership", func(t *testing.T) {
		queue, err := f.accessRequests.List(adminCtx, models.AccessRequestPending)
		require.NoError(t, err)
		require.Len(t, queue, 1)

		view, err := f.accessRequests.Approve(adminCtx, &ApproveAccessRequestRequest{
			RequestID: queue[0].RequestID,
			Role:      models.RoleMember,
		})
		require.NoError(t, err)
		require.Equal(t, models.AccessRequestApproved, view.Status)
		require.NotNil(t, view.ReviewedAt)

		m, err := f.memberships.Get(t.Context(), requester.UserID, target.OrgID)
		require.NoError(t, err)
		require.Equal(t, models.RoleMember, m.Role)

		// double approval fails rather than rewriting the decision
		_, err = f.accessRequests.Approve(adminCtx, &ApproveAccessRequestRequest{
			RequestID: queue[0].RequestID,
			Role:      models.RoleAdmin,
		})
		require.Error(t, err)
		require.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("decline", func(t *testing.T) {
		other := f.seedUser(t, "other@example.com", "Other")
		f.join(t, other, home, models.RoleMember)

		view, err := f.accessRequests.Create(asMember(other, home, models.RoleMember), &CreateAccessRequestRequest{OrgSlug: "target"})
		require.NoError(t, err)

		require.NoError(t, f.accessRequests.Decline(adminCtx, view.RequestID))

		_, err = f.memberships.Get(t.Context(), other.UserID, target.OrgID)
		require.Error(t, err)
	})

	t.Run("review is bounded to the admin's org", func(t *testing.T) {
		homeAdmin := f.seedUser(t, "admin@home.example", "Home Admin")
		f.join(t, homeAdmin, home, models.RoleAdmin)

		third := f.seedUser(t, "third@example.com", "Third")
		f.join(t, third, home, models.RoleMember)

		view, err := f.accessRequests.Create(asMember(third, home, models.RoleMember), &CreateAccessRequestRequest{OrgSlug: "target"})
		require.NoError(t, err)

		_, err = f.accessRequests.Approve(asMember(homeAdmin, home, models.RoleAdmin), &ApproveAccessRequestRequest{
			RequestID: view.RequestID,
			Role:      models.RoleMember,
		})
		require.Error(t, err)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("list requires admin", func(t *testing.T) {
		_, err := f.accessRequests.List(requesterCtx, "")
		require.Error(t, err)
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("invalid status filter", func(t *testing.T) {
		_, err := f.accessRequests.List(adminCtx, "bogus")
		require.Error(t, err)
		require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}
