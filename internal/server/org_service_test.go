package server

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/logicore/internal/models"
)

func TestListMine(t *testing.T) {
	f := newFixture(t)

	acme := f.seedOrg(t, "Acme", "acme")
	globex := f.seedOrg(t, "Globex", "globex")
	f.seedOrg(t, "Other", "other")

	user := f.seedUser(t, "alice@example.com", "Alice")
	f.join(t, user, acme, models.RoleAdmin)
	f.join(t, user, globex, models.RoleMember)

	mine, err := f.organizations.ListMine(asMember(user, acme, models.RoleAdmin))
	require.NoError(t, err)
	require.Len(t, mine, 2)

	roles := map[string]string{}
	for _, org := range mine {
		roles[org.Slug] = org.Role
	}
	require.Equal(t, models.RoleAdmin, roles["acme"])
	require.Equal(t, models.RoleMember, roles["globex"])
}

func TestUpdateOrganization(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")
	f.seedOrg(t, "Globex", "globex")

	admin := f.seedUser(t, "admin@example.com", "Admin")
	member := f.seedUser(t, "member@example.com", "Member")
	f.join(t, admin, org, models.RoleAdmin)
	f.join(t, member, org, models.RoleMember)

	adminCtx := asMember(admin, org, models.RoleAdmin)

	t.Run("rename and reslug", func(t *testing.T) {
		summary, err := f.organizations.Update(adminCtx, &UpdateOrganizationRequest{Name: "Acme Corp", Slug: "acme-corp"})
		require.NoError(t, err)
		require.Equal(t, "acme-corp", summary.Slug)

		got, err := f.orgs.GetBySlug(t.Context(), "acme-corp")
		require.NoError(t, err)
		require.Equal(t, org.OrgID, got.OrgID)
	})

	t.Run("slug collision", func(t *testing.T) {
		_, err := f.organizations.Update(adminCtx, &UpdateOrganizationRequest{Name: "Acme", Slug: "globex"})
		require.Error(t, err)
		require.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
	})

	t.Run("member denied", func(t *testing.T) {
		_, err := f.organizations.Update(asMember(member, org, models.RoleMember), &UpdateOrganizationRequest{Name: "X", Slug: "x"})
		require.Error(t, err)
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.organizations.Update(adminCtx, &UpdateOrganizationRequest{Name: "", Slug: ""})
		require.Error(t, err)
		require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}
