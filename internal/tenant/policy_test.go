package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type ownedRow struct {
	owner Ownership
}

func (r ownedRow) Ownership() Ownership { return r.owner }

func TestScopeConstructors(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()

	require.True(t, Scope{}.IsZero())
	require.True(t, ForOrg(orgID).HasOrg())
	require.False(t, ForOrg(orgID).HasUser())
	require.True(t, ForUser(userID).HasUser())
	require.False(t, ForUser(userID).HasOrg())

	both := ForBoth(orgID, userID)
	require.True(t, both.HasOrg())
	require.True(t, both.HasUser())
	require.False(t, both.IsZero())
}

func TestOrgOwnedPolicy(t *testing.T) {
	orgID := uuid.New()
	otherOrg := uuid.New()
	owner := OrgOwnership(orgID)

	t.Run("matching org scope", func(t *testing.T) {
		require.True(t, OrgOwned.Applies(owner, ForOrg(orgID)))
	})

	t.Run("different org scope", func(t *testing.T) {
		require.False(t, OrgOwned.Applies(owner, ForOrg(otherOrg)))
	})

	t.Run("unbound scope sees nothing", func(t *testing.T) {
		require.False(t, OrgOwned.Applies(owner, Scope{}))
	})

	t.Run("user-only scope hides org rows", func(t *testing.T) {
		// Even the owning org's admin sees nothing when only the user half
		// is bound.
		require.False(t, OrgOwned.Applies(owner, ForUser(uuid.New())))
	})

	t.Run("ignores personal rows", func(t *testing.T) {
		require.False(t, OrgOwned.Applies(PersonalOwnership(uuid.New()), ForOrg(orgID)))
	})
}

func TestUserOwnedPolicy(t *testing.T) {
	userID := uuid.New()
	owner := PersonalOwnership(userID)

	t.Run("matching user scope", func(t *testing.T) {
		require.True(t, UserOwned.Applies(owner, ForUser(userID)))
	})

	t.Run("different user scope", func(t *testing.T) {
		require.False(t, UserOwned.Applies(owner, ForUser(uuid.New())))
	})

	t.Run("org-only scope hides personal rows", func(t *testing.T) {
		require.False(t, UserOwned.Applies(owner, ForOrg(uuid.New())))
	})

	t.Run("unbound scope sees nothing", func(t *testing.T) {
		require.False(t, UserOwned.Applies(owner, Scope{}))
	})
}

func TestVisibleIsAdditive(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()

	orgRow := ownedRow{owner: OrgOwnership(orgID)}
	userRow := ownedRow{owner: PersonalOwnership(userID)}

	t.Run("both halves bound sees both kinds", func(t *testing.T) {
		scope := ForBoth(orgID, userID)
		require.True(t, Visible(orgRow, scope))
		require.True(t, Visible(userRow, scope))
	})

	t.Run("org half alone sees only org rows", func(t *testing.T) {
		scope := ForOrg(orgID)
		require.True(t, Visible(orgRow, scope))
		require.False(t, Visible(userRow, scope))
	})

	t.Run("user half alone sees only personal rows", func(t *testing.T) {
		scope := ForUser(userID)
		require.False(t, Visible(orgRow, scope))
		require.True(t, Visible(userRow, scope))
	})

	t.Run("unbound scope fails empty", func(t *testing.T) {
		require.False(t, Visible(orgRow, Scope{}))
		require.False(t, Visible(userRow, Scope{}))
	})
}
