package tenant

import "github.com/google/uuid"

// OwnerKind tags a row as organization-owned or personally-owned.
type OwnerKind string

const (
	OwnerOrganization OwnerKind = "organization"
	OwnerPersonal     OwnerKind = "personal"
)

// Ownership describes who owns a row. Exactly one of OrgID/UserID is set,
// matching the check constraint on dual-owned tables.
type Ownership struct {
	Kind   OwnerKind
	OrgID  uuid.UUID
	UserID uuid.UUID
}

// OrgOwnership tags a row as owned by an organization.
func OrgOwnership(orgID uuid.UUID) Ownership {
	return Ownership{Kind: OwnerOrganization, OrgID: orgID}
}

// PersonalOwnership tags a row as owned by an individual user.
func PersonalOwnership(userID uuid.UUID) Ownership {
	return Ownership{Kind: OwnerPersonal, UserID: userID}
}

// Owned is implemented by any model subject to dual-ownership visibility.
type Owned interface {
	Ownership() Ownership
}

// Policy is one independently evaluated visibility predicate. The two
// ownership kinds are kept as separate policies rather than one predicate
// with an OR inside, so each half stays testable on its own and omitting a
// binding silently hides that half rather than erroring.
type Policy interface {
	// Name identifies the policy, matching the RLS policy name in Postgres.
	Name() string

	// Applies reports whether the row is visible to the scope under this
	// policy alone.
	Applies(owner Ownership, scope Scope) bool
}

type orgOwned struct{}

func (orgOwned) Name() string { return "org_owned" }

func (orgOwned) Applies(owner Ownership, scope Scope) bool {
	if owner.Kind != OwnerOrganization {
		return false
	}
	return scope.HasOrg() && owner.OrgID == scope.OrgID
}

type userOwned struct{}

func (userOwned) Name() string { return "user_owned" }

func (userOwned) Applies(owner Ownership, scope Scope) bool {
	if owner.Kind != OwnerPersonal {
		return false
	}
	return scope.HasUser() && owner.UserID == scope.UserID
}

// OrgOwned and UserOwned are the two policies combined on every dual-owned
// table.
var (
	OrgOwned  Policy = orgOwned{}
	UserOwned Policy = userOwned{}
)

// Policies returns the default additive policy set.
func Policies() []Policy {
	return []Policy{OrgOwned, UserOwned}
}

// Visible reports whether a row is visible to the scope: the logical OR of
// the additive policies. An unbound scope sees nothing.
func Visible(row Owned, scope Scope) bool {
	owner := row.Ownership()
	for _, p := range Policies() {
		if p.Applies(owner, scope) {
			return true
		}
	}
	return false
}
