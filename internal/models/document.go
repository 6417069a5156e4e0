package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wolfeidau/logicore/internal/tenant"
)

// Document is the representative dual-owned resource. Business services hang
// their own tables off the same pattern: an owner_type tag plus exactly one
// of organization_id / user_id, enforced by a check constraint and guarded
// by two additive row-level policies.
type Document struct {
	DocumentID uuid.UUID
	OwnerType  tenant.OwnerKind
	OrgID      *uuid.UUID // set iff OwnerType == organization
	UserID     *uuid.UUID // set iff OwnerType == personal

	Name        string
	ContentType string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Ownership implements tenant.Owned.
func (d *Document) Ownership() tenant.Ownership {
	if d.OwnerType == tenant.OwnerPersonal && d.UserID != nil {
		return tenant.PersonalOwnership(*d.UserID)
	}
	if d.OrgID != nil {
		return tenant.OrgOwnership(*d.OrgID)
	}
	return tenant.Ownership{Kind: d.OwnerType}
}
