package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant in the system. All tenants share the same
// tables and connection pool; row visibility is enforced by the scope bound
// to each connection. Organizations are provisioned out of band and never
// hard-deleted.
type Organization struct {
	OrgID uuid.UUID // UUIDv7
	Name  string
	Slug  string // URL-safe, globally unique

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // soft delete; a deleted org is invisible to new sessions
}

// IsDeleted returns true if the organization has been soft-deleted.
func (o *Organization) IsDeleted() bool {
	return o.DeletedAt != nil
}
