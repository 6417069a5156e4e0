package models

import (
	"time"

	"github.com/google/uuid"
)

// SSOProviderConfig binds an OAuth provider and an external organization
// identifier (workspace/domain id) to one tenant. Both (provider, external
// org id) and (provider, client id) are globally unique so a provider
// callback can never be routed to the wrong tenant.
type SSOProviderConfig struct {
	ConfigID uuid.UUID
	OrgID    uuid.UUID
	Provider string // e.g. "lineworks", "google"

	ClientID              string
	ClientSecretEncrypted string // AES-256-GCM, written only by admin config ops
	ExternalOrgID         string
	Enabled               bool

	// AppID is an optional provider-side app identifier surfaced to the
	// front end during the pre-auth resolution step.
	AppID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResolvedSSOProvider is the restricted shape returned by the pre-auth
// resolution lookup. It deliberately has no field for the client secret.
type ResolvedSSOProvider struct {
	ClientID         string
	OrganizationName string
	AppID            *string
}

// SSOLoginConfig is the shape used only during the server-side authorization
// code exchange. The secret is still encrypted; it is decrypted at the
// exchange call site and nowhere else.
type SSOLoginConfig struct {
	ClientID              string
	ClientSecretEncrypted string
	OrgID                 uuid.UUID
	OrgSlug               string
}
