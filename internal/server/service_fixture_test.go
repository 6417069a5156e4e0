package server

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store/memory"
	"github.com/wolfeidau/logicore/internal/token"
)

const (
	testSigningSecret = "0123456789abcdef0123456789abcdef"
	testSSOSecretKey  = "sso-settings-secret-key-material"
)

// fixture wires every service against the in-memory stores.
type fixture struct {
	users       *memory.UserStore
	memberships *memory.MembershipStore
	orgs        *memory.OrganizationStore
	requests    *memory.AccessRequestStore
	ssoConfigs  *memory.SSOConfigStore
	invitations *memory.InvitationStore
	documents   *memory.DocumentStore

	codec *token.Codec

	auth           *AuthService
	identity       *IdentityService
	sso            *SSOService
	ssoSettings    *SSOSettingsService
	accessRequests *AccessRequestService
	organizations  *OrganizationService
	members        *MemberService
	docs           *DocumentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := memory.NewUserStore()
	memberships := memory.NewMembershipStore(users)
	orgs := memory.NewOrganizationStore(memberships)
	requests := memory.NewAccessRequestStore(memberships)
	ssoConfigs := memory.NewSSOConfigStore(orgs)
	invitations := memory.NewInvitationStore(users, memberships)
	documents := memory.NewDocumentStore()

	codec, err := token.NewCodec([]byte(testSigningSecret), "logicore-test", time.Hour)
	require.NoError(t, err)

	authService := NewAuthService(codec, users, orgs, memberships)

	return &fixture{
		users:          users,
		memberships:    memberships,
		orgs:           orgs,
		requests:       requests,
		ssoConfigs:     ssoConfigs,
		invitations:    invitations,
		documents:      documents,
		codec:          codec,
		auth:           authService,
		identity:       NewIdentityService(codec, users, orgs, invitations, authService),
		sso:            NewSSOService(ssoConfigs, users, orgs, memberships, requests, authService, testSSOSecretKey),
		ssoSettings:    NewSSOSettingsService(ssoConfigs, testSSOSecretKey),
		accessRequests: NewAccessRequestService(requests, orgs, memberships, users),
		organizations:  NewOrganizationService(orgs),
		members:        NewMemberService(memberships),
		docs:           NewDocumentService(documents),
	}
}

func (f *fixture) seedOrg(t *testing.T, name, slug string) *models.Organization {
	t.Helper()

	org := &models.Organization{
		OrgID: uuid.New(),
		Name:  name,
		Slug:  slug,
	}
	require.NoError(t, f.orgs.Create(context.Background(), org))
	return org
}

func (f *fixture) seedUser(t *testing.T, email, displayName string) *models.User {
	t.Helper()

	user := &models.User{
		UserID:      uuid.New(),
		Email:       &email,
		DisplayName: displayName,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) join(t *testing.T, user *models.User, org *models.Organization, role string) {
	t.Helper()

	require.NoError(t, f.memberships.Upsert(context.Background(), &models.Membership{
		UserID: user.UserID,
		OrgID:  org.OrgID,
		Role:   role,
	}))
}

func (f *fixture) addPassword(t *testing.T, user *models.User, org *models.Organization, username, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, f.users.CreateCredential(context.Background(), &models.PasswordCredential{
		CredentialID: uuid.New(),
		UserID:       user.UserID,
		OrgID:        org.OrgID,
		Username:     username,
		PasswordHash: string(hash),
		Enabled:      true,
	}))
}

// asMember returns a context carrying the identity of user acting inside org.
func asMember(user *models.User, org *models.Organization, role string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{
		UserID:   user.UserID,
		OrgID:    org.OrgID,
		OrgSlug:  org.Slug,
		Handle:   user.DisplayName,
		Role:     role,
		Provider: auth.ProviderToken,
	})
}
