package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/telemetry"
	"github.com/wolfeidau/logicore/internal/token"
)

const (
	invitationTTL       = 7 * 24 * time.Hour
	invitationTokenSize = 24
	minPasswordLength   = 8
)

// IdentityService manages invitations: admins invite by email, invitees
// redeem the token to provision their account, credential and membership in
// one step.
type IdentityService struct {
	codec       *token.Codec
	users       store.UserStore
	orgs        store.OrganizationStore
	invitations store.InvitationStore
	auth        *AuthService
}

// NewIdentityService creates the identity service.
func NewIdentityService(codec *token.Codec, users store.UserStore, orgs store.OrganizationStore, invitations store.InvitationStore, authService *AuthService) *IdentityService {
	return &IdentityService{
		codec:       codec,
		users:       users,
		orgs:        orgs,
		invitations: invitations,
		auth:        authService,
	}
}

// InviteUserRequest invites an email address into the caller's organization.
type InviteUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// InviteUserResponse returns the invitation token. Delivery of the token to
// the invitee is the caller's responsibility.
type InviteUserResponse struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// InviteUser creates an invitation into the caller's organization. Admin
// only.
func (s *IdentityService) InviteUser(ctx context.Context, req *InviteUserRequest) (*InviteUserResponse, error) {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if req.Email == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email is required"))
	}
	if !models.ValidRole(req.Role) {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid role %q", req.Role))
	}

	invitationToken, err := newInvitationToken()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	now := time.Now()
	inv := &models.Invitation{
		InvitationID: uuid.New(),
		OrgID:        identity.OrgID,
		Email:        req.Email,
		Role:         req.Role,
		Token:        invitationToken,
		InvitedBy:    identity.UserID,
		ExpiresAt:    now.Add(invitationTTL),
		CreatedAt:    now,
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	log.Info().
		Str("invitation_id", inv.InvitationID.String()).
		Str("org_id", identity.OrgID.String()).
		Str("role", req.Role).
		Msg("created invitation")

	return &InviteUserResponse{
		InvitationID: inv.InvitationID,
		Token:        inv.Token,
		ExpiresAt:    inv.ExpiresAt,
	}, nil
}

// AcceptInvitationRequest redeems an invitation token. The invitee picks
// their username and password here.
type AcceptInvitationRequest struct {
	Token       string `json:"token"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// AcceptInvitation redeems the invitation and logs the new user straight in.
// Unknown, expired and already used tokens produce the same not found error.
func (s *IdentityService) AcceptInvitation(ctx context.Context, req *AcceptInvitationRequest) (*TokenResponse, error) {
	if req.Username == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("username is required"))
	}
	if len(req.Password) < minPasswordLength {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	redeemed, err := s.invitations.Redeem(ctx, store.RedeemParams{
		Token:        req.Token,
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvitationNotFound):
			return nil, connect.NewError(connect.CodeNotFound, errors.New("invitation not found"))
		case errors.Is(err, store.ErrUsernameTaken):
			return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("username already taken"))
		default:
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}

	org, err := s.orgs.GetByID(ctx, redeemed.OrgID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	telemetry.GetMetrics().InvitationsRedeemed.Add(ctx, 1)

	return s.auth.issue(ctx, redeemed.User, req.Username, org, redeemed.Membership.Role)
}

func newInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return base58.Encode(buf), nil
}
