package server

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

// errLastAdmin guards the operations that would leave an organization with
// no admin at all.
var errLastAdmin = connect.NewError(connect.CodeFailedPrecondition, errors.New("organization must keep at least one admin"))

// MemberService manages the memberships of the caller's organization.
type MemberService struct {
	memberships store.MembershipStore
}

// NewMemberService creates the member service.
func NewMemberService(memberships store.MembershipStore) *MemberService {
	return &MemberService{memberships: memberships}
}

// MemberView is one row of the member list.
type MemberView struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// List returns the members of the caller's organization.
func (s *MemberService) List(ctx context.Context) ([]*MemberView, error) {
	identity, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	members, err := s.memberships.ListByOrg(ctx, identity.OrgID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	result := make([]*MemberView, 0, len(members))
	for _, m := range members {
		result = append(result, &MemberView{
			UserID:      m.UserID,
			Email:       m.Email,
			DisplayName: m.DisplayName,
			Role:        m.Role,
			JoinedAt:    m.JoinedAt,
		})
	}
	return result, nil
}

// Remove deletes a membership. Admin only. Admins cannot remove themselves,
// and the last admin cannot be removed.
func (s *MemberService) Remove(ctx context.Context, userID uuid.UUID) error {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}

	if userID == identity.UserID {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("cannot remove yourself"))
	}

	target, err := s.memberships.Get(ctx, userID, identity.OrgID)
	if err != nil {
		return memberError(err)
	}

	if target.IsAdmin() {
		if err := s.requireAnotherAdmin(ctx, identity.OrgID); err != nil {
			return err
		}
	}

	if err := s.memberships.Delete(ctx, userID, identity.OrgID); err != nil {
		return memberError(err)
	}

	log.Info().
		Str("org_id", identity.OrgID.String()).
		Str("user_id", userID.String()).
		Str("removed_by", identity.UserID.String()).
		Msg("removed member")

	return nil
}

// SetRoleRequest changes a member's role.
type SetRoleRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// SetRole promotes or demotes a member. Admin only. Demoting the last admin
// is refused.
func (s *MemberService) SetRole(ctx context.Context, req *SetRoleRequest) error {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}

	if !models.ValidRole(req.Role) {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("invalid role"))
	}

	target, err := s.memberships.Get(ctx, req.UserID, identity.OrgID)
	if err != nil {
		return memberError(err)
	}

	if target.Role == req.Role {
		return nil
	}

	if target.IsAdmin() && req.Role != models.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, identity.OrgID); err != nil {
			return err
		}
	}

	if err := s.memberships.SetRole(ctx, req.UserID, identity.OrgID, req.Role); err != nil {
		return memberError(err)
	}

	log.Info().
		Str("org_id", identity.OrgID.String()).
		Str("user_id", req.UserID.String()).
		Str("role", req.Role).
		Str("changed_by", identity.UserID.String()).
		Msg("changed member role")

	return nil
}

// TransferAdmin promotes another member to admin and demotes the caller in
// one operation.
func (s *MemberService) TransferAdmin(ctx context.Context, toUserID uuid.UUID) error {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}

	if toUserID == identity.UserID {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("cannot transfer to yourself"))
	}

	if _, err := s.memberships.Get(ctx, toUserID, identity.OrgID); err != nil {
		return memberError(err)
	}

	// promote first so the organization never passes through an adminless
	// state
	if err := s.memberships.SetRole(ctx, toUserID, identity.OrgID, models.RoleAdmin); err != nil {
		return memberError(err)
	}

	if err := s.memberships.SetRole(ctx, identity.UserID, identity.OrgID, models.RoleMember); err != nil {
		return memberError(err)
	}

	log.Info().
		Str("org_id", identity.OrgID.String()).
		Str("from", identity.UserID.String()).
		Str("to", toUserID.String()).
		Msg("transferred admin role")

	return nil
}

func (s *MemberService) requireAnotherAdmin(ctx context.Context, orgID uuid.UUID) error {
	count, err := s.memberships.CountAdmins(ctx, orgID)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if count <= 1 {
		return errLastAdmin
	}
	return nil
}

func memberError(err error) error {
	if errors.Is(err, store.ErrMembershipNotFound) {
		return connect.NewError(connect.CodeNotFound, errors.New("member not found"))
	}
	return connect.NewError(connect.CodeInternal, err)
}
