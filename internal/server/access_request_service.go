package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/auth"
	httpmiddleware "github.com/wolfeidau/logicore/internal/http"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/telemetry"
)

// AccessRequestService implements the join workflow: authenticated users
// request access to an organization they are not a member of, and that
// organization's admins review the queue.
type AccessRequestService struct {
	requests    store.AccessRequestStore
	orgs        store.OrganizationStore
	memberships store.MembershipStore
	users       store.UserStore
}

// NewAccessRequestService creates the access request service.
func NewAccessRequestService(requests store.AccessRequestStore, orgs store.OrganizationStore, memberships store.MembershipStore, users store.UserStore) *AccessRequestService {
	return &AccessRequestService{
		requests:    requests,
		orgs:        orgs,
		memberships: memberships,
		users:       users,
	}
}

// OrganizationSummary is the public view of an organization, shown to a user
// deciding whether to request access.
type OrganizationSummary struct {
	OrgID uuid.UUID `json:"org_id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug"`
}

// GetOrganizationBySlug resolves a slug to the organization summary. Soft
// deleted organizations are not found.
func (s *AccessRequestService) GetOrganizationBySlug(ctx context.Context, slug string) (*OrganizationSummary, error) {
	org, err := s.orgs.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("organization not found"))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return &OrganizationSummary{OrgID: org.OrgID, Name: org.Name, Slug: org.Slug}, nil
}

// CreateAccessRequestRequest asks to join the organization with the given
// slug.
type CreateAccessRequestRequest struct {
	OrgSlug string `json:"org_slug"`
}

// AccessRequestView is the request as shown to requesters and reviewers.
type AccessRequestView struct {
	RequestID   uuid.UUID  `json:"request_id"`
	OrgID       uuid.UUID  `json:"org_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Provider    string     `json:"provider"`
	Status      string     `json:"status"`
	Role        *string    `json:"role,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Create files an access request for the calling user. Members get
// already_member, an open request gets already_pending.
func (s *AccessRequestService) Create(ctx context.Context, req *CreateAccessRequestRequest) (*AccessRequestView, error) {
	identity, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.GetBySlug(ctx, req.OrgSlug)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("organization not found"))
	}

	if _, err := s.memberships.Get(ctx, identity.UserID, org.OrgID); err == nil {
		return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("already_member"))
	}

	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	now := time.Now()
	request := &models.AccessRequest{
		RequestID:   uuid.New(),
		OrgID:       org.OrgID,
		UserID:      identity.UserID,
		Email:       email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Provider:    identity.Provider,
		Status:      models.AccessRequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, store.ErrDuplicatePending) {
			return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("already_pending"))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	telemetry.GetMetrics().AccessRequestsCreatedTotal.Add(ctx, 1)

	log.Info().
		Str("request_id", request.RequestID.String()).
		Str("org_id", org.OrgID.String()).
		Str("client_ip", httpmiddleware.ClientIPFromContext(ctx)).
		Msg("created access request")

	return toAccessRequestView(request), nil
}

// List returns the caller organization's requests, newest last, optionally
// filtered by status. Admin only.
func (s *AccessRequestService) List(ctx context.Context, statusFilter string) ([]*AccessRequestView, error) {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if statusFilter != "" && !validStatus(statusFilter) {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid status %q", statusFilter))
	}

	requests, err := s.requests.List(ctx, identity.Scope(), statusFilter)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	result := make([]*AccessRequestView, 0, len(requests))
	for _, req := range requests {
		result = append(result, toAccessRequestView(req))
	}
	return result, nil
}

// ApproveAccessRequestRequest approves a request with the role the member
// will hold.
type ApproveAccessRequestRequest struct {
	RequestID uuid.UUID `json:"request_id"`
	Role      string    `json:"role"`
}

// Approve grants the request and creates the membership. Admin only.
// Approving a request that was already reviewed fails rather than silently
// overwriting the earlier decision.
func (s *AccessRequestService) Approve(ctx context.Context, req *ApproveAccessRequestRequest) (*AccessRequestView, error) {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if !models.ValidRole(req.Role) {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid role %q", req.Role))
	}

	// the store grants the membership in the same unit of work
	updated, err := s.requests.Approve(ctx, identity.Scope(), req.RequestID, req.Role, identity.UserID)
	if err != nil {
		return nil, reviewError(err)
	}

	telemetry.GetMetrics().AccessRequestsApprovedTotal.Add(ctx, 1)

	log.Info().
		Str("request_id", req.RequestID.String()).
		Str("reviewer", identity.UserID.String()).
		Str("role", req.Role).
		Str("client_ip", httpmiddleware.ClientIPFromContext(ctx)).
		Msg("approved access request")

	return toAccessRequestView(updated), nil
}

// Decline refuses the request. Admin only.
func (s *AccessRequestService) Decline(ctx context.Context, requestID uuid.UUID) error {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}

	if err := s.requests.Decline(ctx, identity.Scope(), requestID, identity.UserID); err != nil {
		return reviewError(err)
	}

	telemetry.GetMetrics().AccessRequestsDeclinedTotal.Add(ctx, 1)

	log.Info().
		Str("request_id", requestID.String()).
		Str("reviewer", identity.UserID.String()).
		Str("client_ip", httpmiddleware.ClientIPFromContext(ctx)).
		Msg("declined access request")

	return nil
}

func reviewError(err error) error {
	switch {
	case errors.Is(err, store.ErrAccessRequestNotFound):
		return connect.NewError(connect.CodeNotFound, errors.New("access request not found"))
	case errors.Is(err, store.ErrRequestNotPending):
		return connect.NewError(connect.CodeFailedPrecondition, errors.New("access request already reviewed"))
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func validStatus(status string) bool {
	switch status {
	case models.AccessRequestPending, models.AccessRequestApproved, models.AccessRequestDeclined:
		return true
	}
	return false
}

func toAccessRequestView(req *models.AccessRequest) *AccessRequestView {
	return &AccessRequestView{
		RequestID:   req.RequestID,
		OrgID:       req.OrgID,
		UserID:      req.UserID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Provider:    req.Provider,
		Status:      req.Status,
		Role:        req.Role,
		ReviewedAt:  req.ReviewedAt,
		CreatedAt:   req.CreatedAt,
	}
}
