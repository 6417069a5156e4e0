package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
)

// OrganizationService lists and manages the caller's organizations.
type OrganizationService struct {
	orgs store.OrganizationStore
}

// NewOrganizationService creates the organization service.
func NewOrganizationService(orgs store.OrganizationStore) *OrganizationService {
	return &OrganizationService{orgs: orgs}
}

// MyOrganization is an organization the caller belongs to, with their role
// in it.
type MyOrganization struct {
	OrgID uuid.UUID `json:"org_id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug"`
	Role  string    `json:"role"`
}

// ListMine returns every organization the calling user is a member of.
func (s *OrganizationService) ListMine(ctx context.Context) ([]*MyOrganization, error) {
	identity, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	memberships, err := s.orgs.ListForUser(ctx, identity.UserID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	result := make([]*MyOrganization, 0, len(memberships))
	for _, m := range memberships {
		result = append(result, &MyOrganization{
			OrgID: m.Organization.OrgID,
			Name:  m.Organization.Name,
			Slug:  m.Organization.Slug,
			Role:  m.Role,
		})
	}
	return result, nil
}

// UpdateOrganizationRequest renames the caller's organization or changes its
// slug.
type UpdateOrganizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Update changes the caller organization's name and slug. Admin only.
func (s *OrganizationService) Update(ctx context.Context, req *UpdateOrganizationRequest) (*OrganizationSummary, error) {
	identity, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name == "" || req.Slug == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name and slug are required"))
	}

	org := &models.Organization{
		OrgID: identity.OrgID,
		Name:  req.Name,
		Slug:  req.Slug,
	}

	if err := s.orgs.Update(ctx, org); err != nil {
		switch {
		case errors.Is(err, store.ErrSlugTaken):
			return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("slug already taken"))
		case errors.Is(err, store.ErrOrganizationNotFound):
			return nil, connect.NewError(connect.CodeNotFound, errors.New("organization not found"))
		default:
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}

	log.Info().
		Str("org_id", identity.OrgID.String()).
		Str("slug", req.Slug).
		Msg("updated organization")

	return &OrganizationSummary{OrgID: identity.OrgID, Name: req.Name, Slug: req.Slug}, nil
}
