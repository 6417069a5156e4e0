package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// Sentinel errors for access request store operations
var (
	ErrAccessRequestNotFound = errors.New("access request not found")
	ErrDuplicatePending      = errors.New("a pending access request already exists")
	ErrRequestNotPending     = errors.New("access request is not pending")
)

// AccessRequestStore defines the interface for access request storage.
//
// Create and GetPending are keyed off the requester's own identity and run
// before any organization scope exists for the target org; the remaining
// operations are admin-side and execute under the admin's bound scope.
type AccessRequestStore interface {
	// Create inserts a new pending request.
	// Returns ErrDuplicatePending if a pending request already exists for
	// the (user, org) pair.
	Create(ctx context.Context, req *models.AccessRequest) error

	// GetPending returns the pending request for a (user, org) pair.
	// Returns ErrAccessRequestNotFound when none is pending.
	GetPending(ctx context.Context, userID, orgID uuid.UUID) (*models.AccessRequest, error)

	// List returns the requests visible to the bound scope, optionally
	// filtered by status, newest first.
	List(ctx context.Context, scope tenant.Scope, statusFilter string) ([]*models.AccessRequest, error)

	// Approve transitions a pending request to approved, stamping the
	// reviewer and granted role, and upserts the resulting membership in the
	// same unit of work so a reviewed request can never be stranded without
	// one.
	// Returns ErrRequestNotPending when the request is missing, already
	// approved or already declined under the bound scope.
	Approve(ctx context.Context, scope tenant.Scope, requestID uuid.UUID, role string, reviewerID uuid.UUID) (*models.AccessRequest, error)

	// Decline transitions a pending request to declined, stamping the
	// reviewer. Terminal.
	// Returns ErrRequestNotPending when the request is missing or already
	// terminal under the bound scope.
	Decline(ctx context.Context, scope tenant.Scope, requestID uuid.UUID, reviewerID uuid.UUID) error
}
