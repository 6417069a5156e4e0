package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// Sentinel errors for document store operations
var (
	ErrDocumentNotFound = errors.New("document not found")
)

// DocumentStore defines the interface for the representative dual-owned
// resource. Every method takes the scope explicitly: it is structurally
// impossible to query documents without stating (or omitting, and getting
// nothing) a binding. An unbound scope yields empty results, never an error
// and never another tenant's rows.
type DocumentStore interface {
	// Create inserts a document. The document's ownership must be visible
	// to the bound scope or the write is rejected.
	Create(ctx context.Context, scope tenant.Scope, doc *models.Document) error

	// Get retrieves a document visible to the bound scope.
	// Returns ErrDocumentNotFound when invisible or absent; the two are
	// indistinguishable to the caller.
	Get(ctx context.Context, scope tenant.Scope, documentID uuid.UUID) (*models.Document, error)

	// List returns the documents visible to the bound scope: the OR of the
	// org-owned and user-owned policies, newest first.
	List(ctx context.Context, scope tenant.Scope) ([]*models.Document, error)
}
