package server

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// DocumentService exposes the tenant-scoped document resource. All access
// runs through the caller's scope, the service never widens it.
type DocumentService struct {
	documents store.DocumentStore
}

// NewDocumentService creates the document service.
func NewDocumentService(documents store.DocumentStore) *DocumentService {
	return &DocumentService{documents: documents}
}

// CreateDocumentRequest creates a document owned by the caller's
// organization, or by the caller personally when Personal is set.
type CreateDocumentRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Personal    bool   `json:"personal,omitempty"`
}

// DocumentView is the API shape of a document.
type DocumentView struct {
	DocumentID  uuid.UUID  `json:"document_id"`
	OwnerType   string     `json:"owner_type"`
	OrgID       *uuid.UUID `json:"org_id,omitempty"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Name        string     `json:"name"`
	ContentType string     `json:"content_type"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Create stores a new document under the caller's scope.
func (s *DocumentService) Create(ctx context.Context, req *CreateDocumentRequest) (*DocumentView, error) {
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "text/markdown"
	}

	now := time.Now()
	doc := &models.Document{
		DocumentID:  uuid.New(),
		Name:        req.Name,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Personal {
		if identity.IsAnonymous() {
			return nil, connect.NewError(connect.CodePermissionDenied, errors.New("personal documents require an authenticated user"))
		}
		userID := identity.UserID
		doc.OwnerType = tenant.OwnerPersonal
		doc.UserID = &userID
	} else {
		orgID := identity.OrgID
		doc.OwnerType = tenant.OwnerOrganization
		doc.OrgID = &orgID
	}

	if err := s.documents.Create(ctx, identity.Scope(), doc); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return toDocumentView(doc), nil
}

// Get returns one document visible under the caller's scope.
func (s *DocumentService) Get(ctx context.Context, documentID uuid.UUID) (*DocumentView, error) {
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, identity.Scope(), documentID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("document not found"))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return toDocumentView(doc), nil
}

// List returns every document visible under the caller's scope, the
// organization's and the caller's personal ones together.
func (s *DocumentService) List(ctx context.Context) ([]*DocumentView, error) {
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.List(ctx, identity.Scope())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	result := make([]*DocumentView, 0, len(docs))
	for _, doc := range docs {
		result = append(result, toDocumentView(doc))
	}
	return result, nil
}

func toDocumentView(doc *models.Document) *DocumentView {
	return &DocumentView{
		DocumentID:  doc.DocumentID,
		OwnerType:   string(doc.OwnerType),
		OrgID:       doc.OrgID,
		UserID:      doc.UserID,
		Name:        doc.Name,
		ContentType: doc.ContentType,
		CreatedAt:   doc.CreatedAt,
	}
}
