package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// DocumentStore implements store.DocumentStore in memory, filtering every
// read and write through the tenant policies. An unbound scope matches no
// rows, the same fail-empty behavior the Postgres policies produce.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]*models.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[uuid.UUID]*models.Document),
	}
}

func (s *DocumentStore) Create(_ context.Context, scope tenant.Scope, doc *models.Document) error {
	if !tenant.Visible(doc, scope) {
		return store.ErrDocumentNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *doc
	s.documents[doc.DocumentID] = &cp
	return nil
}

func (s *DocumentStore) Get(_ context.Context, scope tenant.Scope, documentID uuid.UUID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[documentID]
	if !ok || !tenant.Visible(doc, scope) {
		return nil, store.ErrDocumentNotFound
	}

	cp := *doc
	return &cp, nil
}

func (s *DocumentStore) List(_ context.Context, scope tenant.Scope) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Document
	for _, doc := range s.documents {
		if !tenant.Visible(doc, scope) {
			continue
		}
		cp := *doc
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
