package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// DocumentStore implements store.DocumentStore using PostgreSQL.
//
// Unlike the other stores it carries no WHERE clauses for tenancy. Every
// query runs on a scoped connection and the row level security policies on
// the documents table do the filtering. The queries here could not widen
// visibility even if they tried.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore creates a new PostgreSQL-backed document store.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

func (s *DocumentStore) Create(ctx context.Context, scope tenant.Scope, doc *models.Document) error {
	conn, err := AcquireScoped(ctx, s.pool, scope)
	if err != nil {
		return err
	}
	defer conn.Release()

	query := `
		INSERT INTO documents (
			document_id, owner_type, org_id, user_id, name, content_type, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err = conn.Conn().Exec(ctx, query,
		doc.DocumentID,
		string(doc.OwnerType),
		doc.OrgID,
		doc.UserID,
		doc.Name,
		doc.ContentType,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		// the WITH CHECK half of the policies rejects rows outside the scope
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (s *DocumentStore) Get(ctx context.Context, scope tenant.Scope, documentID uuid.UUID) (*models.Document, error) {
	conn, err := AcquireScoped(ctx, s.pool, scope)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	query := `
		SELECT document_id, owner_type, org_id, user_id, name, content_type, created_at, updated_at
		FROM documents
		WHERE document_id = $1
	`

	var doc models.Document
	err = conn.Conn().QueryRow(ctx, query, documentID).Scan(
		&doc.DocumentID,
		&doc.OwnerType,
		&doc.OrgID,
		&doc.UserID,
		&doc.Name,
		&doc.ContentType,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

func (s *DocumentStore) List(ctx context.Context, scope tenant.Scope) ([]*models.Document, error) {
	conn, err := AcquireScoped(ctx, s.pool, scope)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	query := `
		SELECT document_id, owner_type, org_id, user_id, name, content_type, created_at, updated_at
		FROM documents
		ORDER BY created_at
	`

	rows, err := conn.Conn().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.DocumentID,
			&doc.OwnerType,
			&doc.OrgID,
			&doc.UserID,
			&doc.Name,
			&doc.ContentType,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		result = append(result, &doc)
	}

	return result, rows.Err()
}
