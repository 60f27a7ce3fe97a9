package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/models"
	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, limit, offset uint) ([]models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) (bool, error)
	ExistsByStoredPath(ctx context.Context, storedPath string) (bool, error)

	CreateChatRecord(ctx context.Context, rec *models.ChatRecord) error
	ListHistory(ctx context.Context, documentID string) ([]models.ChatRecord, error)

	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(repo Repository) error) error
}

var documentColumns = []string{
	"id", "filename", "stored_path", "content_type", "file_size", "page_count", "created_at", "updated_at",
}

type repository struct {
	db   sqlx.ExtContext
	conn *sqlx.DB // nil when db is a transaction
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, conn: db}
}

func (r *repository) Create(ctx context.Context, doc *models.Document) error {
	query := r.db.Rebind(`
		INSERT INTO documents (id, filename, stored_path, content_type, file_size, page_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.StoredPath,
		doc.ContentType,
		doc.FileSize,
		doc.PageCount,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	return err
}

// GetByID returns nil, nil when no document has that id.
func (r *repository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	query := r.db.Rebind(`
		SELECT id, filename, stored_path, content_type, file_size, page_count, created_at, updated_at
		FROM documents
		WHERE id = ?
	`)

	err := sqlx.GetContext(ctx, r.db, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// List returns documents newest first.
func (r *repository) List(ctx context.Context, limit, offset uint) ([]models.Document, error) {
	where := map[string]interface{}{
		"_orderby": "created_at desc",
		"_limit":   []uint{offset, limit},
	}

	query, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}
	query, args = finalize(r.db, query, args)

	docs := []models.Document{}
	if err := sqlx.SelectContext(ctx, r.db, &docs, query, args...); err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *repository) Update(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE documents
		SET filename = ?, stored_path = ?, content_type = ?, file_size = ?, page_count = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		doc.Filename,
		doc.StoredPath,
		doc.ContentType,
		doc.FileSize,
		doc.PageCount,
		doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes the document and its chat history. It reports false when
// the document did not exist.
func (r *repository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM chat_history WHERE document_id = ?`), id); err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *repository) ExistsByStoredPath(ctx context.Context, storedPath string) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM documents WHERE stored_path = ?`)
	if err := sqlx.GetContext(ctx, r.db, &count, query, storedPath); err != nil {
		return false, err
	}
	return count > 0, nil
}
