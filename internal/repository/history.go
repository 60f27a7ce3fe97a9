package repository

import (
	"context"
	"fmt"

	"github.com/BerylCAtieno/document-chat-api/internal/models"
	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
)

var historyColumns = []string{"id", "document_id", "question", "answer", "model", "created_at"}

func (r *repository) CreateChatRecord(ctx context.Context, rec *models.ChatRecord) error {
	query := r.db.Rebind(`
		INSERT INTO chat_history (id, document_id, question, answer, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.DocumentID,
		rec.Question,
		rec.Answer,
		rec.Model,
		rec.CreatedAt,
	)

	return err
}

// ListHistory returns the turns of a document oldest first.
func (r *repository) ListHistory(ctx context.Context, documentID string) ([]models.ChatRecord, error) {
	where := map[string]interface{}{
		"document_id": documentID,
		"_orderby":    "created_at asc, id asc",
	}

	query, args, err := builder.BuildSelect("chat_history", where, historyColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}
	query, args = finalize(r.db, query, args)

	records := []models.ChatRecord{}
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, err
	}

	return records, nil
}
