package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
)

// WithTx commits when fn returns nil and rolls back otherwise. The error
// from fn is returned as is so callers still see its kind. A panic inside
// fn rolls back and is re-raised.
func (r *repository) WithTx(ctx context.Context, fn func(repo Repository) error) (err error) {
	if r.conn == nil {
		return fn(r)
	}

	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&repository{db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// finalize turns gendry's "LIMIT ?,?" into "LIMIT ? OFFSET ?" (swapping the
// two args) and rebinds placeholders for the connection's driver.
func finalize(db sqlx.ExtContext, query string, args []interface{}) (string, []interface{}) {
	loc := limitRegex.FindStringIndex(query)
	if loc != nil {
		qCount := strings.Count(query[:loc[0]], "?")
		if qCount+1 < len(args) {
			args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return db.Rebind(query), args
}
