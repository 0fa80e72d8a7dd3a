package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NextSequence bumps the single-row <table>_sequence counter and returns the new value.
//
// Called inside the insert transaction, a rolled back pass gives its number back.
func NextSequence(ctx context.Context, q queryRower, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := q.QueryRowContext(ctx, query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}
