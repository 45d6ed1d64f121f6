package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LastMutationID returns the last applied mutation id for a client,
// 0 if the client has never been seen
func (t *syncTx) LastMutationID(ctx context.Context, clientID string) (int64, error) {
	query := `
		SELECT last_mutation_id FROM client_cursors
		WHERE client_id = ?
	`

	var lastMutationID int64
	err := t.tx.QueryRowContext(ctx, query, clientID).Scan(&lastMutationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get last mutation id: %w", err)
	}

	return lastMutationID, nil
}

// RecordMutation upserts the client cursor to mutationID, assigning the
// cursor a fresh version from the user's shared sequence. The cursor is
// versioned like a todo so the acknowledgement itself shows up in delta pulls.
func (t *syncTx) RecordMutation(ctx context.Context, clientID, userID string, mutationID int64) error {
	version, err := t.nextVersion(ctx, userID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO client_cursors (client_id, user_id, last_mutation_id, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			last_mutation_id = excluded.last_mutation_id,
			version = excluded.version,
			updated_at = excluded.updated_at
	`

	_, err = t.tx.ExecContext(ctx, query, clientID, userID, mutationID, version, nowMillis())
	if err != nil {
		return fmt.Errorf("failed to record mutation: %w", err)
	}

	return nil
}

// ListCursors returns last mutation ids of all clients of a user
func (t *syncTx) ListCursors(ctx context.Context, userID string) (map[string]int64, error) {
	query := `
		SELECT client_id, last_mutation_id FROM client_cursors
		WHERE user_id = ?
	`

	return t.queryCursors(ctx, query, userID)
}

// ListCursorsSince returns last mutation ids of clients whose cursor
// changed at version > since
func (t *syncTx) ListCursorsSince(ctx context.Context, userID string, since int64) (map[string]int64, error) {
	query := `
		SELECT client_id, last_mutation_id FROM client_cursors
		WHERE user_id = ? AND version > ?
	`

	return t.queryCursors(ctx, query, userID, since)
}

func (t *syncTx) queryCursors(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cursors: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	cursors := make(map[string]int64)
	for rows.Next() {
		var clientID string
		var lastMutationID int64
		if err := rows.Scan(&clientID, &lastMutationID); err != nil {
			return nil, fmt.Errorf("failed to scan cursor: %w", err)
		}
		cursors[clientID] = lastMutationID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return cursors, nil
}
