package sqlite

import (
	"context"
	"fmt"
)

// nextVersion выдает следующую версию из общей последовательности пользователя:
// max(версии todos, версии client_cursors) + 1.
//
// Вызывается только внутри транзакции, в которой выполняется и сам штампуемый
// write — два конкурентных вызова не могут прочитать одинаковый максимум.
func (t *syncTx) nextVersion(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COALESCE(MAX(v), 0) + 1 FROM (
			SELECT MAX(version) AS v FROM todos WHERE user_id = ?
			UNION ALL
			SELECT MAX(version) AS v FROM client_cursors WHERE user_id = ?
		)
	`

	var version int64
	if err := t.tx.QueryRowContext(ctx, query, userID, userID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to compute next version: %w", err)
	}

	return version, nil
}

// MaxTodoVersion returns the highest todo version of a user, 0 if none
func (t *syncTx) MaxTodoVersion(ctx context.Context, userID string) (int64, error) {
	var version int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM todos WHERE user_id = ?`, userID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get max todo version: %w", err)
	}

	return version, nil
}

// MaxCursorVersion returns the highest cursor version of a user, 0 if none
func (t *syncTx) MaxCursorVersion(ctx context.Context, userID string) (int64, error) {
	var version int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM client_cursors WHERE user_id = ?`, userID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get max cursor version: %w", err)
	}

	return version, nil
}
