package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ivmelnik/todosync/internal/server/storage"
)

// syncTx реализует storage.SyncTx поверх одной SQL транзакции
type syncTx struct {
	tx *sql.Tx
}

// WithTx выполняет fn внутри одной транзакции.
// При ошибке fn транзакция откатывается целиком: неудачный push/pull
// не оставляет частичного состояния, и повтор запроса клиентом безопасен.
func (s *Storage) WithTx(ctx context.Context, fn func(tx storage.SyncTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&syncTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
