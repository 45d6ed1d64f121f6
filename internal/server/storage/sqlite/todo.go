package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ivmelnik/todosync/internal/models"
	"github.com/ivmelnik/todosync/internal/server/storage"
)

// CreateTodo inserts a new todo, assigning it a fresh version.
// The assigned version is written back into todo.Version.
// Returns ErrTodoAlreadyExists on id collision.
func (t *syncTx) CreateTodo(ctx context.Context, todo *models.Todo) error {
	version, err := t.nextVersion(ctx, todo.UserID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO todos (id, user_id, text, completed, version, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = t.tx.ExecContext(ctx, query,
		todo.ID,
		todo.UserID,
		todo.Text,
		boolToInt(todo.Completed),
		version,
		todo.CreatedAt,
		todo.UpdatedAt,
		todo.DeletedAt,
	)
	if err != nil {
		// id выдаются сервером (UUID), коллизия практически невозможна,
		// но вставку не перезаписываем — конфликт отдаем наверх
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrTodoAlreadyExists
		}
		return fmt.Errorf("failed to insert todo: %w", err)
	}

	todo.Version = version

	return nil
}

// UpdateTodo applies a partial update to a live todo, refreshing updated_at
// and assigning a fresh version. Returns false if the todo is absent or
// already soft-deleted.
func (t *syncTx) UpdateTodo(ctx context.Context, userID, todoID string, upd models.TodoUpdate) (bool, error) {
	existing, err := t.GetTodo(ctx, userID, todoID)
	if err != nil {
		if errors.Is(err, storage.ErrTodoNotFound) {
			return false, nil
		}
		return false, err
	}

	if upd.Text != nil {
		existing.Text = *upd.Text
	}
	if upd.Completed != nil {
		existing.Completed = *upd.Completed
	}

	// Версия берется из ledger'а, а не existing.Version+1: другие writes
	// пользователя могли продвинуть последовательность
	version, err := t.nextVersion(ctx, userID)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE todos
		SET text = ?, completed = ?, version = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	result, err := t.tx.ExecContext(ctx, query,
		existing.Text,
		boolToInt(existing.Completed),
		version,
		nowMillis(),
		todoID,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update todo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// SoftDeleteTodo marks a live todo as deleted, assigning a fresh version.
// The row is kept as a tombstone so the deletion shows up in delta pulls.
// Returns false if the todo is absent or already soft-deleted.
func (t *syncTx) SoftDeleteTodo(ctx context.Context, userID, todoID string) (bool, error) {
	version, err := t.nextVersion(ctx, userID)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE todos
		SET deleted_at = ?, version = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	result, err := t.tx.ExecContext(ctx, query, nowMillis(), version, todoID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete todo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetTodo retrieves a single live todo by id.
// Returns ErrTodoNotFound if the todo is absent or soft-deleted.
func (t *syncTx) GetTodo(ctx context.Context, userID, todoID string) (*models.Todo, error) {
	query := `
		SELECT id, user_id, text, completed, version, created_at, updated_at, deleted_at
		FROM todos
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	todo, err := scanTodo(t.tx.QueryRowContext(ctx, query, todoID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return todo, nil
}

// ListTodos retrieves all live todos of a user ordered by version ascending.
// Used by the snapshot pull.
func (t *syncTx) ListTodos(ctx context.Context, userID string) ([]*models.Todo, error) {
	query := `
		SELECT id, user_id, text, completed, version, created_at, updated_at, deleted_at
		FROM todos
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY version ASC
	`

	rows, err := t.tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	return scanTodos(rows)
}

// ListTodosSince retrieves all todos (tombstones included) with
// version > since, ordered by version ascending. Used by the delta pull.
func (t *syncTx) ListTodosSince(ctx context.Context, userID string, since int64) ([]*models.Todo, error) {
	query := `
		SELECT id, user_id, text, completed, version, created_at, updated_at, deleted_at
		FROM todos
		WHERE user_id = ? AND version > ?
		ORDER BY version ASC
	`

	rows, err := t.tx.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos since version: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	return scanTodos(rows)
}

// scanner абстрагирует sql.Row и sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*models.Todo, error) {
	todo := &models.Todo{}
	var completed int
	var updatedAt, deletedAt sql.NullInt64

	err := row.Scan(
		&todo.ID,
		&todo.UserID,
		&todo.Text,
		&completed,
		&todo.Version,
		&todo.CreatedAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	todo.Completed = completed != 0
	if updatedAt.Valid {
		todo.UpdatedAt = &updatedAt.Int64
	}
	if deletedAt.Valid {
		todo.DeletedAt = &deletedAt.Int64
	}

	return todo, nil
}

func scanTodos(rows *sql.Rows) ([]*models.Todo, error) {
	var todos []*models.Todo

	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return todos, nil
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
