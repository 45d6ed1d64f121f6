package storage

import (
	"context"

	"github.com/ivmelnik/todosync/internal/models"
)

// SyncStorage defines the entry point to the sync storage layer.
//
// Every push/pull runs inside a single transaction obtained through WithTx:
// version stamping is a read-modify-write over durable state, and concurrent
// pushes from two devices of the same user must not observe the same
// "current max version". The transaction is rolled back when fn returns an
// error, so a failed request leaves state unchanged and the client retry
// is idempotent.
type SyncStorage interface {
	WithTx(ctx context.Context, fn func(tx SyncTx) error) error
}

// SyncTx is the repository surface available inside one transaction.
//
// All write methods stamp the affected row with a fresh version drawn from
// the user's shared sequence: max version across todos and client cursors
// plus one, computed in the same transaction as the write.
type SyncTx interface {
	// CreateTodo inserts a new todo, assigning it a fresh version.
	// The assigned version is written back into todo.Version.
	// Returns ErrTodoAlreadyExists on id collision.
	CreateTodo(ctx context.Context, todo *models.Todo) error

	// UpdateTodo applies a partial update to a live todo, refreshing
	// updated_at and assigning a fresh version.
	// Returns false if the todo is absent or already soft-deleted.
	UpdateTodo(ctx context.Context, userID, todoID string, upd models.TodoUpdate) (bool, error)

	// SoftDeleteTodo marks a live todo as deleted, assigning a fresh version.
	// The row is kept as a tombstone so the deletion shows up in delta pulls.
	// Returns false if the todo is absent or already soft-deleted.
	SoftDeleteTodo(ctx context.Context, userID, todoID string) (bool, error)

	// GetTodo retrieves a single live todo by id.
	// Returns ErrTodoNotFound if the todo is absent or soft-deleted.
	GetTodo(ctx context.Context, userID, todoID string) (*models.Todo, error)

	// ListTodos retrieves all live todos of a user ordered by version ascending.
	// Used by the snapshot pull.
	ListTodos(ctx context.Context, userID string) ([]*models.Todo, error)

	// ListTodosSince retrieves all todos (tombstones included) with
	// version > since, ordered by version ascending. Used by the delta pull.
	ListTodosSince(ctx context.Context, userID string, since int64) ([]*models.Todo, error)

	// MaxTodoVersion returns the highest todo version of a user, 0 if none
	MaxTodoVersion(ctx context.Context, userID string) (int64, error)

	// LastMutationID returns the last applied mutation id for a client,
	// 0 if the client has never been seen
	LastMutationID(ctx context.Context, clientID string) (int64, error)

	// RecordMutation upserts the client cursor to mutationID,
	// assigning the cursor a fresh version
	RecordMutation(ctx context.Context, clientID, userID string, mutationID int64) error

	// ListCursors returns last mutation ids of all clients of a user
	ListCursors(ctx context.Context, userID string) (map[string]int64, error)

	// ListCursorsSince returns last mutation ids of clients whose cursor
	// changed at version > since
	ListCursorsSince(ctx context.Context, userID string, since int64) (map[string]int64, error)

	// MaxCursorVersion returns the highest cursor version of a user, 0 if none
	MaxCursorVersion(ctx context.Context, userID string) (int64, error)
}
