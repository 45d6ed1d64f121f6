package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivmelnik/todosync/internal/models"
	"github.com/ivmelnik/todosync/internal/server/storage"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	s, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
	}

	return s, cleanup
}

// createTestTodo вставляет запись внутри отдельной транзакции и возвращает ее
func createTestTodo(t *testing.T, ctx context.Context, s *Storage, userID, text string) *models.Todo {
	todo := &models.Todo{
		ID:        uuid.New().String(),
		UserID:    userID,
		Text:      text,
		CreatedAt: 1700000000000,
	}

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		return tx.CreateTodo(ctx, todo)
	})
	require.NoError(t, err)

	return todo
}

func TestSyncTx_CreateTodo_AssignsVersion(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	first := createTestTodo(t, ctx, s, "user1", "first")
	second := createTestTodo(t, ctx, s, "user1", "second")

	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, int64(2), second.Version)
}

func TestSyncTx_CreateTodo_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	todo := createTestTodo(t, ctx, s, "user1", "original")

	dup := &models.Todo{
		ID:        todo.ID, // same id
		UserID:    "user1",
		Text:      "duplicate",
		CreatedAt: 1700000000001,
	}

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		return tx.CreateTodo(ctx, dup)
	})
	assert.ErrorIs(t, err, storage.ErrTodoAlreadyExists)

	// Оригинал не перезаписан
	err = s.WithTx(ctx, func(tx storage.SyncTx) error {
		got, err := tx.GetTodo(ctx, "user1", todo.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", got.Text)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_VersionsPerUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	// Последовательности версий независимы по пользователям
	u1 := createTestTodo(t, ctx, s, "user1", "a")
	u2 := createTestTodo(t, ctx, s, "user2", "b")

	assert.Equal(t, int64(1), u1.Version)
	assert.Equal(t, int64(1), u2.Version)
}

func TestSyncTx_UpdateTodo(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	todo := createTestTodo(t, ctx, s, "user1", "buy milk")

	newText := "buy oat milk"
	completed := true

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		updated, err := tx.UpdateTodo(ctx, "user1", todo.ID, models.TodoUpdate{
			Text:      &newText,
			Completed: &completed,
		})
		require.NoError(t, err)
		assert.True(t, updated)
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx storage.SyncTx) error {
		got, err := tx.GetTodo(ctx, "user1", todo.ID)
		require.NoError(t, err)

		assert.Equal(t, "buy oat milk", got.Text)
		assert.True(t, got.Completed)
		assert.NotNil(t, got.UpdatedAt)
		// Версия взята из ledger'а, а не version+1 на месте
		assert.Equal(t, int64(2), got.Version)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_UpdateTodo_PartialFields(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	todo := createTestTodo(t, ctx, s, "user1", "walk the dog")

	completed := true
	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		updated, err := tx.UpdateTodo(ctx, "user1", todo.ID, models.TodoUpdate{
			Completed: &completed, // текст не меняем
		})
		require.NoError(t, err)
		assert.True(t, updated)

		got, err := tx.GetTodo(ctx, "user1", todo.ID)
		require.NoError(t, err)
		assert.Equal(t, "walk the dog", got.Text)
		assert.True(t, got.Completed)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_UpdateTodo_Absent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	text := "whatever"
	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		updated, err := tx.UpdateTodo(ctx, "user1", "nonexistent", models.TodoUpdate{Text: &text})
		require.NoError(t, err)
		assert.False(t, updated)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_UpdateTodo_WrongUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	todo := createTestTodo(t, ctx, s, "user1", "private")

	text := "hijacked"
	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		updated, err := tx.UpdateTodo(ctx, "user2", todo.ID, models.TodoUpdate{Text: &text})
		require.NoError(t, err)
		assert.False(t, updated, "record of another user must be invisible")
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_SoftDeleteTodo(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	todo := createTestTodo(t, ctx, s, "user1", "to be deleted")

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		deleted, err := tx.SoftDeleteTodo(ctx, "user1", todo.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		// Живая выборка запись больше не видит
		_, err = tx.GetTodo(ctx, "user1", todo.ID)
		assert.ErrorIs(t, err, storage.ErrTodoNotFound)

		// Повторный delete — no-op
		deleted, err = tx.SoftDeleteTodo(ctx, "user1", todo.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		// Но tombstone остался и виден delta-выборке
		todos, err := tx.ListTodosSince(ctx, "user1", 0)
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.True(t, todos[0].Deleted())
		assert.Equal(t, int64(2), todos[0].Version)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_ListTodos_OrderedByVersion(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	first := createTestTodo(t, ctx, s, "user1", "one")
	second := createTestTodo(t, ctx, s, "user1", "two")
	third := createTestTodo(t, ctx, s, "user1", "three")

	// update первого продвигает его в конец порядка версий
	text := "one updated"
	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		_, err := tx.UpdateTodo(ctx, "user1", first.ID, models.TodoUpdate{Text: &text})
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx storage.SyncTx) error {
		todos, err := tx.ListTodos(ctx, "user1")
		require.NoError(t, err)
		require.Len(t, todos, 3)

		assert.Equal(t, second.ID, todos[0].ID)
		assert.Equal(t, third.ID, todos[1].ID)
		assert.Equal(t, first.ID, todos[2].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_ListTodosSince(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestTodo(t, ctx, s, "user1", "old")            // version 1
	second := createTestTodo(t, ctx, s, "user1", "new")  // version 2
	third := createTestTodo(t, ctx, s, "user1", "newer") // version 3

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		todos, err := tx.ListTodosSince(ctx, "user1", 1)
		require.NoError(t, err)
		require.Len(t, todos, 2)
		assert.Equal(t, second.ID, todos[0].ID)
		assert.Equal(t, third.ID, todos[1].ID)

		todos, err = tx.ListTodosSince(ctx, "user1", 3)
		require.NoError(t, err)
		assert.Empty(t, todos)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_Cursors(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		// Неизвестный клиент — 0
		lastID, err := tx.LastMutationID(ctx, "client1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), lastID)

		require.NoError(t, tx.RecordMutation(ctx, "client1", "user1", 1))
		require.NoError(t, tx.RecordMutation(ctx, "client2", "user1", 5))
		require.NoError(t, tx.RecordMutation(ctx, "client1", "user1", 2))

		lastID, err = tx.LastMutationID(ctx, "client1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), lastID)

		cursors, err := tx.ListCursors(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"client1": 2, "client2": 5}, cursors)

		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_ListCursorsSince(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		require.NoError(t, tx.RecordMutation(ctx, "client1", "user1", 1)) // version 1
		require.NoError(t, tx.RecordMutation(ctx, "client2", "user1", 1)) // version 2

		// Изменения только выше указанной версии
		cursors, err := tx.ListCursorsSince(ctx, "user1", 1)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"client2": 1}, cursors)

		cursors, err = tx.ListCursorsSince(ctx, "user1", 2)
		require.NoError(t, err)
		assert.Empty(t, cursors)
		return nil
	})
	require.NoError(t, err)
}

func TestSyncTx_SharedVersionSequence(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	// Версии записей и курсоров выдаются из одной последовательности:
	// после N writes в любом чередовании использованы ровно версии 1..N
	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		todo1 := &models.Todo{ID: uuid.New().String(), UserID: "user1", Text: "a", CreatedAt: 1}
		require.NoError(t, tx.CreateTodo(ctx, todo1)) // version 1

		require.NoError(t, tx.RecordMutation(ctx, "client1", "user1", 1)) // version 2

		todo2 := &models.Todo{ID: uuid.New().String(), UserID: "user1", Text: "b", CreatedAt: 2}
		require.NoError(t, tx.CreateTodo(ctx, todo2)) // version 3

		require.NoError(t, tx.RecordMutation(ctx, "client1", "user1", 2)) // version 4

		assert.Equal(t, int64(1), todo1.Version)
		assert.Equal(t, int64(3), todo2.Version)

		maxTodo, err := tx.MaxTodoVersion(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), maxTodo)

		maxCursor, err := tx.MaxCursorVersion(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), maxCursor)

		return nil
	})
	require.NoError(t, err)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	sentinel := assert.AnError

	err := s.WithTx(ctx, func(tx storage.SyncTx) error {
		todo := &models.Todo{ID: uuid.New().String(), UserID: "user1", Text: "doomed", CreatedAt: 1}
		require.NoError(t, tx.CreateTodo(ctx, todo))
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// Вставка откатилась вместе с транзакцией
	err = s.WithTx(ctx, func(tx storage.SyncTx) error {
		todos, err := tx.ListTodos(ctx, "user1")
		require.NoError(t, err)
		assert.Empty(t, todos)
		return nil
	})
	require.NoError(t, err)
}
