package sync

import (
	"github.com/ivmelnik/todosync/internal/models"
	"github.com/ivmelnik/todosync/pkg/api"
)

// todoCollection префикс ключей патча: "<collection>/<recordId>"
const todoCollection = "todo"

func todoKey(id string) string {
	return todoCollection + "/" + id
}

// todoToAPI конвертирует серверную модель в wire-формат.
// UserID наружу не отдается: клиент и так видит только свои записи.
func todoToAPI(t *models.Todo) *api.Todo {
	return &api.Todo{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		DeletedAt: t.DeletedAt,
		Version:   t.Version,
	}
}
