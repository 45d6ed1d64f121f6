package models

// Мутации, которые понимает сервер. Неизвестные имена не ошибка:
// они пропускаются с warning ради совместимости с будущими клиентами.
const (
	MutationCreate = "create"
	MutationUpdate = "update"
	MutationDelete = "delete"
)

// CreateTodoArgs аргументы мутации "create"
type CreateTodoArgs struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// UpdateTodoArgs аргументы мутации "update"
type UpdateTodoArgs struct {
	ID      string     `json:"id"`
	Updates TodoUpdate `json:"updates"`
}

// Аргумент мутации "delete" — просто id записи (JSON-строка),
// отдельного типа для него нет.
