package models

// Todo представляет одну запись списка дел на сервере.
// Записи никогда не удаляются физически: delete проставляет DeletedAt,
// и запись остается tombstone'ом, чтобы удаление было видно в delta pull.
type Todo struct {
	ID        string // ID уникальный идентификатор (UUID, генерируется сервером)
	UserID    string // UserID владелец записи; записи разных пользователей невидимы друг другу
	Text      string // Text текст задачи
	Completed bool   // Completed флаг выполнения
	CreatedAt int64  // CreatedAt Unix milliseconds создания
	UpdatedAt *int64 // UpdatedAt Unix milliseconds последнего update (nil если не было)
	DeletedAt *int64 // DeletedAt Unix milliseconds soft delete (nil для живой записи)
	Version   int64  // Version штамп из общей растущей последовательности пользователя
}

// Deleted сообщает, является ли запись tombstone'ом
func (t *Todo) Deleted() bool {
	return t.DeletedAt != nil
}

// TodoUpdate представляет частичное обновление записи.
// nil-поле означает "не менять".
type TodoUpdate struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// ClientCursor представляет подтверждение мутаций одной клиентской реплики:
// наибольший mutation id, который сервер надежно применил для этого клиента.
// Cursor версионируется той же последовательностью, что и записи, чтобы
// изменения подтверждений тоже попадали в delta pull.
type ClientCursor struct {
	ClientID       string // ClientID идентификатор клиентской реплики
	UserID         string // UserID владелец реплики
	LastMutationID int64  // LastMutationID последний применённый mutation id (мутации нумеруются с 1, без пропусков)
	Version        int64  // Version штамп из общей последовательности пользователя
}
