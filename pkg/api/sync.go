package api

import "encoding/json"

// Patch operation kinds понятные Replicache-совместимому клиенту
const (
	PatchOpClear = "clear"
	PatchOpPut   = "put"
	PatchOpDel   = "del"
)

// Todo представляет одну запись списка дел в том виде,
// в котором она попадает в patch (value операции "put").
// Все timestamps в Unix milliseconds.
type Todo struct {
	ID        string `json:"id"`        // ID уникальный идентификатор записи (UUID, выдается сервером)
	Text      string `json:"text"`      // Text текст задачи
	Completed bool   `json:"completed"` // Completed флаг выполнения
	CreatedAt int64  `json:"createdAt"` // CreatedAt время создания
	UpdatedAt *int64 `json:"updatedAt"` // UpdatedAt время последнего изменения (null если не менялась)
	DeletedAt *int64 `json:"deletedAt"` // DeletedAt время soft delete (null для живых записей)
	Version   int64  `json:"version"`   // Version позиция записи в последовательности версий пользователя
}

// Mutation представляет одну офлайн-мутацию клиента.
// ID назначается клиентом, строго возрастает начиная с 1 для каждого clientID.
type Mutation struct {
	ID        int64           `json:"id"`        // ID порядковый номер мутации у клиента
	ClientID  string          `json:"clientID"`  // ClientID идентификатор клиентской реплики
	Name      string          `json:"name"`      // Name вид мутации: "create", "update", "delete"
	Args      json.RawMessage `json:"args"`      // Args аргументы, формат зависит от Name
	Timestamp int64           `json:"timestamp"` // Timestamp клиентское время создания мутации (информационно)
}

// PushRequest представляет batch мутаций от группы клиентов одного пользователя
type PushRequest struct {
	ClientGroupID string     `json:"clientGroupID"` // ClientGroupID идентификатор группы клиентских реплик
	Mutations     []Mutation `json:"mutations"`     // Mutations мутации в порядке, заданном клиентом
}

// PushResponse представляет ответ на push: подтвержденные мутации по клиентам
type PushResponse struct {
	// LastMutationIDChanges map clientID -> последний применённый mutation id
	LastMutationIDChanges map[string]int64 `json:"lastMutationIDChanges"`
}

// PullCookie отмечает максимальную версию, которую клиент уже видел.
// Для клиента значение непрозрачно и возвращается на следующем pull как есть.
type PullCookie struct {
	Order int64 `json:"order"`
}

// PullRequest представляет запрос на синхронизацию.
// Cookie == nil означает первый pull данной инсталляции клиента.
type PullRequest struct {
	Cookie *PullCookie `json:"cookie"`
}

// PatchOperation представляет одну операцию патча.
// Key и Value заполняются в зависимости от Op:
// "clear" — оба пустые, "put" — key+value, "del" — только key.
type PatchOperation struct {
	Op    string `json:"op"`
	Key   string `json:"key,omitempty"`
	Value *Todo  `json:"value,omitempty"`
}

// PullResponse представляет ответ на pull: патч, новый cookie
// и изменившиеся подтверждения мутаций других клиентов
type PullResponse struct {
	Cookie                PullCookie       `json:"cookie"`
	LastMutationIDChanges map[string]int64 `json:"lastMutationIDChanges"`
	Patch                 []PatchOperation `json:"patch"`
}
