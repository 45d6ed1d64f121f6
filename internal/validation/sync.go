package validation

import (
	"fmt"

	"github.com/ivmelnik/todosync/pkg/api"
)

const (
	// MaxClientIDLen максимальная длина идентификатора клиента/группы
	MaxClientIDLen = 128
	// MaxMutationsPerPush максимальный размер batch'а мутаций
	MaxMutationsPerPush = 1000
)

// ValidateClientID проверяет непрозрачный идентификатор клиентской реплики.
// Формат не навязываем (id выдает клиентская библиотека), только границы.
func ValidateClientID(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client id cannot be empty")
	}

	if len(clientID) > MaxClientIDLen {
		return fmt.Errorf("client id must not exceed %d characters", MaxClientIDLen)
	}

	return nil
}

// ValidatePushRequest проверяет структуру push запроса до обработки.
// Семантические проверки (порядок, дубликаты) — дело Mutation Processor'а,
// здесь только malformed body.
func ValidatePushRequest(req *api.PushRequest) error {
	if err := ValidateClientID(req.ClientGroupID); err != nil {
		return fmt.Errorf("clientGroupID: %w", err)
	}

	if len(req.Mutations) > MaxMutationsPerPush {
		return fmt.Errorf("too many mutations in one push: %d (max %d)", len(req.Mutations), MaxMutationsPerPush)
	}

	for i, m := range req.Mutations {
		if err := ValidateClientID(m.ClientID); err != nil {
			return fmt.Errorf("mutation %d: clientID: %w", i, err)
		}
		if m.ID < 1 {
			return fmt.Errorf("mutation %d: id must be positive, got %d", i, m.ID)
		}
		if m.Name == "" {
			return fmt.Errorf("mutation %d: name cannot be empty", i)
		}
	}

	return nil
}

// ValidatePullRequest проверяет структуру pull запроса.
// Отсутствующий cookie валиден — это первый pull инсталляции.
func ValidatePullRequest(req *api.PullRequest) error {
	if req.Cookie != nil && req.Cookie.Order < 0 {
		return fmt.Errorf("cookie order cannot be negative, got %d", req.Cookie.Order)
	}

	return nil
}
