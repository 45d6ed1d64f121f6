// Package sync реализует серверную часть протокола синхронизации:
// применение офлайн-мутаций клиентов (push) и выдачу инкрементальных
// патчей (pull) поверх версионируемого хранилища.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ivmelnik/todosync/internal/server/storage"
	"github.com/ivmelnik/todosync/pkg/api"
)

// Service обрабатывает push и pull запросы одного аутентифицированного
// пользователя. Никакого состояния между запросами в процессе не живет:
// все долговременное — в storage.
type Service struct {
	logger *slog.Logger
	store  storage.SyncStorage

	// переопределяются в тестах
	now   func() int64
	newID func() string
}

// NewService creates a new sync service
func NewService(logger *slog.Logger, store storage.SyncStorage) *Service {
	return &Service{
		logger: logger,
		store:  store,
		now:    func() int64 { return time.Now().UnixMilli() },
		newID:  func() string { return uuid.New().String() },
	}
}

// Push применяет batch мутаций строго в порядке массива (порядок задан
// клиентом и не пересортировывается: в одной группе могут чередоваться
// мутации разных клиентов). Ошибка одной мутации не прерывает batch;
// ошибка хранилища откатывает и проваливает весь запрос.
//
// Возвращаемая map clientID -> last mutation id монотонна: дубликат никогда
// не понижает уже подтвержденный id.
func (s *Service) Push(ctx context.Context, userID string, req *api.PushRequest) (*api.PushResponse, error) {
	changes := make(map[string]int64)

	err := s.store.WithTx(ctx, func(tx storage.SyncTx) error {
		for _, m := range req.Mutations {
			outcome, ackID, err := s.applyMutation(ctx, tx, userID, m)
			if err != nil {
				var mutErr *MutationError
				if errors.As(err, &mutErr) {
					// Ошибка уровня одной мутации: логируем и продолжаем batch
					s.logger.ErrorContext(ctx, "failed to apply mutation",
						slog.String("client_id", m.ClientID),
						slog.Int64("mutation_id", m.ID),
						slog.String("mutation_name", m.Name),
						slog.Any("error", err))
					continue
				}
				// Ошибка хранилища проваливает весь push, транзакция откатится
				return err
			}

			switch outcome {
			case OutcomeApplied, OutcomeUnknownSkipped, OutcomeDuplicateIgnored:
				if ackID > changes[m.ClientID] {
					changes[m.ClientID] = ackID
				}
			case OutcomeOutOfOrderSkipped:
				// Клиент сам обнаружит пропуск и сделает resync
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &api.PushResponse{LastMutationIDChanges: changes}, nil
}

// Pull возвращает патч, новый cookie и изменившиеся подтверждения мутаций.
//
// Без cookie (первый pull инсталляции) — snapshot: "clear" плюс "put" для
// каждой живой записи. С cookie — delta: "put"/"del" для записей с
// version > cookie.order. В обоих режимах патч упорядочен по версии,
// клиент, применяющий его последовательно, не увидит откат позднего write
// более ранним.
func (s *Service) Pull(ctx context.Context, userID string, req *api.PullRequest) (*api.PullResponse, error) {
	resp := &api.PullResponse{
		LastMutationIDChanges: make(map[string]int64),
		Patch:                 []api.PatchOperation{},
	}

	err := s.store.WithTx(ctx, func(tx storage.SyncTx) error {
		if req.Cookie == nil {
			if err := s.buildSnapshot(ctx, tx, userID, resp); err != nil {
				return err
			}
		} else {
			if err := s.buildDelta(ctx, tx, userID, req.Cookie.Order, resp); err != nil {
				return err
			}
		}

		// Cookie — максимум обеих последовательностей после чтения: следующий
		// pull продолжит ровно отсюда, даже если writes записей и курсоров
		// чередовались
		maxTodo, err := tx.MaxTodoVersion(ctx, userID)
		if err != nil {
			return err
		}
		maxCursor, err := tx.MaxCursorVersion(ctx, userID)
		if err != nil {
			return err
		}
		resp.Cookie.Order = max(maxTodo, maxCursor)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// buildSnapshot собирает полный патч: clear + put для каждой живой записи
func (s *Service) buildSnapshot(ctx context.Context, tx storage.SyncTx, userID string, resp *api.PullResponse) error {
	todos, err := tx.ListTodos(ctx, userID)
	if err != nil {
		return err
	}

	resp.Patch = append(resp.Patch, api.PatchOperation{Op: api.PatchOpClear})
	for _, todo := range todos {
		resp.Patch = append(resp.Patch, api.PatchOperation{
			Op:    api.PatchOpPut,
			Key:   todoKey(todo.ID),
			Value: todoToAPI(todo),
		})
	}

	cursors, err := tx.ListCursors(ctx, userID)
	if err != nil {
		return err
	}
	resp.LastMutationIDChanges = cursors

	return nil
}

// buildDelta собирает инкрементальный патч: put для живых записей и del
// для tombstone'ов с version > since
func (s *Service) buildDelta(ctx context.Context, tx storage.SyncTx, userID string, since int64, resp *api.PullResponse) error {
	todos, err := tx.ListTodosSince(ctx, userID, since)
	if err != nil {
		return err
	}

	for _, todo := range todos {
		if todo.Deleted() {
			resp.Patch = append(resp.Patch, api.PatchOperation{
				Op:  api.PatchOpDel,
				Key: todoKey(todo.ID),
			})
			continue
		}
		resp.Patch = append(resp.Patch, api.PatchOperation{
			Op:    api.PatchOpPut,
			Key:   todoKey(todo.ID),
			Value: todoToAPI(todo),
		})
	}

	cursors, err := tx.ListCursorsSince(ctx, userID, since)
	if err != nil {
		return err
	}
	resp.LastMutationIDChanges = cursors

	return nil
}
