package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ivmelnik/todosync/internal/models"
	"github.com/ivmelnik/todosync/internal/server/storage"
	"github.com/ivmelnik/todosync/pkg/api"
)

// Outcome описывает результат применения одной мутации
type Outcome int

const (
	// OutcomeApplied мутация применена, cursor продвинут
	OutcomeApplied Outcome = iota
	// OutcomeDuplicateIgnored мутация уже применялась раньше, состояние не менялось
	OutcomeDuplicateIgnored
	// OutcomeOutOfOrderSkipped пропуск в нумерации, мутация отброшена
	OutcomeOutOfOrderSkipped
	// OutcomeUnknownSkipped неизвестный вид мутации, проигнорирована с warning
	OutcomeUnknownSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicateIgnored:
		return "duplicate_ignored"
	case OutcomeOutOfOrderSkipped:
		return "out_of_order_skipped"
	case OutcomeUnknownSkipped:
		return "unknown_skipped"
	default:
		return "unknown_outcome"
	}
}

// MutationError помечает ошибку уровня одной мутации: она логируется,
// но не прерывает batch. Ошибки хранилища в этот тип не заворачиваются.
type MutationError struct {
	ClientID   string
	MutationID int64
	Err        error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation %d from client %s: %v", e.MutationID, e.ClientID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Закрытый набор типизированных операций, в которые разбирается мутация.
// Неизвестное имя не порождает операцию и обрабатывается default-веткой.
type mutationOp interface {
	isMutationOp()
}

type createOp struct {
	args models.CreateTodoArgs
}

type updateOp struct {
	args models.UpdateTodoArgs
}

type deleteOp struct {
	todoID string
}

func (createOp) isMutationOp() {}
func (updateOp) isMutationOp() {}
func (deleteOp) isMutationOp() {}

// parseMutation разбирает мутацию в типизированную операцию.
// Возвращает (nil, nil) для неизвестного имени мутации.
func parseMutation(m api.Mutation) (mutationOp, error) {
	switch m.Name {
	case models.MutationCreate:
		var args models.CreateTodoArgs
		if err := json.Unmarshal(m.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid create args: %w", err)
		}
		return createOp{args: args}, nil

	case models.MutationUpdate:
		var args models.UpdateTodoArgs
		if err := json.Unmarshal(m.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid update args: %w", err)
		}
		return updateOp{args: args}, nil

	case models.MutationDelete:
		var todoID string
		if err := json.Unmarshal(m.Args, &todoID); err != nil {
			return nil, fmt.Errorf("invalid delete args: %w", err)
		}
		return deleteOp{todoID: todoID}, nil

	default:
		return nil, nil
	}
}

// applyMutation применяет одну мутацию. Возвращает результат и id,
// который следует отразить в ответе для этого клиента (для дубликата —
// текущий подтвержденный id, он больше либо равен id мутации).
//
// Ошибки делятся на два класса: *MutationError не прерывает batch,
// любая другая ошибка — ошибка хранилища, она откатывает весь push.
func (s *Service) applyMutation(ctx context.Context, tx storage.SyncTx, userID string, m api.Mutation) (Outcome, int64, error) {
	lastID, err := tx.LastMutationID(ctx, m.ClientID)
	if err != nil {
		return 0, 0, err
	}

	// Повторная доставка: состояние не трогаем, но текущий подтвержденный id
	// все равно сообщаем, чтобы ответ не регрессировал
	if m.ID <= lastID {
		s.logger.DebugContext(ctx, "duplicate mutation ignored",
			slog.String("client_id", m.ClientID),
			slog.Int64("mutation_id", m.ID),
			slog.Int64("last_mutation_id", lastID))
		return OutcomeDuplicateIgnored, lastID, nil
	}

	// Пропуск в нумерации: мутацию отбрасываем, клиент обнаружит gap сам
	// и сделает resync. Буферизация на сервере не предусмотрена.
	if m.ID != lastID+1 {
		s.logger.WarnContext(ctx, "mutation out of order, skipping",
			slog.String("client_id", m.ClientID),
			slog.Int64("expected_id", lastID+1),
			slog.Int64("got_id", m.ID))
		return OutcomeOutOfOrderSkipped, 0, nil
	}

	op, err := parseMutation(m)
	if err != nil {
		return 0, 0, &MutationError{ClientID: m.ClientID, MutationID: m.ID, Err: err}
	}

	switch op := op.(type) {
	case createOp:
		// id выдает сервер, а не клиент: глобальная уникальность между
		// клиентами гарантирована генерацией UUID
		todo := &models.Todo{
			ID:        s.newID(),
			UserID:    userID,
			Text:      op.args.Text,
			Completed: op.args.Completed,
			CreatedAt: s.now(),
		}
		if err := tx.CreateTodo(ctx, todo); err != nil {
			return 0, 0, err
		}

	case updateOp:
		// Отсутствие записи не ошибка: ее могла параллельно удалить
		// другая реплика того же пользователя
		updated, err := tx.UpdateTodo(ctx, userID, op.args.ID, op.args.Updates)
		if err != nil {
			return 0, 0, err
		}
		if !updated {
			s.logger.DebugContext(ctx, "update target absent, tolerated",
				slog.String("todo_id", op.args.ID))
		}

	case deleteOp:
		deleted, err := tx.SoftDeleteTodo(ctx, userID, op.todoID)
		if err != nil {
			return 0, 0, err
		}
		if !deleted {
			s.logger.DebugContext(ctx, "delete target absent, tolerated",
				slog.String("todo_id", op.todoID))
		}

	default:
		// Неизвестный вид мутации: игнорируем, не отвергаем — иначе клиенты
		// с более новыми мутаторами зависнут на resend. Cursor продвигаем.
		s.logger.WarnContext(ctx, "unknown mutation, skipping",
			slog.String("client_id", m.ClientID),
			slog.Int64("mutation_id", m.ID),
			slog.String("mutation_name", m.Name))
		if err := tx.RecordMutation(ctx, m.ClientID, userID, m.ID); err != nil {
			return 0, 0, err
		}
		return OutcomeUnknownSkipped, m.ID, nil
	}

	if err := tx.RecordMutation(ctx, m.ClientID, userID, m.ID); err != nil {
		return 0, 0, err
	}

	return OutcomeApplied, m.ID, nil
}
