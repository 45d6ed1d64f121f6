package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ivmelnik/todosync/internal/server/sync"
	"github.com/ivmelnik/todosync/internal/validation"
	"github.com/ivmelnik/todosync/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

// UserIDKey ключ для хранения user_id в контексте
const UserIDKey contextKey = "user_id"

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// SyncHandler handles push and pull requests
type SyncHandler struct {
	logger  *slog.Logger
	service *sync.Service
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, service *sync.Service) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		service: service,
	}
}

// HandlePush обрабатывает POST /api/v1/sync/push
// Принимает batch офлайн-мутаций и возвращает подтвержденные mutation id
func (h *SyncHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// user_id установлен AuthMiddleware; до аутентификации состояние не трогаем
	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidatePushRequest(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid push request", slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.InfoContext(ctx, "push request",
		slog.String("user_id", userID),
		slog.String("client_group_id", req.ClientGroupID),
		slog.Int("mutations_count", len(req.Mutations)))

	resp, err := h.service.Push(ctx, userID, &req)
	if err != nil {
		h.logger.ErrorContext(ctx, "push failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "push completed",
		slog.String("user_id", userID),
		slog.Int("acknowledged_clients", len(resp.LastMutationIDChanges)))

	h.sendJSON(w, resp, http.StatusOK)
}

// HandlePull обрабатывает POST /api/v1/sync/pull
// Возвращает патч (snapshot или delta), новый cookie и изменившиеся
// подтверждения мутаций
func (h *SyncHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode pull request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidatePullRequest(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid pull request", slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.InfoContext(ctx, "pull request",
		slog.String("user_id", userID),
		slog.Bool("first_pull", req.Cookie == nil))

	resp, err := h.service.Pull(ctx, userID, &req)
	if err != nil {
		h.logger.ErrorContext(ctx, "pull failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "pull completed",
		slog.String("user_id", userID),
		slog.Int("patch_size", len(resp.Patch)),
		slog.Int64("cookie_order", resp.Cookie.Order))

	h.sendJSON(w, resp, http.StatusOK)
}

// sendJSON отправляет JSON ответ с указанным статусом
func (h *SyncHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *SyncHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}
