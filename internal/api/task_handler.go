package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/store"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /tasks requests
// It returns either the bare filtered listing or, when both page and limit
// are supplied, the page of tasks wrapped with pagination metadata.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	opts, err := parseListOptions(r)
	if err != nil {
		log.Debug("invalid list query", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, page, err := h.taskService.ListPage(r.Context(), opts)
	if err != nil {
		HandleAPIError(w, r, err, "failed to list tasks")
		return
	}

	if page == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskPageResponse{
		Data: tasksToResponse(tasks),
		Meta: *page,
	})
}

// CreateTask handles POST /tasks requests
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("invalid request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := shared.ValidateRequest(req); err != nil || strings.TrimSpace(req.Title) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"title is required and must be a non-empty string")
		return
	}

	task, err := h.taskService.Create(r.Context(), req.Title, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task created", slog.Int64("task_id", task.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /tasks/{id} requests
// A soft-deleted task is reported as not found unless the caller passed
// includeDeleted=true.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	includeDeleted, err := parseBoolParam(r.URL.Query(), "includeDeleted")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.Get(r.Context(), id, includeDeleted != nil && *includeDeleted)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PUT /tasks/{id} requests
// This is a partial update: omitted fields keep their stored values.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("invalid request body",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))

		// Field-level errors (explicit null, wrong type) carry their own
		// message; anything else is malformed JSON.
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"title must be a non-empty string")
		return
	}

	task, err := h.taskService.Update(r.Context(), id, updateParams(req))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task updated", slog.Int64("task_id", task.ID))
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /tasks/{id} requests
// Tasks are soft-deleted; the row is kept and can be restored later.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.taskService.SoftDelete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task soft-deleted", slog.Int64("task_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// RestoreTask handles PATCH /tasks/{id}/restore requests
// Restoring is only valid on a currently-deleted task: a missing row is a
// 404, an active row a 409.
func (h *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.Restore(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task restored", slog.Int64("task_id", id))
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// updateParams converts an update request body into store update params.
func updateParams(req UpdateTaskRequest) store.UpdateTaskParams {
	return store.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Done:        req.Done,
	}
}
