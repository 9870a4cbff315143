package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// PageInfo is the pagination metadata accompanying a windowed task listing.
type PageInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// TaskService provides task-related operations.
type TaskService interface {
	// List returns the tasks matching the options, ordered and windowed
	// per the options.
	List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error)

	// Count returns the total number of tasks matching the filter,
	// independent of any pagination window.
	Count(ctx context.Context, filter store.Filter) (int64, error)

	// ListPage combines List and Count: when the options carry a
	// pagination window it returns the page of tasks plus PageInfo with
	// the total matching rows and page count; otherwise PageInfo is nil
	// and the full filtered result set is returned.
	ListPage(ctx context.Context, opts store.ListOptions) ([]*domain.Task, *PageInfo, error)

	// Create trims the title and description and persists a new active,
	// not-done task. Returns domain validation errors for an
	// empty-after-trim title even though the HTTP layer rejects those
	// upstream.
	Create(ctx context.Context, title string, description *string) (*domain.Task, error)

	// Get returns the task with the given ID. A soft-deleted task is
	// reported as store.ErrTaskNotFound unless includeDeleted is set.
	Get(ctx context.Context, id int64, includeDeleted bool) (*domain.Task, error)

	// Update applies the supplied fields only; a nil field leaves the
	// stored value unchanged. A supplied title is trimmed and must be
	// non-empty. Returns store.ErrTaskNotFound if no row with that ID
	// exists.
	Update(ctx context.Context, id int64, params store.UpdateTaskParams) (*domain.Task, error)

	// SoftDelete marks the task deleted by stamping deleted_at.
	// Deleting an already-deleted task re-stamps the timestamp; this
	// keeps DELETE idempotent from the client's point of view.
	SoftDelete(ctx context.Context, id int64) error

	// Restore transitions a soft-deleted task back to active. It is the
	// only Deleted->Active transition: a missing row yields
	// store.ErrTaskNotFound, an active row store.ErrTaskNotDeleted.
	// Under concurrent writers the returned task is best-effort current
	// state after the guarded update, not a linearizable snapshot.
	Restore(ctx context.Context, id int64) (*domain.Task, error)
}

// taskService is the store-backed implementation of TaskService.
type taskService struct {
	store  store.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a new TaskService backed by the given store.
func NewTaskService(taskStore store.TaskStore, logger *slog.Logger) (TaskService, error) {
	if taskStore == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskService{
		store:  taskStore,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

func (s *taskService) List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error) {
	return s.store.List(ctx, opts)
}

func (s *taskService) Count(ctx context.Context, filter store.Filter) (int64, error) {
	return s.store.Count(ctx, filter)
}

func (s *taskService) ListPage(ctx context.Context, opts store.ListOptions) ([]*domain.Task, *PageInfo, error) {
	tasks, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	if !opts.Windowed() {
		return tasks, nil, nil
	}

	total, err := s.store.Count(ctx, opts.Filter)
	if err != nil {
		return nil, nil, err
	}

	limit := *opts.Limit
	info := &PageInfo{
		Page:  *opts.Page,
		Limit: limit,
		Total: total,
		Pages: int((total + int64(limit) - 1) / int64(limit)),
	}

	return tasks, info, nil
}

func (s *taskService) Create(ctx context.Context, title string, description *string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(title, description)
	if err != nil {
		log.Warn("rejected invalid task on create",
			slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (s *taskService) Get(ctx context.Context, id int64, includeDeleted bool) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// A deleted row stays invisible unless the caller asked for it.
	if task.IsDeleted() && !includeDeleted {
		return nil, store.ErrTaskNotFound
	}

	return task, nil
}

func (s *taskService) Update(ctx context.Context, id int64, params store.UpdateTaskParams) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if params.Title != nil {
		trimmed := strings.TrimSpace(*params.Title)
		if trimmed == "" {
			log.Warn("rejected empty title on update", slog.Int64("task_id", id))
			return nil, domain.ErrEmptyTaskTitle
		}
		params.Title = &trimmed
	}

	if params.Description != nil {
		trimmed := strings.TrimSpace(*params.Description)
		params.Description = &trimmed
	}

	return s.store.Update(ctx, id, params)
}

func (s *taskService) SoftDelete(ctx context.Context, id int64) error {
	return s.store.SoftDelete(ctx, id)
}

func (s *taskService) Restore(ctx context.Context, id int64) (*domain.Task, error) {
	return s.store.Restore(ctx, id)
}
