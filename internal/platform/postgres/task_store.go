package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
// It saves a new task to the database and fills in the store-assigned ID.
// Returns validation errors from the domain Task if data is invalid.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO tasks (title, description, done, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Done,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)

	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Info("task created successfully",
		slog.Int64("task_id", task.ID))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// It retrieves a task by its unique ID, whether or not it is soft-deleted.
// Returns store.ErrTaskNotFound if no row with that ID exists.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	return task, nil
}

// List implements store.TaskStore.List
// It returns the tasks matching the options' filter, ordered by the
// requested sort field and direction, windowed when pagination is set.
func (s *PostgresTaskStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args := buildListQuery(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "list", "failed to scan row", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "row iteration failed", err)
	}

	return tasks, nil
}

// Count implements store.TaskStore.Count
// It returns the total number of tasks matching the filter, independent of
// any pagination window.
func (s *PostgresTaskStore) Count(ctx context.Context, filter store.Filter) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args := buildCountQuery(filter)

	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	return total, nil
}

// Update implements store.TaskStore.Update
// It applies the non-nil fields of params to the task and bumps updated_at.
// Returns store.ErrTaskNotFound if no row with that ID exists.
func (s *PostgresTaskStore) Update(ctx context.Context, id int64, params store.UpdateTaskParams) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Build the SET clause from the supplied fields only; updated_at is
	// always bumped so a field-less update still counts as a mutation.
	sets := []string{}
	args := []any{}

	if params.Title != nil {
		args = append(args, *params.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if params.Description != nil {
		args = append(args, *params.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if params.Done != nil {
		args = append(args, *params.Done)
		sets = append(sets, fmt.Sprintf("done = $%d", len(args)))
	}

	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "),
		len(args),
		taskColumns,
	)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found during update", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	log.Info("task updated successfully", slog.Int64("task_id", id))
	return task, nil
}

// SoftDelete implements store.TaskStore.SoftDelete
// It stamps deleted_at with the current time. Re-deleting an already-deleted
// task re-stamps the timestamp rather than failing.
// Returns store.ErrTaskNotFound if no row with that ID exists.
func (s *PostgresTaskStore) SoftDelete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `UPDATE tasks SET deleted_at = $1, updated_at = $1 WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, now, id)
	if err != nil {
		log.Error("failed to soft-delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		log.Debug("task not found during soft-delete", slog.Int64("task_id", id))
		return err
	}

	log.Info("task soft-deleted", slog.Int64("task_id", id))
	return nil
}

// Restore implements store.TaskStore.Restore
// It clears deleted_at with a guarded update so only a currently-deleted row
// is restored, then re-reads the row to distinguish a missing task from an
// active one. Under concurrent writers the returned task is the row's state
// after the guarded update, not a linearizable snapshot.
func (s *PostgresTaskStore) Restore(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks SET deleted_at = NULL, updated_at = $1
		WHERE id = $2 AND deleted_at IS NOT NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to restore task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, store.NewStoreError("task", "restore", "failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		// The guard did not match: the row is either missing or active.
		_, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		log.Debug("restore rejected, task is not deleted", slog.Int64("task_id", id))
		return nil, store.ErrTaskNotDeleted
	}

	task, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Info("task restored", slog.Int64("task_id", id))
	return task, nil
}

// WithTx implements store.TaskStore.WithTx
// It returns a TaskStore bound to the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row, converting nullable columns to pointers.
func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var description sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.Title,
		&description,
		&task.Done,
		&task.CreatedAt,
		&task.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		task.Description = &description.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		task.DeletedAt = &t
	}

	return &task, nil
}
