package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
)

// SortField identifies a task column that list results may be ordered by.
type SortField string

// Allowed sort fields for task listings.
const (
	SortByID        SortField = "id"
	SortByTitle     SortField = "title"
	SortByDone      SortField = "done"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// Valid reports whether the sort field is one of the allowed task columns.
func (f SortField) Valid() bool {
	switch f {
	case SortByID, SortByTitle, SortByDone, SortByCreatedAt, SortByUpdatedAt:
		return true
	default:
		return false
	}
}

// SortOrder is the direction of a task listing.
type SortOrder string

// Allowed sort orders.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Valid reports whether the sort order is "asc" or "desc".
func (o SortOrder) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// Filter holds the logical constraints applied to task listings and counts.
// Every field is optional; absent fields impose no constraint. All supplied
// constraints are combined with logical AND.
type Filter struct {
	// Done restricts results to tasks with a matching done value.
	Done *bool

	// Search restricts results to tasks whose title contains the string,
	// case-insensitively. Callers must pass an already-trimmed, non-empty
	// string or leave it empty.
	Search string

	// IncludeDeleted lifts the default deleted_at IS NULL restriction.
	IncludeDeleted bool

	// OnlyDeleted restricts results to soft-deleted tasks. It takes
	// precedence over IncludeDeleted when both are set.
	OnlyDeleted bool

	// CreatedFrom and CreatedTo bound the task's creation time (inclusive).
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ListOptions extends Filter with ordering and an optional pagination window.
type ListOptions struct {
	Filter

	// Sort is the column to order by. Defaults to SortByID when empty.
	Sort SortField

	// Order is the sort direction. Defaults to OrderAsc when empty.
	Order SortOrder

	// Page and Limit form the pagination window. The window is applied only
	// when both are set: offset (Page-1)*Limit, at most Limit rows.
	Page  *int
	Limit *int
}

// Windowed reports whether both pagination parameters are present.
func (o ListOptions) Windowed() bool {
	return o.Page != nil && o.Limit != nil
}

// UpdateTaskParams holds the optional fields of a partial task update.
// Nil fields are left unchanged.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Done        *bool
}

// TaskStore defines the interface for task data persistence.
//
// Implementations exist for PostgreSQL (internal/platform/postgres) and
// in-memory storage (internal/platform/memory); both honor the same
// contract so they are interchangeable behind this interface.
type TaskStore interface {
	// Create saves a new task and assigns its ID.
	// The task must already be valid per domain validation rules.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID regardless of its
	// deleted state; callers decide how to treat soft-deleted rows.
	// Returns ErrTaskNotFound if no row with that ID exists.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// List returns the tasks matching the options' filter, ordered by the
	// requested sort field and direction. When the options carry a
	// pagination window only that window of rows is returned.
	List(ctx context.Context, opts ListOptions) ([]*domain.Task, error)

	// Count returns the total number of tasks matching the filter,
	// independent of any pagination window.
	Count(ctx context.Context, filter Filter) (int64, error)

	// Update applies the non-nil fields of params to the task and bumps
	// its updated_at timestamp. Returns the updated task, or
	// ErrTaskNotFound if no row with that ID exists.
	Update(ctx context.Context, id int64, params UpdateTaskParams) (*domain.Task, error)

	// SoftDelete stamps the task's deleted_at with the current time.
	// An already-deleted task is re-stamped without a distinct error.
	// Returns ErrTaskNotFound if no row with that ID exists.
	SoftDelete(ctx context.Context, id int64) error

	// Restore clears deleted_at, but only if the task is currently
	// soft-deleted. Returns ErrTaskNotFound if no row with that ID
	// exists, ErrTaskNotDeleted if the row exists but is active, and the
	// now-active task otherwise.
	Restore(ctx context.Context, id int64) (*domain.Task, error)

	// WithTx returns a TaskStore bound to the provided transaction.
	// The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
