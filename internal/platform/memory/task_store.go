// Package memory provides an in-memory implementation of the task store.
// It honors the same contract as the PostgreSQL implementation and backs
// tests and local development where no database is available.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
)

// MemoryTaskStore implements store.TaskStore with a process-local map.
// All methods are safe for concurrent use.
type MemoryTaskStore struct {
	mu     sync.RWMutex
	tasks  map[int64]*domain.Task
	nextID int64
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks:  make(map[int64]*domain.Task),
		nextID: 1,
	}
}

// Ensure MemoryTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*MemoryTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *MemoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = s.nextID
	s.nextID++
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *MemoryTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// List implements store.TaskStore.List
func (s *MemoryTaskStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error) {
	s.mu.RLock()
	matched := []*domain.Task{}
	for _, task := range s.tasks {
		if matchesFilter(task, opts.Filter) {
			matched = append(matched, cloneTask(task))
		}
	}
	s.mu.RUnlock()

	sortTasks(matched, opts.Sort, opts.Order)

	if opts.Windowed() {
		offset := (*opts.Page - 1) * *opts.Limit
		if offset >= len(matched) {
			return []*domain.Task{}, nil
		}
		end := offset + *opts.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[offset:end]
	}

	return matched, nil
}

// Count implements store.TaskStore.Count
func (s *MemoryTaskStore) Count(ctx context.Context, filter store.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, task := range s.tasks {
		if matchesFilter(task, filter) {
			total++
		}
	}
	return total, nil
}

// Update implements store.TaskStore.Update
func (s *MemoryTaskStore) Update(ctx context.Context, id int64, params store.UpdateTaskParams) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}

	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		d := *params.Description
		task.Description = &d
	}
	if params.Done != nil {
		task.Done = *params.Done
	}
	task.UpdatedAt = time.Now().UTC()

	return cloneTask(task), nil
}

// SoftDelete implements store.TaskStore.SoftDelete
// An already-deleted task is re-stamped, matching the PostgreSQL behavior.
func (s *MemoryTaskStore) SoftDelete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}

	now := time.Now().UTC()
	task.DeletedAt = &now
	task.UpdatedAt = now
	return nil
}

// Restore implements store.TaskStore.Restore
func (s *MemoryTaskStore) Restore(ctx context.Context, id int64) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if task.DeletedAt == nil {
		return nil, store.ErrTaskNotDeleted
	}

	task.DeletedAt = nil
	task.UpdatedAt = time.Now().UTC()
	return cloneTask(task), nil
}

// WithTx implements store.TaskStore.WithTx
// The in-memory store has no transactions; it returns itself.
func (s *MemoryTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return s
}

// matchesFilter applies the same predicate semantics as the SQL builder:
// AND of all supplied constraints, with OnlyDeleted overriding IncludeDeleted.
func matchesFilter(task *domain.Task, filter store.Filter) bool {
	if filter.Done != nil && task.Done != *filter.Done {
		return false
	}

	if filter.Search != "" &&
		!strings.Contains(strings.ToLower(task.Title), strings.ToLower(filter.Search)) {
		return false
	}

	switch {
	case filter.OnlyDeleted:
		if task.DeletedAt == nil {
			return false
		}
	case !filter.IncludeDeleted:
		if task.DeletedAt != nil {
			return false
		}
	}

	if filter.CreatedFrom != nil && task.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && task.CreatedAt.After(*filter.CreatedTo) {
		return false
	}

	return true
}

// sortTasks orders tasks by the requested field and direction, with ID as a
// tie-break so pagination windows stay deterministic.
func sortTasks(tasks []*domain.Task, field store.SortField, order store.SortOrder) {
	if field == "" {
		field = store.SortByID
	}
	desc := order == store.OrderDesc

	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if c := compareTasks(a, b, field); c != 0 {
			if desc {
				return c > 0
			}
			return c < 0
		}
		// Tie-break on ID ascending regardless of direction, matching the
		// secondary ordering of the SQL implementation.
		return a.ID < b.ID
	})
}

// compareTasks orders two tasks by a single field: -1, 0 or 1.
func compareTasks(a, b *domain.Task, field store.SortField) int {
	switch field {
	case store.SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case store.SortByDone:
		switch {
		case a.Done == b.Done:
			return 0
		case b.Done:
			return -1
		default:
			return 1
		}
	case store.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case store.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	}
}

// cloneTask copies a task so callers never share memory with the store.
func cloneTask(task *domain.Task) *domain.Task {
	clone := *task
	if task.Description != nil {
		d := *task.Description
		clone.Description = &d
	}
	if task.DeletedAt != nil {
		t := *task.DeletedAt
		clone.DeletedAt = &t
	}
	return &clone
}
