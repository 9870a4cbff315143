package domain

import (
	"fmt"
	"strings"
	"time"
)

// Common validation errors for Task
var (
	ErrEmptyTaskTitle     = fmt.Errorf("%w: task title cannot be empty", ErrValidation)
	ErrUntrimmedTaskTitle = fmt.Errorf("%w: task title must not have surrounding whitespace", ErrValidation)
)

// Task represents a single to-do item. A task is soft-deleted by stamping
// DeletedAt; the row itself is never removed. DeletedAt == nil means the
// task is active.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Done        bool       `json:"done"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt"`
}

// NewTask creates a new active Task with the given title and optional
// description. Both are trimmed of surrounding whitespace. The ID is zero
// until the task is persisted; the store assigns it on creation.
// Returns an error if the title is empty after trimming.
func NewTask(title string, description *string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		Title:       strings.TrimSpace(title),
		Description: trimDescription(description),
		Done:        false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if t.Title != strings.TrimSpace(t.Title) {
		return ErrUntrimmedTaskTitle
	}

	return nil
}

// IsDeleted reports whether the task is currently soft-deleted.
func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// trimDescription trims an optional description, preserving nil.
func trimDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	return &trimmed
}
