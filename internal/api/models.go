package api

import (
	"encoding/json"
	"time"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/service"
)

// Common request/response structures

// CreateTaskRequest defines the payload for the task creation endpoint.
type CreateTaskRequest struct {
	Title       string  `json:"title"       validate:"required"`
	Description *string `json:"description" validate:"omitempty"`
}

// UpdateTaskRequest defines the payload for the partial task update
// endpoint. Every field is optional; absent fields leave the stored value
// unchanged. A field that is present must carry the right type: an explicit
// JSON null or a type mismatch is a validation error, not an omission.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Done        *bool   `json:"done"`
}

// UnmarshalJSON decodes the update payload field by field so an explicit
// null is distinguishable from an absent key, which plain pointer decoding
// cannot do.
func (req *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["title"]; ok {
		var title string
		if shared.IsJSONNull(raw) || json.Unmarshal(raw, &title) != nil {
			return domain.NewValidationError("title", "must be a non-empty string", domain.ErrValidation)
		}
		req.Title = &title
	}

	if raw, ok := fields["description"]; ok {
		var description string
		if shared.IsJSONNull(raw) || json.Unmarshal(raw, &description) != nil {
			return domain.NewValidationError("description", "must be a string", domain.ErrValidation)
		}
		req.Description = &description
	}

	if raw, ok := fields["done"]; ok {
		var done bool
		if shared.IsJSONNull(raw) || json.Unmarshal(raw, &done) != nil {
			return domain.NewValidationError("done", "must be a boolean", domain.ErrValidation)
		}
		req.Done = &done
	}

	return nil
}

// TaskResponse represents the response data for a task
type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Done        bool       `json:"done"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt"`
}

// TaskPageResponse wraps a windowed task listing with its pagination metadata.
type TaskPageResponse struct {
	Data []TaskResponse   `json:"data"`
	Meta service.PageInfo `json:"meta"`
}

// taskToResponse converts a domain.Task to a TaskResponse
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Done:        task.Done,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		DeletedAt:   task.DeletedAt,
	}
}

// tasksToResponse converts a task slice, always yielding a non-nil slice so
// an empty listing serializes as [] rather than null.
func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskToResponse(task))
	}
	return responses
}
