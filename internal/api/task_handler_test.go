package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasks-api/internal/api"
	"github.com/phrazzld/tasks-api/internal/platform/memory"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errorBody mirrors the JSON error envelope written by the shared helpers.
type errorBody struct {
	Error string `json:"error"`
}

// pageBody mirrors TaskPageResponse for decoding in tests.
type pageBody struct {
	Data []api.TaskResponse `json:"data"`
	Meta service.PageInfo   `json:"meta"`
}

// newTestRouter wires a real service over the in-memory store behind the
// same routes the server registers.
func newTestRouter(t *testing.T) (chi.Router, service.TaskService) {
	t.Helper()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.NewTaskService(memory.NewMemoryTaskStore(), discard)
	require.NoError(t, err)

	handler := api.NewTaskHandler(svc, discard)

	r := chi.NewRouter()
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", handler.ListTasks)
		r.Post("/", handler.CreateTask)
		r.Get("/{id}", handler.GetTask)
		r.Put("/{id}", handler.UpdateTask)
		r.Delete("/{id}", handler.DeleteTask)
		r.Patch("/{id}/restore", handler.RestoreTask)
	})

	return r, svc
}

func doRequest(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeTask(t *testing.T, rr *httptest.ResponseRecorder) api.TaskResponse {
	t.Helper()
	var task api.TaskResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &task))
	return task
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestCreateTask(t *testing.T) {
	t.Run("creates_and_trims", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rr := doRequest(t, router, http.MethodPost, "/tasks", map[string]any{
			"title":       "  Buy milk  ",
			"description": "  2 liters  ",
		})

		require.Equal(t, http.StatusCreated, rr.Code)
		task := decodeTask(t, rr)
		assert.Equal(t, "Buy milk", task.Title)
		require.NotNil(t, task.Description)
		assert.Equal(t, "2 liters", *task.Description)
		assert.False(t, task.Done)
		assert.Nil(t, task.DeletedAt)
		assert.NotZero(t, task.ID)
	})

	t.Run("missing_title", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rr := doRequest(t, router, http.MethodPost, "/tasks", map[string]any{
			"description": "no title here",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "title is required and must be a non-empty string", decodeError(t, rr))
	})

	t.Run("whitespace_title", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rr := doRequest(t, router, http.MethodPost, "/tasks", map[string]any{
			"title": "   ",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "title is required and must be a non-empty string", decodeError(t, rr))
	})

	t.Run("malformed_body", func(t *testing.T) {
		router, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid request body", decodeError(t, rr))
	})

	t.Run("unknown_fields_tolerated", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rr := doRequest(t, router, http.MethodPost, "/tasks", map[string]any{
			"title":    "Valid",
			"priority": "high",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
	})
}

func TestGetTask(t *testing.T) {
	router, svc := newTestRouter(t)

	created, err := svc.Create(context.Background(), "Find me", nil)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, fmt.Sprintf("/tasks/%d", created.ID), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, created.ID, decodeTask(t, rr).ID)
	})

	t.Run("missing", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks/9999", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "task not found", decodeError(t, rr))
	})

	t.Run("non_numeric_id", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "id must be a number", decodeError(t, rr))
	})

	t.Run("invalid_include_deleted", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet,
			fmt.Sprintf("/tasks/%d?includeDeleted=yes", created.ID), nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("deleted_task_hidden_then_visible", func(t *testing.T) {
		require.NoError(t, svc.SoftDelete(context.Background(), created.ID))

		rr := doRequest(t, router, http.MethodGet, fmt.Sprintf("/tasks/%d", created.ID), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = doRequest(t, router, http.MethodGet,
			fmt.Sprintf("/tasks/%d?includeDeleted=true", created.ID), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotNil(t, decodeTask(t, rr).DeletedAt)
	})
}

func TestUpdateTask(t *testing.T) {
	router, svc := newTestRouter(t)

	created, err := svc.Create(context.Background(), "Original", nil)
	require.NoError(t, err)
	target := fmt.Sprintf("/tasks/%d", created.ID)

	t.Run("partial_update", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPut, target, map[string]any{
			"done": true,
		})

		require.Equal(t, http.StatusOK, rr.Code)
		task := decodeTask(t, rr)
		assert.True(t, task.Done)
		assert.Equal(t, "Original", task.Title)
	})

	t.Run("trims_title", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPut, target, map[string]any{
			"title": "  Renamed  ",
		})

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Renamed", decodeTask(t, rr).Title)
	})

	t.Run("blank_title", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPut, target, map[string]any{
			"title": "   ",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "title must be a non-empty string", decodeError(t, rr))
	})

	// An explicit null is a present field of the wrong type, not an
	// omission, and must not slip through as "no change".
	invalidBodies := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{name: "null_title", body: map[string]any{"title": nil}, message: "title must be a non-empty string"},
		{name: "null_done", body: map[string]any{"done": nil}, message: "done must be a boolean"},
		{name: "null_description", body: map[string]any{"description": nil}, message: "description must be a string"},
		{name: "numeric_title", body: map[string]any{"title": 123}, message: "title must be a non-empty string"},
		{name: "string_done", body: map[string]any{"done": "yes"}, message: "done must be a boolean"},
		{name: "null_title_beside_valid_done", body: map[string]any{"title": nil, "done": true}, message: "title must be a non-empty string"},
	}

	for _, tt := range invalidBodies {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodPut, target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.message, decodeError(t, rr))

			// The row is untouched.
			getRR := doRequest(t, router, http.MethodGet, target, nil)
			require.Equal(t, http.StatusOK, getRR.Code)
			assert.Equal(t, "Renamed", decodeTask(t, getRR).Title)
		})
	}

	t.Run("missing_task", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPut, "/tasks/9999", map[string]any{
			"done": true,
		})

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "task not found", decodeError(t, rr))
	})

	t.Run("malformed_body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, target, bytes.NewBufferString("not json"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid request body", decodeError(t, rr))
	})
}

func TestDeleteAndRestoreTask(t *testing.T) {
	router, svc := newTestRouter(t)

	created, err := svc.Create(context.Background(), "Lifecycle", nil)
	require.NoError(t, err)
	target := fmt.Sprintf("/tasks/%d", created.ID)

	t.Run("restore_active_task_conflicts", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, target+"/restore", nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "task is not deleted", decodeError(t, rr))
	})

	t.Run("delete_returns_no_content", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodDelete, target, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())

		// The task is gone from the default view.
		rr = doRequest(t, router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("restore_deleted_task", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, target+"/restore", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		task := decodeTask(t, rr)
		assert.Equal(t, created.ID, task.ID)
		assert.Nil(t, task.DeletedAt)

		rr = doRequest(t, router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("restore_missing_task", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, "/tasks/9999/restore", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "task not found", decodeError(t, rr))
	})

	t.Run("delete_missing_task", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodDelete, "/tasks/9999", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("delete_already_deleted_task_is_idempotent", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodDelete, target, nil)
		require.Equal(t, http.StatusNoContent, rr.Code)

		rr = doRequest(t, router, http.MethodDelete, target, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestListTasks(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		_, err := svc.Create(ctx, fmt.Sprintf("Task %02d", i), nil)
		require.NoError(t, err)
	}
	_, err := svc.Update(ctx, 1, store.UpdateTaskParams{Done: boolPtr(true)})
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, 25))

	t.Run("bare_listing_without_pagination", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
		assert.Len(t, tasks, 24)
	})

	t.Run("windowed_listing_wraps_with_meta", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks?page=2&limit=10", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var page pageBody
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		require.Len(t, page.Data, 10)
		assert.Equal(t, int64(11), page.Data[0].ID)
		assert.Equal(t, 2, page.Meta.Page)
		assert.Equal(t, 10, page.Meta.Limit)
		assert.Equal(t, int64(24), page.Meta.Total)
		assert.Equal(t, 3, page.Meta.Pages)
	})

	t.Run("page_without_limit_is_unwindowed", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks?page=2", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
		assert.Len(t, tasks, 24)
	})

	t.Run("done_filter", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks?done=true", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
		require.Len(t, tasks, 1)
		assert.Equal(t, int64(1), tasks[0].ID)
	})

	t.Run("search_filter", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks?search=task+2", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
		// Task 20-24 match; Task 25 is deleted.
		assert.Len(t, tasks, 5)
	})

	t.Run("only_deleted", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks?onlyDeleted=true", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
		require.Len(t, tasks, 1)
		assert.Equal(t, int64(25), tasks[0].ID)
	})

	t.Run("sort_title_desc", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks?sort=title&order=desc&limit=1&page=1", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var page pageBody
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		require.Len(t, page.Data, 1)
		assert.Equal(t, "Task 24", page.Data[0].Title)
	})

	t.Run("empty_result_serializes_as_array", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/tasks?search=nomatch", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	invalidQueries := []struct {
		name    string
		query   string
		message string
	}{
		{"page_zero", "page=0", "page must be an integer greater than or equal to 1"},
		{"page_negative", "page=-1", "page must be an integer greater than or equal to 1"},
		{"page_not_a_number", "page=abc", "page must be an integer greater than or equal to 1"},
		{"page_implausibly_large", "page=9223372036854775807", "page must be an integer greater than or equal to 1"},
		{"limit_zero", "limit=0", "limit must be an integer greater than or equal to 1"},
		{"limit_implausibly_large", "limit=4611686018427387904", "limit must be an integer greater than or equal to 1"},
		{"done_not_boolean", "done=maybe", `done must be "true" or "false"`},
		{"sort_unknown_field", "sort=priority", "sort must be one of id, title, done, createdAt, updatedAt"},
		{"order_invalid", "order=sideways", `order must be "asc" or "desc"`},
		{"search_blank", "search=%20%20", "search must be a non-empty string"},
		{"include_deleted_not_boolean", "includeDeleted=1", `includeDeleted must be "true" or "false"`},
		{"only_deleted_not_boolean", "onlyDeleted=1", `onlyDeleted must be "true" or "false"`},
		{"created_from_invalid", "createdFrom=notadate", "createdFrom must be a valid timestamp (RFC 3339 or YYYY-MM-DD)"},
		{"created_to_invalid", "createdTo=13-37", "createdTo must be a valid timestamp (RFC 3339 or YYYY-MM-DD)"},
	}

	for _, tt := range invalidQueries {
		t.Run("invalid_"+tt.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodGet, "/tasks?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.message, decodeError(t, rr))
		})
	}

	t.Run("created_range_accepts_dates", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet,
			"/tasks?createdFrom=2000-01-01&createdTo=2100-01-01T00:00:00Z", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var tasks []api.TaskResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
		assert.Len(t, tasks, 24)
	})
}

func boolPtr(v bool) *bool { return &v }
