package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
)

// sortFieldNames maps the JSON-facing sort names accepted on the wire to
// the store's sort fields.
var sortFieldNames = map[string]store.SortField{
	"id":        store.SortByID,
	"title":     store.SortByTitle,
	"done":      store.SortByDone,
	"createdAt": store.SortByCreatedAt,
	"updatedAt": store.SortByUpdatedAt,
}

// timestampLayouts are the accepted formats for date-range parameters, in
// the order they are tried.
var timestampLayouts = []string{time.RFC3339, "2006-01-02"}

// getPathID extracts a numeric task ID from the URL path parameters.
// Returns a ValidationError if the parameter is missing or not a number.
func getPathID(r *http.Request, paramName string) (int64, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(paramName, "must be a number", domain.ErrInvalidID)
	}

	return id, nil
}

// parseBoolParam parses an optional boolean query parameter. Only the
// literal strings "true" and "false" are accepted; anything else is a
// validation error naming the parameter.
func parseBoolParam(values url.Values, name string) (*bool, error) {
	raw, ok := firstValue(values, name)
	if !ok {
		return nil, nil
	}

	switch raw {
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	default:
		return nil, domain.NewValidationError(name, `must be "true" or "false"`, domain.ErrValidation)
	}
}

// maxPageParam bounds page and limit. Keeping both within int32 keeps the
// (page-1)*limit offset within int64, so the window arithmetic cannot
// overflow into a negative offset.
const maxPageParam = math.MaxInt32

// parsePositiveIntParam parses an optional integer query parameter that
// must be >= 1.
func parsePositiveIntParam(values url.Values, name string) (*int, error) {
	raw, ok := firstValue(values, name)
	if !ok {
		return nil, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxPageParam {
		return nil, domain.NewValidationError(
			name,
			"must be an integer greater than or equal to 1",
			domain.ErrValidation,
		)
	}

	return &n, nil
}

// parseTimestampParam parses an optional timestamp query parameter,
// accepting RFC 3339 or a plain calendar date.
func parseTimestampParam(values url.Values, name string) (*time.Time, error) {
	raw, ok := firstValue(values, name)
	if !ok {
		return nil, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}

	return nil, domain.NewValidationError(
		name,
		"must be a valid timestamp (RFC 3339 or YYYY-MM-DD)",
		domain.ErrValidation,
	)
}

// parseListOptions validates and converts the task listing query
// parameters into store options. The first offending parameter produces a
// ValidationError naming it.
func parseListOptions(r *http.Request) (store.ListOptions, error) {
	var opts store.ListOptions
	query := r.URL.Query()

	page, err := parsePositiveIntParam(query, "page")
	if err != nil {
		return opts, err
	}
	limit, err := parsePositiveIntParam(query, "limit")
	if err != nil {
		return opts, err
	}
	opts.Page = page
	opts.Limit = limit

	done, err := parseBoolParam(query, "done")
	if err != nil {
		return opts, err
	}
	opts.Done = done

	if raw, ok := firstValue(query, "sort"); ok {
		field, known := sortFieldNames[raw]
		if !known {
			return opts, domain.NewValidationError(
				"sort",
				"must be one of id, title, done, createdAt, updatedAt",
				domain.ErrValidation,
			)
		}
		opts.Sort = field
	}

	if raw, ok := firstValue(query, "order"); ok {
		order := store.SortOrder(raw)
		if !order.Valid() {
			return opts, domain.NewValidationError(
				"order",
				`must be "asc" or "desc"`,
				domain.ErrValidation,
			)
		}
		opts.Order = order
	}

	if raw, ok := firstValue(query, "search"); ok {
		search := strings.TrimSpace(raw)
		if search == "" {
			return opts, domain.NewValidationError(
				"search",
				"must be a non-empty string",
				domain.ErrValidation,
			)
		}
		opts.Search = search
	}

	includeDeleted, err := parseBoolParam(query, "includeDeleted")
	if err != nil {
		return opts, err
	}
	opts.IncludeDeleted = includeDeleted != nil && *includeDeleted

	onlyDeleted, err := parseBoolParam(query, "onlyDeleted")
	if err != nil {
		return opts, err
	}
	opts.OnlyDeleted = onlyDeleted != nil && *onlyDeleted

	createdFrom, err := parseTimestampParam(query, "createdFrom")
	if err != nil {
		return opts, err
	}
	opts.CreatedFrom = createdFrom

	createdTo, err := parseTimestampParam(query, "createdTo")
	if err != nil {
		return opts, err
	}
	opts.CreatedTo = createdTo

	return opts, nil
}

// firstValue returns the first value of a query parameter and whether the
// parameter was present at all.
func firstValue(values url.Values, name string) (string, bool) {
	if _, ok := values[name]; !ok {
		return "", false
	}
	return values.Get(name), true
}
