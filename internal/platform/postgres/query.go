package postgres

import (
	"fmt"
	"strings"

	"github.com/phrazzld/tasks-api/internal/store"
)

// taskColumns is the column list shared by every task SELECT.
const taskColumns = "id, title, description, done, created_at, updated_at, deleted_at"

// buildTaskPredicate translates a logical filter into a SQL WHERE clause and
// its positional arguments. Argument numbering starts at $1. All supplied
// constraints are ANDed; an empty filter yields an empty clause.
//
// Soft-delete visibility: OnlyDeleted forces deleted_at IS NOT NULL and
// overrides IncludeDeleted; with neither set, only active rows
// (deleted_at IS NULL) match; IncludeDeleted alone lifts the restriction.
func buildTaskPredicate(filter store.Filter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Done != nil {
		args = append(args, *filter.Done)
		conditions = append(conditions, fmt.Sprintf("done = $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+escapeLikePattern(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(`title ILIKE $%d ESCAPE '\'`, len(args)))
	}

	switch {
	case filter.OnlyDeleted:
		conditions = append(conditions, "deleted_at IS NOT NULL")
	case !filter.IncludeDeleted:
		conditions = append(conditions, "deleted_at IS NULL")
	}

	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildListQuery composes the full task listing query: predicate, ordering
// and, when both Page and Limit are present, the pagination window
// OFFSET (page-1)*limit LIMIT limit.
//
// The sort column comes from the SortField whitelist, never from raw input,
// so it is interpolated directly. A secondary id ordering keeps pagination
// deterministic when the primary column has duplicate values.
func buildListQuery(opts store.ListOptions) (string, []any) {
	where, args := buildTaskPredicate(opts.Filter)

	sort := opts.Sort
	if sort == "" {
		sort = store.SortByID
	}
	order := opts.Order
	if order == "" {
		order = store.OrderAsc
	}

	var b strings.Builder
	b.WriteString("SELECT " + taskColumns + " FROM tasks")
	b.WriteString(where)
	fmt.Fprintf(&b, " ORDER BY %s %s", sort, strings.ToUpper(string(order)))
	if sort != store.SortByID {
		b.WriteString(", id ASC")
	}

	if opts.Windowed() {
		args = append(args, *opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
		args = append(args, (*opts.Page-1)**opts.Limit)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return b.String(), args
}

// buildCountQuery composes the matching-row count query for a filter.
func buildCountQuery(filter store.Filter) (string, []any) {
	where, args := buildTaskPredicate(filter)
	return "SELECT COUNT(*) FROM tasks" + where, args
}

// escapeLikePattern escapes the LIKE metacharacters so a search term
// matches literally inside the ILIKE pattern.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
