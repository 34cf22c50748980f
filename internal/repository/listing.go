package repository

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ListParams carries the pagination, search, ordering and filter options of a list request.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	// Ordering is a field name from the resource's whitelist, "-" prefixed for descending.
	Ordering string
	// IDFilters holds exact-match foreign key filters such as "company" or "department".
	IDFilters map[string]int64
	// TextFilters holds exact-match text filters such as "designation" or "stage".
	TextFilters map[string]string
}

func (p ListParams) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

func (w *whereBuilder) addFilters(p ListParams, idColumns, textColumns map[string]string) {
	for _, key := range slices.Sorted(maps.Keys(idColumns)) {
		if v, ok := p.IDFilters[key]; ok {
			w.add(idColumns[key]+" = ?", v)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(textColumns)) {
		if v, ok := p.TextFilters[key]; ok {
			w.add(textColumns[key]+" = ?", v)
		}
	}
}

type Page[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Results  []T   `json:"results"`
}

// whereBuilder collects AND-ed conditions written with "?" placeholders and renumbers
// them into postgres "$n" placeholders.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, args ...any) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

// never makes the query return no rows.
func (w *whereBuilder) never() {
	w.conds = append(w.conds, "FALSE")
}

// likeEscaper makes LIKE wildcards in user input match literally under the default
// backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// addSearch adds a case-insensitive substring match of term against any of columns.
func (w *whereBuilder) addSearch(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	term = likeEscaper.Replace(term)
	parts := make([]string, 0, len(columns))
	for range columns {
		parts = append(parts, "%s ILIKE ?")
	}
	cond := "(" + strings.Join(parts, " OR ") + ")"
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		cond = strings.Replace(cond, "%s", col, 1)
		args = append(args, "%"+term+"%")
	}
	w.add(cond, args...)
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// limitOffset appends the LIMIT/OFFSET placeholders and returns the clause and the full
// argument list.
func (w *whereBuilder) limitOffset(p ListParams) (string, []any) {
	args := append([]any{}, w.args...)
	args = append(args, p.PageSize, p.offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

// orderBy resolves an ordering request against a whitelist of field -> column. Unknown
// fields fall back to the default so user input never reaches the SQL text.
func orderBy(ordering string, allowed map[string]string, fallback string) string {
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	col, ok := allowed[field]
	if !ok {
		return " ORDER BY " + fallback
	}
	if desc {
		return " ORDER BY " + col + " DESC"
	}
	return " ORDER BY " + col + " ASC"
}
