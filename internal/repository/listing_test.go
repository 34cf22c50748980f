package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilderNumbersPlaceholders(t *testing.T) {
	w := &whereBuilder{}
	w.add("d.company_id = ?", int64(1))
	w.addSearch("eng", "d.name", "c.name")

	assert.Equal(t, " WHERE d.company_id = $1 AND (d.name ILIKE $2 OR c.name ILIKE $3)", w.sql())
	assert.Equal(t, []any{int64(1), "%eng%", "%eng%"}, w.args)

	limit, args := w.limitOffset(ListParams{Page: 3, PageSize: 20})
	assert.Equal(t, " LIMIT $4 OFFSET $5", limit)
	assert.Equal(t, []any{int64(1), "%eng%", "%eng%", 20, 40}, args)
	assert.Len(t, w.args, 3, "limitOffset must not grow the builder")
}

func TestWhereBuilderEmpty(t *testing.T) {
	w := &whereBuilder{}
	w.addSearch("")
	assert.Equal(t, "", w.sql())

	w.never()
	assert.Equal(t, " WHERE FALSE", w.sql())
}

func TestAddFiltersIsDeterministic(t *testing.T) {
	p := ListParams{
		IDFilters:   map[string]int64{"department": 4, "company": 2},
		TextFilters: map[string]string{"designation": "Engineer"},
	}

	w := &whereBuilder{}
	w.addFilters(p,
		map[string]string{"company": "e.company_id", "department": "e.department_id"},
		map[string]string{"designation": "e.designation"},
	)

	assert.Equal(t, " WHERE e.company_id = $1 AND e.department_id = $2 AND e.designation = $3", w.sql())
	assert.Equal(t, []any{int64(2), int64(4), "Engineer"}, w.args)
}

func TestOrderBy(t *testing.T) {
	allowed := map[string]string{"name": "c.name", "createdAt": "c.created_at"}

	assert.Equal(t, " ORDER BY c.name ASC", orderBy("name", allowed, "c.id"))
	assert.Equal(t, " ORDER BY c.created_at DESC", orderBy("-createdAt", allowed, "c.id"))
	assert.Equal(t, " ORDER BY c.id", orderBy("name; DROP TABLE users", allowed, "c.id"))
	assert.Equal(t, " ORDER BY c.id", orderBy("", allowed, "c.id"))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, ListParams{Page: 0, PageSize: 20}.offset())
	assert.Equal(t, 0, ListParams{Page: 1, PageSize: 20}.offset())
	assert.Equal(t, 20, ListParams{Page: 2, PageSize: 20}.offset())
}

func TestSearchEscapesWildcards(t *testing.T) {
	w := &whereBuilder{}
	w.addSearch(`50%_off\`, "p.name")

	assert.Equal(t, " WHERE (p.name ILIKE $1)", w.sql())
	assert.Equal(t, []any{`%50\%\_off\\%`}, w.args)

	w = &whereBuilder{}
	w.addSearch("%", "p.name")
	assert.Equal(t, []any{`%\%%`}, w.args)
}
