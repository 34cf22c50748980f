package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/repository"
)

// listFilters names the query parameters a list endpoint accepts as filters.
type listFilters struct {
	ids   []string
	texts []string
}

// readListParams parses page, pageSize, search, ordering and the endpoint's filters.
// pageSize is capped at the configured maximum.
func (h *Handler) readListParams(r *http.Request, filters listFilters) (repository.ListParams, error) {
	q := r.URL.Query()

	p := repository.ListParams{
		Page:        1,
		PageSize:    h.config.Pagination.DefaultPageSize,
		Search:      strings.TrimSpace(q.Get("search")),
		Ordering:    strings.TrimSpace(q.Get("ordering")),
		IDFilters:   map[string]int64{},
		TextFilters: map[string]string{},
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return p, domain.NewFieldError("page", "page must be a positive integer")
		}
		p.Page = page
	}

	if v := q.Get("pageSize"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return p, domain.NewFieldError("pageSize", "pageSize must be a positive integer")
		}
		p.PageSize = min(size, h.config.Pagination.MaxPageSize)
	}

	for _, name := range filters.ids {
		v := q.Get(name)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, domain.NewFieldError(name, name+" must be an integer id")
		}
		p.IDFilters[name] = id
	}

	for _, name := range filters.texts {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			p.TextFilters[name] = v
		}
	}

	return p, nil
}
