package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

const companySelect = `
	SELECT
		c.id,
		c.name,
		(SELECT COUNT(*) FROM departments d WHERE d.company_id = c.id),
		(SELECT COUNT(*) FROM employees e WHERE e.company_id = c.id),
		(SELECT COUNT(*) FROM projects p WHERE p.company_id = c.id),
		c.created_at,
		c.updated_at,
		c.version
	FROM companies c
`

var companyOrdering = map[string]string{
	"name":      "c.name",
	"createdAt": "c.created_at",
}

func companyDst(c *domain.Company) []any {
	return []any{
		&c.ID,
		&c.Name,
		&c.NumberOfDepartments,
		&c.NumberOfEmployees,
		&c.NumberOfProjects,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Version,
	}
}

func (r *Repository) ListCompanies(ctx context.Context, scope policy.Scope, p ListParams) (*Page[*domain.Company], error) {
	w := &whereBuilder{}
	switch {
	case scope.None:
		w.never()
	case scope.CompanyID != nil:
		w.add("c.id = ?", *scope.CompanyID)
	}
	w.addSearch(p.Search, "c.name")
	w.addFilters(p, nil, map[string]string{"name": "c.name"})

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	page := &Page[*domain.Company]{Page: p.Page, PageSize: p.PageSize, Results: []*domain.Company{}}
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies c`+w.sql(), w.args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	limit, args := w.limitOffset(p)
	query := companySelect + w.sql() + orderBy(p.Ordering, companyOrdering, "c.name ASC") + limit

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &domain.Company{}
		if err := rows.Scan(companyDst(c)...); err != nil {
			return nil, err
		}
		page.Results = append(page.Results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func (r *Repository) GetCompanyByID(ctx context.Context, id int64) (*domain.Company, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	c := &domain.Company{}
	if err := r.dbpool.QueryRowContext(ctx, companySelect+` WHERE c.id = $1`, id).Scan(companyDst(c)...); err != nil {
		return nil, err
	}

	return c, nil
}

func (r *Repository) CreateCompany(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, c.Name).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateCompany(ctx context.Context, c *domain.Company) error {
	query := `
		UPDATE companies
		SET
			name = $1,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, c.Name, c.ID, c.Version).Scan(&c.UpdatedAt, &c.Version); err != nil {
		return err
	}

	return nil
}

// DeleteCompany removes the company; departments, employees and projects go with it.
func (r *Repository) DeleteCompany(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id); err != nil {
		return err
	}

	return nil
}
