package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

const departmentSelect = `
	SELECT
		d.id,
		d.company_id,
		c.name,
		d.name,
		(SELECT COUNT(*) FROM employees e WHERE e.department_id = d.id),
		(SELECT COUNT(*) FROM projects p WHERE p.department_id = d.id),
		d.created_at,
		d.updated_at,
		d.version
	FROM departments d
	JOIN companies c ON c.id = d.company_id
`

var departmentOrdering = map[string]string{
	"name":        "d.name",
	"companyName": "c.name",
	"createdAt":   "d.created_at",
}

func departmentDst(d *domain.Department) []any {
	return []any{
		&d.ID,
		&d.CompanyID,
		&d.CompanyName,
		&d.Name,
		&d.NumberOfEmployees,
		&d.NumberOfProjects,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.Version,
	}
}

func (r *Repository) ListDepartments(ctx context.Context, scope policy.Scope, p ListParams) (*Page[*domain.Department], error) {
	w := &whereBuilder{}
	switch {
	case scope.None:
		w.never()
	case scope.CompanyID != nil:
		w.add("d.company_id = ?", *scope.CompanyID)
	case scope.DepartmentID != nil:
		w.add("d.id = ?", *scope.DepartmentID)
	}
	w.addSearch(p.Search, "d.name")
	w.addFilters(p, map[string]string{"company": "d.company_id"}, map[string]string{"name": "d.name"})

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	page := &Page[*domain.Department]{Page: p.Page, PageSize: p.PageSize, Results: []*domain.Department{}}
	countQuery := `SELECT COUNT(*) FROM departments d JOIN companies c ON c.id = d.company_id` + w.sql()
	if err := r.dbpool.QueryRowContext(ctx, countQuery, w.args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	limit, args := w.limitOffset(p)
	query := departmentSelect + w.sql() + orderBy(p.Ordering, departmentOrdering, "c.name ASC, d.name ASC") + limit

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		d := &domain.Department{}
		if err := rows.Scan(departmentDst(d)...); err != nil {
			return nil, err
		}
		page.Results = append(page.Results, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func (r *Repository) GetDepartmentByID(ctx context.Context, id int64) (*domain.Department, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	d := &domain.Department{}
	if err := r.dbpool.QueryRowContext(ctx, departmentSelect+` WHERE d.id = $1`, id).Scan(departmentDst(d)...); err != nil {
		return nil, err
	}

	return d, nil
}

func (r *Repository) CreateDepartment(ctx context.Context, d *domain.Department) error {
	query := `
		INSERT INTO departments (company_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, d.CompanyID, d.Name).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Version); err != nil {
		return err
	}

	return nil
}

// UpdateDepartment only renames; company_id is fixed once the department exists.
func (r *Repository) UpdateDepartment(ctx context.Context, d *domain.Department) error {
	query := `
		UPDATE departments
		SET
			name = $1,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, d.Name, d.ID, d.Version).Scan(&d.UpdatedAt, &d.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteDepartment(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id); err != nil {
		return err
	}

	return nil
}
