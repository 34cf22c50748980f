package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

const employeeSelect = `
	SELECT
		e.id,
		e.user_id,
		e.company_id,
		c.name,
		e.department_id,
		d.name,
		e.name,
		e.email,
		e.mobile_number,
		e.address,
		e.designation,
		e.hired_on,
		e.created_at,
		e.updated_at,
		e.version
	FROM employees e
	JOIN companies c ON c.id = e.company_id
	JOIN departments d ON d.id = e.department_id
`

const employeeFrom = ` FROM employees e JOIN companies c ON c.id = e.company_id JOIN departments d ON d.id = e.department_id`

var employeeOrdering = map[string]string{
	"name":           "e.name",
	"companyName":    "c.name",
	"departmentName": "d.name",
	"hiredOn":        "e.hired_on",
	"createdAt":      "e.created_at",
}

func employeeDst(e *domain.Employee) []any {
	return []any{
		&e.ID,
		&e.UserID,
		&e.CompanyID,
		&e.CompanyName,
		&e.DepartmentID,
		&e.DepartmentName,
		&e.Name,
		&e.Email,
		&e.MobileNumber,
		&e.Address,
		&e.Designation,
		&e.HiredOn,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.Version,
	}
}

func (r *Repository) ListEmployees(ctx context.Context, scope policy.Scope, p ListParams) (*Page[*domain.Employee], error) {
	w := &whereBuilder{}
	switch {
	case scope.None:
		w.never()
	case scope.EmployeeID != nil:
		w.add("e.id = ?", *scope.EmployeeID)
	case scope.DepartmentID != nil:
		w.add("e.department_id = ?", *scope.DepartmentID)
	case scope.CompanyID != nil:
		w.add("e.company_id = ?", *scope.CompanyID)
	}
	w.addSearch(p.Search, "e.name", "e.email", "e.designation")
	w.addFilters(p,
		map[string]string{"company": "e.company_id", "department": "e.department_id"},
		map[string]string{"designation": "e.designation"},
	)

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	page := &Page[*domain.Employee]{Page: p.Page, PageSize: p.PageSize, Results: []*domain.Employee{}}
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*)`+employeeFrom+w.sql(), w.args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	limit, args := w.limitOffset(p)
	query := employeeSelect + w.sql() + orderBy(p.Ordering, employeeOrdering, "c.name ASC, d.name ASC, e.name ASC") + limit

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e := &domain.Employee{}
		if err := rows.Scan(employeeDst(e)...); err != nil {
			return nil, err
		}
		page.Results = append(page.Results, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func (r *Repository) GetEmployeeByID(ctx context.Context, id int64) (*domain.Employee, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	e := &domain.Employee{}
	if err := r.dbpool.QueryRowContext(ctx, employeeSelect+` WHERE e.id = $1`, id).Scan(employeeDst(e)...); err != nil {
		return nil, err
	}

	return e, nil
}

// GetEmployeeByUserID returns the profile linked to a user, sql.ErrNoRows if there is none.
func (r *Repository) GetEmployeeByUserID(ctx context.Context, userID int64) (*domain.Employee, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	e := &domain.Employee{}
	if err := r.dbpool.QueryRowContext(ctx, employeeSelect+` WHERE e.user_id = $1`, userID).Scan(employeeDst(e)...); err != nil {
		return nil, err
	}

	return e, nil
}

func (r *Repository) GetAssignedProjectIDs(ctx context.Context, employeeID int64) ([]int64, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, `SELECT project_id FROM project_assignments WHERE employee_id = $1 ORDER BY project_id`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *Repository) CreateEmployee(ctx context.Context, e *domain.Employee) error {
	query := `
		INSERT INTO employees (user_id, company_id, department_id, name, email, mobile_number, address, designation, hired_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{e.UserID, e.CompanyID, e.DepartmentID, e.Name, e.Email, e.MobileNumber, e.Address, e.Designation, e.HiredOn}
	dst := []any{&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

// UpdateEmployee writes the profile guarded by version; a stale version returns sql.ErrNoRows.
func (r *Repository) UpdateEmployee(ctx context.Context, e *domain.Employee) error {
	query := `
		UPDATE employees
		SET
			department_id = $1,
			name = $2,
			email = $3,
			mobile_number = $4,
			address = $5,
			designation = $6,
			hired_on = $7,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{e.DepartmentID, e.Name, e.Email, e.MobileNumber, e.Address, e.Designation, e.HiredOn, e.ID, e.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&e.UpdatedAt, &e.Version); err != nil {
		return err
	}

	return nil
}

// DeleteEmployee removes the profile; reviews about the employee are deleted and reviews
// they wrote lose their reviewer.
func (r *Repository) DeleteEmployee(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id); err != nil {
		return err
	}

	return nil
}
