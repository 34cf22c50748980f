package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

const projectSelect = `
	SELECT
		p.id,
		p.company_id,
		c.name,
		p.department_id,
		d.name,
		p.name,
		p.description,
		p.start_date,
		p.end_date,
		p.created_by,
		ARRAY(SELECT pa.employee_id FROM project_assignments pa WHERE pa.project_id = p.id ORDER BY pa.employee_id),
		p.created_at,
		p.updated_at,
		p.version
	FROM projects p
	JOIN companies c ON c.id = p.company_id
	JOIN departments d ON d.id = p.department_id
`

const projectFrom = ` FROM projects p JOIN companies c ON c.id = p.company_id JOIN departments d ON d.id = p.department_id`

var projectOrdering = map[string]string{
	"name":           "p.name",
	"companyName":    "c.name",
	"departmentName": "d.name",
	"startDate":      "p.start_date",
	"endDate":        "p.end_date",
	"createdAt":      "p.created_at",
}

func scanProject(m *pgtype.Map, row interface{ Scan(...any) error }) (*domain.Project, error) {
	p := &domain.Project{}
	dst := []any{
		&p.ID,
		&p.CompanyID,
		&p.CompanyName,
		&p.DepartmentID,
		&p.DepartmentName,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.CreatedBy,
		m.SQLScanner(&p.AssignedEmployees),
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	if p.AssignedEmployees == nil {
		p.AssignedEmployees = []int64{}
	}
	p.AssignedEmployeesCount = len(p.AssignedEmployees)
	return p, nil
}

func (r *Repository) ListProjects(ctx context.Context, scope policy.Scope, p ListParams) (*Page[*domain.Project], error) {
	w := &whereBuilder{}
	switch {
	case scope.None:
		w.never()
	case scope.AssigneeID != nil:
		w.add("EXISTS (SELECT 1 FROM project_assignments pa WHERE pa.project_id = p.id AND pa.employee_id = ?)", *scope.AssigneeID)
	case scope.DepartmentID != nil:
		w.add("p.department_id = ?", *scope.DepartmentID)
	case scope.CompanyID != nil:
		w.add("p.company_id = ?", *scope.CompanyID)
	}
	w.addSearch(p.Search, "p.name", "p.description")
	w.addFilters(p, map[string]string{"company": "p.company_id", "department": "p.department_id"}, nil)

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	page := &Page[*domain.Project]{Page: p.Page, PageSize: p.PageSize, Results: []*domain.Project{}}
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*)`+projectFrom+w.sql(), w.args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	limit, args := w.limitOffset(p)
	query := projectSelect + w.sql() + orderBy(p.Ordering, projectOrdering, "p.start_date DESC, p.name ASC") + limit

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := pgtype.NewMap()
	for rows.Next() {
		project, err := scanProject(m, rows)
		if err != nil {
			return nil, err
		}
		page.Results = append(page.Results, project)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func (r *Repository) GetProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanProject(pgtype.NewMap(), r.dbpool.QueryRowContext(ctx, projectSelect+` WHERE p.id = $1`, id))
}

// replaceAssignees rewrites the assignment set of a project. Every assignee must work for
// the project's company.
func replaceAssignees(ctx context.Context, q queryRower, project *domain.Project) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM project_assignments WHERE project_id = $1`, project.ID); err != nil {
		return err
	}

	query := `
		INSERT INTO project_assignments (project_id, employee_id)
		SELECT $1::bigint, e.id FROM employees e WHERE e.id = $2 AND e.company_id = $3
		ON CONFLICT DO NOTHING
	`
	seen := make(map[int64]bool, len(project.AssignedEmployees))
	assigned := make([]int64, 0, len(project.AssignedEmployees))
	for _, employeeID := range project.AssignedEmployees {
		if seen[employeeID] {
			continue
		}
		seen[employeeID] = true

		res, err := q.ExecContext(ctx, query, project.ID, employeeID, project.CompanyID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NewFieldError("assignedEmployees", fmt.Sprintf("employee %d does not belong to the project's company", employeeID))
		}
		assigned = append(assigned, employeeID)
	}

	project.AssignedEmployees = assigned
	project.AssignedEmployeesCount = len(assigned)
	return nil
}

func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO projects (company_id, department_id, name, description, start_date, end_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at, version
	`
	args := []any{project.CompanyID, project.DepartmentID, project.Name, project.Description, project.StartDate, project.EndDate, project.CreatedBy}
	dst := []any{&project.ID, &project.CreatedAt, &project.UpdatedAt, &project.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	if err := replaceAssignees(ctx, tx, project); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateProject writes the project guarded by version and, when replaceAssignments is set,
// replaces its assignment set in the same transaction.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project, replaceAssignments bool) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE projects
		SET
			department_id = $1,
			name = $2,
			description = $3,
			start_date = $4,
			end_date = $5,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING updated_at, version
	`
	args := []any{project.DepartmentID, project.Name, project.Description, project.StartDate, project.EndDate, project.ID, project.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&project.UpdatedAt, &project.Version); err != nil {
		return err
	}

	if replaceAssignments {
		if err := replaceAssignees(ctx, tx, project); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
		return err
	}

	return nil
}
