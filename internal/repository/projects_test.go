package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

var projectColumns = []string{
	"id", "company_id", "company_name", "department_id", "department_name", "name", "description",
	"start_date", "end_date", "created_by", "assigned", "created_at", "updated_at", "version",
}

func TestGetProjectByIDScansAssignees(t *testing.T) {
	repo, mock := setupRepository(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM projects p (.+) WHERE p.id = \$1`).
		WithArgs(int64(500)).
		WillReturnRows(sqlmock.NewRows(projectColumns).
			AddRow(int64(500), int64(1), "Acme", int64(11), "Platform", "Billing", "", start, end, int64(100), "{100,101}", time.Now(), time.Now(), int32(1)))

	p, err := repo.GetProjectByID(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101}, p.AssignedEmployees)
	assert.Equal(t, 2, p.AssignedEmployeesCount)
	assert.Equal(t, "2024-01-01", p.StartDate.String())
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, int64(100), *p.CreatedBy)
	assert.True(t, p.HasAssignee(101))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProjectRejectsForeignAssignee(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO projects`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version"}).AddRow(int64(9), time.Now(), time.Now(), int32(1)))
	mock.ExpectExec(`DELETE FROM project_assignments`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO project_assignments`).WithArgs(int64(9), int64(100), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO project_assignments`).WithArgs(int64(9), int64(300), int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	project := &domain.Project{
		CompanyID:         1,
		DepartmentID:      11,
		Name:              "Billing",
		StartDate:         domain.NewDate(2024, time.January, 1),
		EndDate:           domain.NewDate(2024, time.June, 30),
		AssignedEmployees: []int64{100, 100, 300},
	}
	err := repo.CreateProject(context.Background(), project)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProjectsScopedToAssignee(t *testing.T) {
	repo, mock := setupRepository(t)
	employeeID := int64(100)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects p (.+) WHERE EXISTS \(SELECT 1 FROM project_assignments pa WHERE pa.project_id = p.id AND pa.employee_id = \$1\)`).
		WithArgs(employeeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`LIMIT \$2 OFFSET \$3`).
		WithArgs(employeeID, 20, 0).
		WillReturnRows(sqlmock.NewRows(projectColumns))

	page, err := repo.ListProjects(context.Background(), policy.Scope{AssigneeID: &employeeID}, ListParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDepartmentsNoneScope(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM departments d (.+) WHERE FALSE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`WHERE FALSE ORDER BY c.name ASC, d.name ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	page, err := repo.ListDepartments(context.Background(), policy.Scope{None: true}, ListParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Count)
	assert.Empty(t, page.Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDepartmentsScopedToCompany(t *testing.T) {
	repo, mock := setupRepository(t)
	companyID := int64(1)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM departments d (.+) WHERE d.company_id = \$1 AND \(d.name ILIKE \$2\)`).
		WithArgs(companyID, "%eng%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`ORDER BY d.name DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(companyID, "%eng%", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "company_name", "name", "employees", "projects", "created_at", "updated_at", "version"}).
			AddRow(int64(11), companyID, "Acme", "Engineering", int64(4), int64(2), now, now, int32(1)))

	page, err := repo.ListDepartments(context.Background(), policy.Scope{CompanyID: &companyID}, ListParams{Page: 1, PageSize: 20, Search: "eng", Ordering: "-name"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Engineering", page.Results[0].Name)
	assert.Equal(t, int64(4), page.Results[0].NumberOfEmployees)
	assert.NoError(t, mock.ExpectationsWereMet())
}
