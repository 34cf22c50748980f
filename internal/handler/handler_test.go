package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/config"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/repository"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/token"
)

type fakePublisher struct {
	msgs []domain.MailMessage
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg domain.MailMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type testEnv struct {
	h      *Handler
	mock   sqlmock.Sqlmock
	mr     *miniredis.Miniredis
	pub    *fakePublisher
	tokens *token.Manager
}

func setupHandler(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "talentum"
	cfg.JWT.AccessExpiration = 3600
	cfg.JWT.RefreshExpiration = 3600
	cfg.Redis.OperationTimeout = 5
	cfg.OTP.Expiration = 900
	cfg.Pagination.DefaultPageSize = 20
	cfg.Pagination.MaxPageSize = 100
	cfg.InitialAdmin.Email = "root@example.com"

	tokens := token.NewManager(cfg, rdb)
	pub := &fakePublisher{}

	h, err := NewHandler(cfg, repository.NewRepository(cfg, db), tokens, pub, rdb)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{h: h, mock: mock, mr: mr, pub: pub, tokens: tokens}
}

var testUserColumns = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name", "phone_number",
	"role", "is_active", "is_email_verified", "created_at", "updated_at", "version",
}

func userRows(u *domain.User) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(testUserColumns).
		AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, nil,
			string(u.Role), u.IsActive, u.IsEmailVerified, now, now, int32(1))
}

var testEmployeeColumns = []string{
	"id", "user_id", "company_id", "company_name", "department_id", "department_name", "name",
	"email", "mobile_number", "address", "designation", "hired_on", "created_at", "updated_at", "version",
}

func employeeRows(e *domain.Employee) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(testEmployeeColumns).
		AddRow(e.ID, e.UserID, e.CompanyID, "Acme", e.DepartmentID, "Engineering", e.Name,
			e.Email, "", "", e.Designation, nil, now, now, int32(1))
}

var testReviewColumns = []string{
	"id", "employee_id", "name", "department_id", "reviewer_id", "stage",
	"review_date", "rating", "feedback", "created_at", "updated_at", "version",
}

func reviewRows(pr *domain.PerformanceReview) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(testReviewColumns).
		AddRow(pr.ID, pr.EmployeeID, pr.EmployeeName, pr.DepartmentID, nil, string(pr.Stage),
			nil, nil, "", now, now, int32(1))
}

// login issues an access token for u and queues the queries the auth middleware runs
// for it. A nil employee means no linked profile.
func (env *testEnv) login(t *testing.T, u *domain.User, e *domain.Employee, projectIDs ...int64) string {
	t.Helper()

	pair, err := env.tokens.Issue(context.Background(), u)
	require.NoError(t, err)

	env.mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs(u.ID).
		WillReturnRows(userRows(u))

	if e == nil {
		env.mock.ExpectQuery(`WHERE e.user_id = \$1`).WithArgs(u.ID).WillReturnError(sql.ErrNoRows)
		return pair.Access
	}

	env.mock.ExpectQuery(`WHERE e.user_id = \$1`).WithArgs(u.ID).WillReturnRows(employeeRows(e))
	rows := sqlmock.NewRows([]string{"project_id"})
	for _, id := range projectIDs {
		rows.AddRow(id)
	}
	env.mock.ExpectQuery(`SELECT project_id FROM project_assignments`).WithArgs(e.ID).WillReturnRows(rows)

	return pair.Access
}

func (env *testEnv) do(t *testing.T, method, path, accessToken string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	rec := httptest.NewRecorder()
	env.h.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func managerAccount(userID, employeeID, departmentID int64) (*domain.User, *domain.Employee) {
	u := &domain.User{ID: userID, Username: "manager", Email: "manager@example.com", FirstName: "Mona", Role: domain.RoleManager, IsActive: true}
	e := &domain.Employee{ID: employeeID, UserID: userID, CompanyID: 1, DepartmentID: departmentID, Name: "Mona", Email: u.Email}
	return u, e
}

func staffAccount(userID, employeeID, departmentID int64) (*domain.User, *domain.Employee) {
	u := &domain.User{ID: userID, Username: "staff", Email: "staff@example.com", FirstName: "Sam", Role: domain.RoleEmployee, IsActive: true}
	e := &domain.Employee{ID: employeeID, UserID: userID, CompanyID: 1, DepartmentID: departmentID, Name: "Sam", Email: u.Email}
	return u, e
}
