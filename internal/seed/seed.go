package seed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/repository"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const listPageSize = 100

// Store is the part of the repository the seeder writes through.
type Store interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListCompanies(ctx context.Context, scope policy.Scope, p repository.ListParams) (*repository.Page[*domain.Company], error)
	CreateCompany(ctx context.Context, c *domain.Company) error
	ListDepartments(ctx context.Context, scope policy.Scope, p repository.ListParams) (*repository.Page[*domain.Department], error)
	CreateDepartment(ctx context.Context, d *domain.Department) error
	ListEmployees(ctx context.Context, scope policy.Scope, p repository.ListParams) (*repository.Page[*domain.Employee], error)
	CreateEmployee(ctx context.Context, e *domain.Employee) error
	CreateProject(ctx context.Context, project *domain.Project) error
	CreateReview(ctx context.Context, pr *domain.PerformanceReview) error
	TransitionReview(ctx context.Context, id int64, target domain.Stage, check func(pr *domain.PerformanceReview) error) (*domain.PerformanceReview, error)
}

type Seeder struct {
	store       Store
	password    string
	emailDomain string
}

func New(store Store, password, emailDomain string) *Seeder {
	return &Seeder{store: store, password: password, emailDomain: emailDomain}
}

// Users inserts n random accounts and returns how many made it.
func (s *Seeder) Users(ctx context.Context, n int) int {
	cnt := 0
	for i := 0; i < n; i++ {
		if _, err := s.createRandomUser(ctx); err != nil {
			slog.Error("failed to insert user", "error", err)
			continue
		}
		cnt++
	}
	return cnt
}

func (s *Seeder) createRandomUser(ctx context.Context) (*domain.User, error) {
	user, err := utils.GenerateRandomUser(s.password, s.emailDomain)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Companies inserts n random companies with two to five departments each.
func (s *Seeder) Companies(ctx context.Context, n int) int {
	cnt := 0
	for i := 0; i < n; i++ {
		company := utils.GenerateRandomCompany()
		if err := s.store.CreateCompany(ctx, company); err != nil {
			slog.Error("failed to insert company", "error", err)
			continue
		}

		for _, d := range utils.GenerateRandomDepartments(company.ID, rand.Intn(4)+2) {
			if err := s.store.CreateDepartment(ctx, d); err != nil {
				slog.Error("failed to insert department", "company", company.ID, "error", err)
			}
		}
		cnt++
	}
	return cnt
}

// Employees inserts n random users, each with an employee profile in a random department.
func (s *Seeder) Employees(ctx context.Context, n int) (int, error) {
	departments, err := s.allDepartments(ctx)
	if err != nil {
		return 0, err
	}
	if len(departments) == 0 {
		return 0, errors.New("no departments to place employees in")
	}

	cnt := 0
	for i := 0; i < n; i++ {
		user, err := s.createRandomUser(ctx)
		if err != nil {
			slog.Error("failed to insert user", "error", err)
			continue
		}

		department := departments[rand.Intn(len(departments))]
		if err := s.store.CreateEmployee(ctx, utils.GenerateRandomEmployee(user, department)); err != nil {
			slog.Error("failed to insert employee", "user", user.ID, "error", err)
			continue
		}
		cnt++
	}
	return cnt, nil
}

// Projects inserts n projects into random departments that have staff, assigning some of
// the department's employees.
func (s *Seeder) Projects(ctx context.Context, n int) (int, error) {
	staffed, err := s.staffedDepartments(ctx)
	if err != nil {
		return 0, err
	}
	if len(staffed) == 0 {
		return 0, errors.New("no department has employees yet")
	}

	cnt := 0
	for i := 0; i < n; i++ {
		sd := staffed[rand.Intn(len(staffed))]
		ids := make([]int64, 0, len(sd.employees))
		for _, e := range sd.employees {
			ids = append(ids, e.ID)
		}

		project := utils.GenerateRandomProject(sd.department, ids)
		if err := s.store.CreateProject(ctx, project); err != nil {
			slog.Error("failed to insert project", "department", sd.department.ID, "error", err)
			continue
		}
		cnt++
	}
	return cnt, nil
}

// Reviews inserts n reviews and walks each through a random legal sequence of stages.
func (s *Seeder) Reviews(ctx context.Context, n int) (int, error) {
	staffed, err := s.staffedDepartments(ctx)
	if err != nil {
		return 0, err
	}
	if len(staffed) == 0 {
		return 0, errors.New("no department has employees yet")
	}

	cnt := 0
	for i := 0; i < n; i++ {
		sd := staffed[rand.Intn(len(staffed))]
		subject := sd.employees[rand.Intn(len(sd.employees))]

		pr := &domain.PerformanceReview{
			EmployeeID: subject.ID,
			Feedback:   "Generated review",
		}
		if reviewer := sd.employees[rand.Intn(len(sd.employees))]; reviewer.ID != subject.ID {
			pr.ReviewerID = &reviewer.ID
		}
		if err := s.store.CreateReview(ctx, pr); err != nil {
			slog.Error("failed to insert review", "employee", subject.ID, "error", err)
			continue
		}

		for _, stage := range utils.GenerateRandomStagePath(rand.Intn(6)) {
			if _, err := s.store.TransitionReview(ctx, pr.ID, stage, nil); err != nil {
				slog.Error("failed to transition review", "review", pr.ID, "to", stage, "error", err)
				break
			}
		}
		cnt++
	}
	return cnt, nil
}

type staffedDepartment struct {
	department *domain.Department
	employees  []*domain.Employee
}

func (s *Seeder) staffedDepartments(ctx context.Context) ([]staffedDepartment, error) {
	departments, err := s.allDepartments(ctx)
	if err != nil {
		return nil, err
	}

	staffed := make([]staffedDepartment, 0, len(departments))
	for _, d := range departments {
		page, err := s.store.ListEmployees(ctx, policy.Scope{}, repository.ListParams{
			Page:      1,
			PageSize:  listPageSize,
			IDFilters: map[string]int64{"department": d.ID},
		})
		if err != nil {
			return nil, err
		}
		if len(page.Results) > 0 {
			staffed = append(staffed, staffedDepartment{department: d, employees: page.Results})
		}
	}
	return staffed, nil
}

func (s *Seeder) allDepartments(ctx context.Context) ([]*domain.Department, error) {
	var all []*domain.Department
	for i := 1; ; i++ {
		page, err := s.store.ListDepartments(ctx, policy.Scope{}, repository.ListParams{Page: i, PageSize: listPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if len(page.Results) < listPageSize {
			return all, nil
		}
	}
}

// csvColumns are the headers ImportCSV requires, in any order.
var csvColumns = []string{"company", "department", "username", "first_name", "last_name", "email", "role", "designation", "hired_on"}

// ImportCSV reads an organization export, one employee per row, creating companies,
// departments, users and employee profiles that do not exist yet. Rows that fail are
// logged and skipped. Every created account gets the seeder's password.
func (s *Seeder) ImportCSV(ctx context.Context, src io.Reader) (int, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	companies := map[string]*domain.Company{}
	departments := map[string]*domain.Department{}

	cnt := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return cnt, fmt.Errorf("line %d: %w", line, err)
		}

		record := make(map[string]string, len(csvColumns))
		for _, col := range csvColumns {
			record[col] = strings.TrimSpace(row[index[col]])
		}

		if err := s.importRecord(ctx, record, string(hash), companies, departments); err != nil {
			slog.Error("failed to import row", "line", line, "error", err)
			continue
		}
		cnt++
	}

	return cnt, nil
}

func (s *Seeder) importRecord(
	ctx context.Context,
	record map[string]string,
	passwordHash string,
	companies map[string]*domain.Company,
	departments map[string]*domain.Department,
) error {
	if record["company"] == "" || record["department"] == "" || record["email"] == "" {
		return errors.New("company, department and email are required")
	}

	company, err := s.findOrCreateCompany(ctx, companies, record["company"])
	if err != nil {
		return err
	}
	department, err := s.findOrCreateDepartment(ctx, departments, company, record["department"])
	if err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, record["email"])
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		role := domain.Role(record["role"])
		if !role.Valid() {
			role = domain.RoleEmployee
		}
		username := record["username"]
		if username == "" {
			username = utils.EmailLocalPart(record["email"])
		}
		user = &domain.User{
			Username:     username,
			Email:        record["email"],
			PasswordHash: passwordHash,
			FirstName:    record["first_name"],
			LastName:     record["last_name"],
			Role:         role,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
	default:
		return err
	}

	employee := &domain.Employee{
		UserID:       user.ID,
		CompanyID:    company.ID,
		DepartmentID: department.ID,
		Name:         user.FullName(),
		Email:        user.Email,
		Designation:  record["designation"],
	}
	if v := record["hired_on"]; v != "" {
		hiredOn, err := domain.ParseDate(v)
		if err != nil {
			return fmt.Errorf("hired_on: %w", err)
		}
		employee.HiredOn = &hiredOn
	}

	if err := s.store.CreateEmployee(ctx, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func (s *Seeder) findOrCreateCompany(ctx context.Context, cache map[string]*domain.Company, name string) (*domain.Company, error) {
	if c, ok := cache[name]; ok {
		return c, nil
	}

	page, err := s.store.ListCompanies(ctx, policy.Scope{}, repository.ListParams{
		Page:        1,
		PageSize:    1,
		TextFilters: map[string]string{"name": name},
	})
	if err != nil {
		return nil, err
	}

	var company *domain.Company
	if len(page.Results) > 0 {
		company = page.Results[0]
	} else {
		company = &domain.Company{Name: name}
		if err := s.store.CreateCompany(ctx, company); err != nil {
			return nil, fmt.Errorf("create company: %w", err)
		}
	}

	cache[name] = company
	return company, nil
}

func (s *Seeder) findOrCreateDepartment(ctx context.Context, cache map[string]*domain.Department, company *domain.Company, name string) (*domain.Department, error) {
	key := fmt.Sprintf("%d/%s", company.ID, name)
	if d, ok := cache[key]; ok {
		return d, nil
	}

	page, err := s.store.ListDepartments(ctx, policy.Scope{}, repository.ListParams{
		Page:        1,
		PageSize:    1,
		IDFilters:   map[string]int64{"company": company.ID},
		TextFilters: map[string]string{"name": name},
	})
	if err != nil {
		return nil, err
	}

	var department *domain.Department
	if len(page.Results) > 0 {
		department = page.Results[0]
	} else {
		department = &domain.Department{CompanyID: company.ID, Name: name}
		if err := s.store.CreateDepartment(ctx, department); err != nil {
			return nil, fmt.Errorf("create department: %w", err)
		}
	}

	cache[key] = department
	return department, nil
}
