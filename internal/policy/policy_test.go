package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

func employeePrincipal() *Principal {
	return &Principal{
		UserID: 10,
		Role:   domain.RoleEmployee,
		Employee: &domain.Employee{
			ID:           100,
			UserID:       10,
			CompanyID:    1,
			DepartmentID: 11,
		},
		AssignedProjectIDs: []int64{500},
	}
}

func managerPrincipal() *Principal {
	return &Principal{
		UserID: 20,
		Role:   domain.RoleManager,
		Employee: &domain.Employee{
			ID:           200,
			UserID:       20,
			CompanyID:    1,
			DepartmentID: 11,
		},
	}
}

var allResources = []Resource{ResourceCompany, ResourceDepartment, ResourceEmployee, ResourceProject, ResourceReview}

func TestUnauthenticatedIsDenied(t *testing.T) {
	for _, res := range allResources {
		assert.False(t, Can(nil, ActionRead, res, nil))
		assert.False(t, Can(nil, ActionRead, res, &Target{}))
		assert.False(t, Can(nil, ActionWrite, res, nil))
	}
	assert.True(t, ListScope(nil, ResourceCompany).None)
}

func TestAdminAlwaysAllowed(t *testing.T) {
	admin := &Principal{UserID: 1, Role: domain.RoleAdmin}
	for _, res := range allResources {
		assert.True(t, Can(admin, ActionRead, res, nil))
		assert.True(t, Can(admin, ActionWrite, res, nil))
		assert.True(t, Can(admin, ActionWrite, res, &Target{CompanyID: 99, DepartmentID: 99}))
	}
	assert.True(t, ListScope(admin, ResourceReview).All())
}

func TestUnknownRoleIsDenied(t *testing.T) {
	p := &Principal{UserID: 1, Role: "intern"}
	assert.False(t, Can(p, ActionRead, ResourceCompany, nil))
	assert.True(t, ListScope(p, ResourceCompany).None)
}

func TestCollectionLevel(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	for _, res := range allResources {
		assert.True(t, Can(emp, ActionRead, res, nil), "employee list %s", res)
		assert.True(t, Can(mgr, ActionRead, res, nil), "manager list %s", res)
		assert.False(t, Can(emp, ActionWrite, res, nil), "employee create %s", res)
	}

	assert.False(t, Can(mgr, ActionWrite, ResourceCompany, nil))
	assert.True(t, Can(mgr, ActionWrite, ResourceDepartment, nil))
	assert.True(t, Can(mgr, ActionWrite, ResourceEmployee, nil))
	assert.True(t, Can(mgr, ActionWrite, ResourceProject, nil))
	assert.True(t, Can(mgr, ActionWrite, ResourceReview, nil))
}

func TestCompanyRules(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	own := &Target{CompanyID: 1}
	other := &Target{CompanyID: 2}

	assert.True(t, Can(emp, ActionRead, ResourceCompany, own))
	assert.False(t, Can(emp, ActionRead, ResourceCompany, other))
	assert.True(t, Can(mgr, ActionRead, ResourceCompany, other))
	assert.False(t, Can(mgr, ActionWrite, ResourceCompany, own))
}

func TestDepartmentRules(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	ownDept := &Target{CompanyID: 1, DepartmentID: 11}
	sameCompany := &Target{CompanyID: 1, DepartmentID: 12}
	otherCompany := &Target{CompanyID: 2, DepartmentID: 21}

	assert.True(t, Can(emp, ActionRead, ResourceDepartment, ownDept))
	assert.True(t, Can(emp, ActionRead, ResourceDepartment, sameCompany))
	assert.False(t, Can(emp, ActionRead, ResourceDepartment, otherCompany))
	assert.False(t, Can(emp, ActionWrite, ResourceDepartment, ownDept))

	assert.True(t, Can(mgr, ActionRead, ResourceDepartment, otherCompany))
	assert.True(t, Can(mgr, ActionWrite, ResourceDepartment, ownDept))
	assert.False(t, Can(mgr, ActionWrite, ResourceDepartment, sameCompany))
	assert.False(t, Can(mgr, ActionWrite, ResourceDepartment, otherCompany))
}

func TestEmployeeRules(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	self := &Target{CompanyID: 1, DepartmentID: 11, OwnerUserID: 10}
	colleague := &Target{CompanyID: 1, DepartmentID: 11, OwnerUserID: 11}
	elsewhere := &Target{CompanyID: 1, DepartmentID: 12, OwnerUserID: 12}

	assert.True(t, Can(emp, ActionRead, ResourceEmployee, self))
	// own-record edits go through CanEditOwnProfile, never the generic write rule
	assert.False(t, Can(emp, ActionWrite, ResourceEmployee, self))
	assert.True(t, CanEditOwnProfile(emp, self))
	assert.False(t, CanEditOwnProfile(emp, colleague))
	assert.False(t, CanEditOwnProfile(&Principal{UserID: 10, Role: domain.RoleEmployee}, self))
	assert.False(t, Can(emp, ActionRead, ResourceEmployee, colleague))
	assert.False(t, Can(emp, ActionWrite, ResourceEmployee, colleague))

	assert.True(t, Can(mgr, ActionRead, ResourceEmployee, elsewhere))
	assert.True(t, Can(mgr, ActionWrite, ResourceEmployee, colleague))
	assert.False(t, Can(mgr, ActionWrite, ResourceEmployee, elsewhere))
}

func TestProjectRules(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	assigned := &Target{CompanyID: 1, DepartmentID: 12, ProjectID: 500}
	notAssigned := &Target{CompanyID: 1, DepartmentID: 11, ProjectID: 501}

	assert.True(t, Can(emp, ActionRead, ResourceProject, assigned))
	assert.False(t, Can(emp, ActionRead, ResourceProject, notAssigned))
	assert.False(t, Can(emp, ActionWrite, ResourceProject, assigned))
	assert.False(t, Can(emp, ActionWrite, ResourceProject, notAssigned))

	assert.True(t, Can(mgr, ActionRead, ResourceProject, assigned))
	assert.True(t, Can(mgr, ActionWrite, ResourceProject, notAssigned))
	assert.False(t, Can(mgr, ActionWrite, ResourceProject, assigned))
}

func TestReviewRules(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	mine := &Target{SubjectEmployeeID: 100, DepartmentID: 11}
	colleagues := &Target{SubjectEmployeeID: 101, DepartmentID: 11}
	otherDept := &Target{SubjectEmployeeID: 300, DepartmentID: 12}

	assert.True(t, Can(emp, ActionRead, ResourceReview, mine))
	assert.False(t, Can(emp, ActionWrite, ResourceReview, mine))
	assert.False(t, Can(emp, ActionRead, ResourceReview, colleagues))

	assert.True(t, Can(mgr, ActionRead, ResourceReview, otherDept))
	assert.True(t, Can(mgr, ActionWrite, ResourceReview, colleagues))
	assert.False(t, Can(mgr, ActionWrite, ResourceReview, otherDept))
}

func TestMissingProfileDeniesWithoutPanic(t *testing.T) {
	emp := &Principal{UserID: 10, Role: domain.RoleEmployee}
	mgr := &Principal{UserID: 20, Role: domain.RoleManager}
	target := &Target{CompanyID: 1, DepartmentID: 11, OwnerUserID: 10, SubjectEmployeeID: 100, ProjectID: 500}

	for _, res := range allResources {
		assert.NotPanics(t, func() {
			assert.False(t, Can(emp, ActionRead, res, target), "employee read %s", res)
			assert.False(t, Can(emp, ActionWrite, res, target), "employee write %s", res)
			assert.False(t, Can(mgr, ActionWrite, res, target), "manager write %s", res)
		})
		assert.True(t, ListScope(emp, res).None)
	}

	assert.True(t, Can(mgr, ActionRead, ResourceDepartment, target))
}

func TestCanCreate(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	assert.True(t, CanCreate(mgr, ResourceDepartment, &Target{CompanyID: 1, DepartmentID: 11}))
	assert.False(t, CanCreate(mgr, ResourceDepartment, &Target{CompanyID: 1, DepartmentID: 12}))
	assert.False(t, CanCreate(mgr, ResourceCompany, &Target{}))
	assert.False(t, CanCreate(emp, ResourceProject, &Target{CompanyID: 1, DepartmentID: 11}))
}

func TestListScope(t *testing.T) {
	emp := employeePrincipal()
	mgr := managerPrincipal()

	for _, res := range allResources {
		assert.True(t, ListScope(mgr, res).All(), "manager sees all %s", res)
	}

	dept := ListScope(emp, ResourceDepartment)
	if assert.NotNil(t, dept.CompanyID) {
		assert.Equal(t, int64(1), *dept.CompanyID)
	}

	company := ListScope(emp, ResourceCompany)
	if assert.NotNil(t, company.CompanyID) {
		assert.Equal(t, int64(1), *company.CompanyID)
	}

	employees := ListScope(emp, ResourceEmployee)
	if assert.NotNil(t, employees.EmployeeID) {
		assert.Equal(t, int64(100), *employees.EmployeeID)
	}

	reviews := ListScope(emp, ResourceReview)
	if assert.NotNil(t, reviews.EmployeeID) {
		assert.Equal(t, int64(100), *reviews.EmployeeID)
	}

	projects := ListScope(emp, ResourceProject)
	if assert.NotNil(t, projects.AssigneeID) {
		assert.Equal(t, int64(100), *projects.AssigneeID)
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "read", ActionRead.String())
	assert.Equal(t, "write", ActionWrite.String())
}

func TestEmployeeRoleNeverWritesObjects(t *testing.T) {
	emp := employeePrincipal()
	// a target matching every attribute of the employee's own scope
	own := &Target{CompanyID: 1, DepartmentID: 11, OwnerUserID: 10, SubjectEmployeeID: 100, ProjectID: 500}

	for _, res := range allResources {
		assert.False(t, Can(emp, ActionWrite, res, own), "employee write %s", res)
	}
}
