package policy

import "github.com/sysu-ecnc-dev/talentum/backend/internal/domain"

// Scope narrows a list query. At most one of the pointer fields is set; None wins over
// everything else.
type Scope struct {
	None         bool
	CompanyID    *int64
	DepartmentID *int64
	// EmployeeID restricts to a single employee (employee lists) or to reviews whose
	// subject is that employee.
	EmployeeID *int64
	// AssigneeID restricts projects to those the employee is assigned to.
	AssigneeID *int64
}

func (s Scope) All() bool {
	return !s.None && s.CompanyID == nil && s.DepartmentID == nil && s.EmployeeID == nil && s.AssigneeID == nil
}

// ListScope mirrors the read rules of Can for list endpoints.
func ListScope(p *Principal, resource Resource) Scope {
	if p == nil {
		return Scope{None: true}
	}

	switch p.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return Scope{}
	case domain.RoleEmployee:
	default:
		return Scope{None: true}
	}

	if !p.hasProfile() {
		return Scope{None: true}
	}

	emp := p.Employee
	switch resource {
	case ResourceCompany, ResourceDepartment:
		return Scope{CompanyID: &emp.CompanyID}
	case ResourceEmployee, ResourceReview:
		return Scope{EmployeeID: &emp.ID}
	case ResourceProject:
		return Scope{AssigneeID: &emp.ID}
	}
	return Scope{None: true}
}
