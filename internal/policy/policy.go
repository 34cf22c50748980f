// Package policy decides whether a requester may read or write a resource.
//
// Every handler asks the same question through Can, and list endpoints get their row
// filter from ListScope, so that detail and list visibility never drift apart.
package policy

import (
	"slices"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

type Action int

const (
	ActionRead Action = iota
	ActionWrite
)

func (a Action) String() string {
	if a == ActionWrite {
		return "write"
	}
	return "read"
}

type Resource string

const (
	ResourceCompany    Resource = "company"
	ResourceDepartment Resource = "department"
	ResourceEmployee   Resource = "employee"
	ResourceProject    Resource = "project"
	ResourceReview     Resource = "performance_review"
)

// Principal is the authenticated requester. Employee is nil when the user has no
// linked employee profile.
type Principal struct {
	UserID             int64
	Role               domain.Role
	Employee           *domain.Employee
	AssignedProjectIDs []int64
}

func (p *Principal) hasProfile() bool {
	return p.Employee != nil
}

// Target is the object under evaluation, flattened to the attributes the rules compare.
type Target struct {
	CompanyID    int64
	DepartmentID int64
	// OwnerUserID is the user linked to an employee record.
	OwnerUserID int64
	// SubjectEmployeeID is the employee a review is about.
	SubjectEmployeeID int64
	ProjectID         int64
}

type objectRule func(p *Principal, action Action, t *Target) bool

type rule struct {
	// create lists the non-admin roles allowed to write at collection level.
	create []domain.Role
	object objectRule
}

var rules = map[Resource]rule{
	ResourceCompany: {
		create: nil,
		object: func(p *Principal, action Action, t *Target) bool {
			if action == ActionWrite {
				return false
			}
			switch p.Role {
			case domain.RoleManager:
				return true
			case domain.RoleEmployee:
				return p.hasProfile() && p.Employee.CompanyID == t.CompanyID
			}
			return false
		},
	},
	ResourceDepartment: {
		create: []domain.Role{domain.RoleManager},
		object: func(p *Principal, action Action, t *Target) bool {
			switch p.Role {
			case domain.RoleManager:
				if action == ActionRead {
					return true
				}
				return p.hasProfile() && p.Employee.DepartmentID == t.DepartmentID
			case domain.RoleEmployee:
				return action == ActionRead && p.hasProfile() && p.Employee.CompanyID == t.CompanyID
			}
			return false
		},
	},
	ResourceEmployee: {
		create: []domain.Role{domain.RoleManager},
		object: func(p *Principal, action Action, t *Target) bool {
			switch p.Role {
			case domain.RoleManager:
				if action == ActionRead {
					return true
				}
				return p.hasProfile() && p.Employee.DepartmentID == t.DepartmentID
			case domain.RoleEmployee:
				return action == ActionRead && p.hasProfile() && t.OwnerUserID == p.UserID
			}
			return false
		},
	},
	ResourceProject: {
		create: []domain.Role{domain.RoleManager},
		object: func(p *Principal, action Action, t *Target) bool {
			switch p.Role {
			case domain.RoleManager:
				if action == ActionRead {
					return true
				}
				return p.hasProfile() && p.Employee.DepartmentID == t.DepartmentID
			case domain.RoleEmployee:
				return action == ActionRead && p.hasProfile() && slices.Contains(p.AssignedProjectIDs, t.ProjectID)
			}
			return false
		},
	},
	ResourceReview: {
		create: []domain.Role{domain.RoleManager},
		object: func(p *Principal, action Action, t *Target) bool {
			switch p.Role {
			case domain.RoleManager:
				if action == ActionRead {
					return true
				}
				// t.DepartmentID is the subject employee's department.
				return p.hasProfile() && p.Employee.DepartmentID == t.DepartmentID
			case domain.RoleEmployee:
				return action == ActionRead && p.hasProfile() && t.SubjectEmployeeID == p.Employee.ID
			}
			return false
		},
	},
}

// Can reports whether p may perform action on resource. A nil target asks the
// collection-level question (list or create); otherwise the object rule decides.
func Can(p *Principal, action Action, resource Resource, t *Target) bool {
	if p == nil {
		return false
	}
	r, ok := rules[resource]
	if !ok || !p.Role.Valid() {
		return false
	}
	if p.Role == domain.RoleAdmin {
		return true
	}

	if t == nil {
		if action == ActionRead {
			return true
		}
		return slices.Contains(r.create, p.Role)
	}

	// object writes never widen what the role may write at collection level
	if action == ActionWrite && !slices.Contains(r.create, p.Role) {
		return false
	}

	return r.object(p, action, t)
}

// CanCreate checks both levels for a new object: the role must be allowed to create the
// resource and the object must fall inside the requester's write scope.
func CanCreate(p *Principal, resource Resource, t *Target) bool {
	return Can(p, ActionWrite, resource, nil) && Can(p, ActionWrite, resource, t)
}

// CanEditOwnProfile reports whether p may edit the employee record linked to their own
// account through the profile endpoint. It grants no delete and no other record.
func CanEditOwnProfile(p *Principal, t *Target) bool {
	return p != nil && p.hasProfile() && t != nil && t.OwnerUserID == p.UserID
}
