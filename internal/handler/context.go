package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

type ContextKey string

var (
	PrincipalCtx  ContextKey = "principal"
	MyInfoCtx     ContextKey = "myInfo"
	UserInfoCtx   ContextKey = "userInfo"
	CompanyCtx    ContextKey = "company"
	DepartmentCtx ContextKey = "department"
	EmployeeCtx   ContextKey = "employee"
	ProjectCtx    ContextKey = "project"
	ReviewCtx     ContextKey = "review"
	OwnProfileCtx ContextKey = "ownProfile"
)

func principalFrom(r *http.Request) *policy.Principal {
	p, _ := r.Context().Value(PrincipalCtx).(*policy.Principal)
	return p
}

func myInfoFrom(r *http.Request) *domain.User {
	return r.Context().Value(MyInfoCtx).(*domain.User)
}

func companyTarget(c *domain.Company) *policy.Target {
	return &policy.Target{CompanyID: c.ID}
}

func departmentTarget(d *domain.Department) *policy.Target {
	return &policy.Target{CompanyID: d.CompanyID, DepartmentID: d.ID}
}

func employeeTarget(e *domain.Employee) *policy.Target {
	return &policy.Target{
		CompanyID:    e.CompanyID,
		DepartmentID: e.DepartmentID,
		OwnerUserID:  e.UserID,
	}
}

func projectTarget(p *domain.Project) *policy.Target {
	return &policy.Target{
		CompanyID:    p.CompanyID,
		DepartmentID: p.DepartmentID,
		ProjectID:    p.ID,
	}
}

func reviewTarget(pr *domain.PerformanceReview) *policy.Target {
	return &policy.Target{
		DepartmentID:      pr.DepartmentID,
		SubjectEmployeeID: pr.EmployeeID,
	}
}
