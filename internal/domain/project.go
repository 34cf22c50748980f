package domain

import "time"

type Project struct {
	ID                     int64     `json:"id"`
	CompanyID              int64     `json:"company"`
	CompanyName            string    `json:"companyName"`
	DepartmentID           int64     `json:"department"`
	DepartmentName         string    `json:"departmentName"`
	Name                   string    `json:"name"`
	Description            string    `json:"description"`
	StartDate              Date      `json:"startDate"`
	EndDate                Date      `json:"endDate"`
	CreatedBy              *int64    `json:"createdBy"`
	AssignedEmployees      []int64   `json:"assignedEmployees"`
	AssignedEmployeesCount int       `json:"assignedEmployeesCount"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
	Version                int32     `json:"-"`
}

func (p *Project) HasAssignee(employeeID int64) bool {
	for _, id := range p.AssignedEmployees {
		if id == employeeID {
			return true
		}
	}
	return false
}
