package domain

import "time"

type Employee struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user"`
	CompanyID      int64     `json:"company"`
	CompanyName    string    `json:"companyName"`
	DepartmentID   int64     `json:"department"`
	DepartmentName string    `json:"departmentName"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	MobileNumber   string    `json:"mobileNumber"`
	Address        string    `json:"address"`
	Designation    string    `json:"designation"`
	HiredOn        *Date     `json:"hiredOn"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Version        int32     `json:"-"`
}

// DaysEmployed counts whole days since HiredOn, zero when not hired yet.
func (e *Employee) DaysEmployed(now time.Time) int {
	if e.HiredOn == nil {
		return 0
	}
	days := int(now.Sub(e.HiredOn.Time).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
