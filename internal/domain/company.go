package domain

import "time"

type Company struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	NumberOfDepartments int64     `json:"numberOfDepartments"`
	NumberOfEmployees   int64     `json:"numberOfEmployees"`
	NumberOfProjects    int64     `json:"numberOfProjects"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
	Version             int32     `json:"-"`
}

type Department struct {
	ID                int64     `json:"id"`
	CompanyID         int64     `json:"company"`
	CompanyName       string    `json:"companyName"`
	Name              string    `json:"name"`
	NumberOfEmployees int64     `json:"numberOfEmployees"`
	NumberOfProjects  int64     `json:"numberOfProjects"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	Version           int32     `json:"-"`
}
