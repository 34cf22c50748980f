package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

var companyPrefixes = []string{"Blue", "North", "Bright", "Silver", "Quantum", "Cedar", "Atlas", "Nimbus"}
var companySuffixes = []string{"Labs", "Systems", "Works", "Dynamics", "Holdings", "Logistics"}
var departmentNames = []string{"Engineering", "Finance", "Human Resources", "Marketing", "Sales", "Operations", "Legal", "Support"}
var designations = []string{"Engineer", "Senior Engineer", "Analyst", "Accountant", "Recruiter", "Designer", "Team Lead", "Specialist"}
var projectWords = []string{"Apollo", "Beacon", "Compass", "Delta", "Ember", "Falcon", "Granite", "Harbor", "Iris", "Juniper"}

var roles = []domain.Role{
	domain.RoleEmployee,
	domain.RoleEmployee,
	domain.RoleEmployee,
	domain.RoleManager,
}

var digits = "0123456789"

// GenerateRandomChineseName returns surname and given name separately.
func GenerateRandomChineseName() (string, string) {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname, name
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, py := range pinyinArray {
		length := rand.Intn(len(py)) + 1
		username += py[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	surname, givenName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(surname + givenName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FirstName:    givenName,
		LastName:     surname,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func GenerateRandomID(letterLength int, digitLength int) string {
	randomID := make([]rune, letterLength+digitLength)
	for i := range randomID {
		if i < letterLength {
			randomID[i] = letters[rand.Intn(len(letters))]
		} else {
			randomID[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(randomID)
}

func GenerateRandomCompany() *domain.Company {
	return &domain.Company{
		Name: fmt.Sprintf("%s %s %s",
			companyPrefixes[rand.Intn(len(companyPrefixes))],
			companySuffixes[rand.Intn(len(companySuffixes))],
			GenerateRandomID(0, 4),
		),
	}
}

// GenerateRandomDepartments picks n distinct department names for a company.
func GenerateRandomDepartments(companyID int64, n int) []*domain.Department {
	n = min(n, len(departmentNames))
	departments := make([]*domain.Department, 0, n)
	for _, i := range rand.Perm(len(departmentNames))[:n] {
		departments = append(departments, &domain.Department{CompanyID: companyID, Name: departmentNames[i]})
	}
	return departments
}

// GenerateRandomEmployee builds the employee profile of user inside department.
func GenerateRandomEmployee(user *domain.User, department *domain.Department) *domain.Employee {
	hiredOn := domain.NewDate(2015+rand.Intn(10), time.Month(rand.Intn(12)+1), rand.Intn(28)+1)
	return &domain.Employee{
		UserID:       user.ID,
		CompanyID:    department.CompanyID,
		DepartmentID: department.ID,
		Name:         user.FullName(),
		Email:        user.Email,
		MobileNumber: "1" + GenerateRandomID(0, 10),
		Address:      fmt.Sprintf("%d Example Road", rand.Intn(900)+100),
		Designation:  designations[rand.Intn(len(designations))],
		HiredOn:      &hiredOn,
	}
}

// GenerateRandomProject builds a project in department with a random subset of candidates
// assigned.
func GenerateRandomProject(department *domain.Department, candidates []int64) *domain.Project {
	start := domain.NewDate(2024, time.Month(rand.Intn(12)+1), rand.Intn(28)+1)
	end := domain.Date{Time: start.AddDate(0, rand.Intn(12)+1, 0)}

	assigned := make([]int64, 0)
	if len(candidates) > 0 {
		for _, i := range rand.Perm(len(candidates))[:rand.Intn(min(len(candidates), 5))+1] {
			assigned = append(assigned, candidates[i])
		}
	}

	return &domain.Project{
		CompanyID:         department.CompanyID,
		DepartmentID:      department.ID,
		Name:              fmt.Sprintf("Project %s %s", projectWords[rand.Intn(len(projectWords))], GenerateRandomID(2, 2)),
		Description:       "Generated project " + GenerateRandomID(12, 4),
		StartDate:         start,
		EndDate:           end,
		AssignedEmployees: assigned,
	}
}

// GenerateRandomStagePath returns a legal sequence of stages starting after
// pending_review, at most maxSteps long.
func GenerateRandomStagePath(maxSteps int) []domain.Stage {
	path := make([]domain.Stage, 0, maxSteps)
	current := domain.StagePendingReview
	for i := 0; i < maxSteps; i++ {
		next := current.AllowedNext()
		if len(next) == 0 {
			break
		}
		current = next[rand.Intn(len(next))]
		path = append(path, current)
	}
	return path
}
