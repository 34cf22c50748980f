package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

func TestGenerateRandomStagePathIsLegal(t *testing.T) {
	for i := 0; i < 50; i++ {
		path := GenerateRandomStagePath(8)
		current := domain.StagePendingReview
		for _, stage := range path {
			require.True(t, current.CanTransitionTo(stage), "%s -> %s", current, stage)
			current = stage
		}
	}
}

func TestGenerateRandomProjectDates(t *testing.T) {
	department := &domain.Department{ID: 3, CompanyID: 1}
	for i := 0; i < 20; i++ {
		p := GenerateRandomProject(department, []int64{10, 11, 12})
		assert.NoError(t, ValidateProjectDates(p.StartDate, p.EndDate))
		assert.NotEmpty(t, p.AssignedEmployees)
		assert.Equal(t, int64(1), p.CompanyID)
	}
}

func TestGenerateRandomDepartmentsDistinct(t *testing.T) {
	departments := GenerateRandomDepartments(1, 5)
	require.Len(t, departments, 5)

	seen := map[string]bool{}
	for _, d := range departments {
		assert.False(t, seen[d.Name])
		seen[d.Name] = true
	}
}

func TestGenerateRandomUser(t *testing.T) {
	user, err := GenerateRandomUser("changeme123", "example.com")
	require.NoError(t, err)
	assert.Contains(t, user.Email, "@example.com")
	assert.True(t, user.Role.Valid())
	assert.NotEmpty(t, user.PasswordHash)
}
