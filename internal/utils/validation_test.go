package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attrs    []string
		ok       bool
	}{
		{"strong", "c0rrect-horse", nil, true},
		{"too short", "a1b2c3", nil, false},
		{"numeric", "1234567890", nil, false},
		{"common", "Password", nil, false},
		{"contains username", "xxalicexx99", []string{"alice"}, false},
		{"short attribute ignored", "xxabxx9999", []string{"ab"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword("password", tt.password, tt.attrs...)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var fe *domain.FieldError
			require.True(t, errors.As(err, &fe))
			assert.Contains(t, fe.Fields, "password")
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestValidateProjectDates(t *testing.T) {
	start := domain.NewDate(2024, time.March, 1)
	end := domain.NewDate(2024, time.February, 1)

	assert.NoError(t, ValidateProjectDates(start, start))
	assert.NoError(t, ValidateProjectDates(end, start))
	assert.ErrorIs(t, ValidateProjectDates(start, end), domain.ErrValidation)
}

func TestEmailLocalPart(t *testing.T) {
	assert.Equal(t, "alice", EmailLocalPart("alice@example.com"))
	assert.Equal(t, "bob", EmailLocalPart("bob"))
}
