package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RoshiKK/emergency-response-api/models"
)

func TestUserDetails_Restricted(t *testing.T) {
	now := time.Now()

	future := primitive.NewDateTimeFromTime(now.Add(48 * time.Hour))
	past := primitive.NewDateTimeFromTime(now.Add(-time.Hour))

	restricted := models.UserDetails{Status: models.UserActive, RestrictionEndDate: &future}
	expired := models.UserDetails{Status: models.UserActive, RestrictionEndDate: &past}
	clean := models.UserDetails{Status: models.UserActive}

	// restriction is independent of status: the account still reads active
	assert.True(t, restricted.Restricted(now))
	assert.Equal(t, models.UserActive, restricted.Status)

	assert.False(t, expired.Restricted(now))
	assert.False(t, clean.Restricted(now))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, models.RoleSuperAdmin.Valid())
	assert.True(t, models.RoleCitizen.Valid())
	assert.False(t, models.Role("dispatcher").Valid())
	assert.False(t, models.Role("").Valid())
}

func TestRole_Impersonatable(t *testing.T) {
	assert.True(t, models.RoleAdmin.Impersonatable())
	assert.True(t, models.RoleDriver.Impersonatable())
	assert.True(t, models.RoleHospital.Impersonatable())
	assert.True(t, models.RoleDepartment.Impersonatable())
	assert.False(t, models.RoleSuperAdmin.Impersonatable())
	assert.False(t, models.RoleCitizen.Impersonatable())
}

func TestUserDetails_ValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		details models.UserDetails
		wantErr bool
	}{
		{
			"department with profile",
			models.UserDetails{Role: models.RoleDepartment, Department: &models.DepartmentProfile{Name: "Rescue 1122"}},
			false,
		},
		{
			"department without profile",
			models.UserDetails{Role: models.RoleDepartment},
			true,
		},
		{
			"driver with profile",
			models.UserDetails{Role: models.RoleDriver, Driver: &models.DriverProfile{Department: "Rescue 1122"}},
			false,
		},
		{
			"driver missing department",
			models.UserDetails{Role: models.RoleDriver, Driver: &models.DriverProfile{}},
			true,
		},
		{
			"hospital with profile",
			models.UserDetails{Role: models.RoleHospital, Hospital: &models.HospitalProfile{Name: "Jinnah Hospital"}},
			false,
		},
		{
			"citizen with a foreign profile section",
			models.UserDetails{Role: models.RoleCitizen, Driver: &models.DriverProfile{Department: "x"}},
			true,
		},
		{
			"driver carrying hospital section",
			models.UserDetails{
				Role:     models.RoleDriver,
				Driver:   &models.DriverProfile{Department: "Rescue 1122"},
				Hospital: &models.HospitalProfile{Name: "x"},
			},
			true,
		},
		{
			"plain citizen",
			models.UserDetails{Role: models.RoleCitizen},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.ValidateProfile()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUser_SanitizedClearsPassword(t *testing.T) {
	u := models.User{
		ID:      primitive.NewObjectID(),
		Details: models.UserDetails{Name: "Ali", Password: "$2a$10$secret"},
	}

	clean := u.Sanitized()

	assert.Empty(t, clean.Details.Password)
	assert.Equal(t, "$2a$10$secret", u.Details.Password, "original is untouched")
	assert.Equal(t, u.ID, clean.ID)
}
