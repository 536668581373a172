package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the fixed set of account roles
type Role string

// Account roles.
const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleDepartment Role = "department"
	RoleDriver     Role = "driver"
	RoleHospital   Role = "hospital"
	RoleCitizen    Role = "citizen"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDepartment, RoleDriver, RoleHospital, RoleCitizen:
		return true
	}
	return false
}

// Impersonatable reports whether a super-admin may impersonate accounts
// of this role. Super-admins and citizens are never impersonated.
func (r Role) Impersonatable() bool {
	switch r {
	case RoleAdmin, RoleDepartment, RoleDriver, RoleHospital:
		return true
	}
	return false
}

// UserStatus is the general account state, independent of restriction
type UserStatus string

// Account statuses.
const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details UserDetails        `json:"user" bson:"user"`
	Version int32              `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined
// in the user collection in mongo. The per-role profile sections are only
// present for their associated role; ValidateProfile enforces the pairing.
type UserDetails struct {
	Name               string              `json:"name" bson:"name"`
	Email              string              `json:"email" bson:"email"`
	Phone              string              `json:"phone" bson:"phone"`
	CNIC               string              `json:"cnic,omitempty" bson:"cnic,omitempty"`
	Password           string              `json:"password,omitempty" bson:"password"`
	Role               Role                `json:"role" bson:"role"`
	Status             UserStatus          `json:"status" bson:"status"`
	Department         *DepartmentProfile  `json:"department,omitempty" bson:"department,omitempty"`
	Driver             *DriverProfile      `json:"driver,omitempty" bson:"driver,omitempty"`
	Hospital           *HospitalProfile    `json:"hospital,omitempty" bson:"hospital,omitempty"`
	RestrictionEndDate *primitive.DateTime `json:"restrictionEndDate,omitempty" bson:"restrictionEndDate,omitempty"`
	RestrictionReason  string              `json:"restrictionReason,omitempty" bson:"restrictionReason,omitempty"`
	CreatedAt          primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt          primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// DepartmentProfile is the profile section for department accounts
type DepartmentProfile struct {
	Name string `json:"name" bson:"name"`
}

// DriverProfile is the profile section for ambulance driver accounts
type DriverProfile struct {
	Department       string `json:"department" bson:"department"`
	AmbulanceService string `json:"ambulanceService,omitempty" bson:"ambulanceService,omitempty"`
	DrivingLicense   string `json:"drivingLicense,omitempty" bson:"drivingLicense,omitempty"`
}

// HospitalProfile is the profile section for hospital accounts
type HospitalProfile struct {
	Name string `json:"name" bson:"name"`
}

// Restricted reports whether the account is login-restricted at the given
// instant. Restriction is evaluated independently of Status: a restricted
// account may still read "active".
func (d UserDetails) Restricted(now time.Time) bool {
	return d.RestrictionEndDate != nil && d.RestrictionEndDate.Time().After(now)
}

// ValidateProfile checks that the profile section matching the role is
// present and complete, and that no foreign profile section is attached.
func (d UserDetails) ValidateProfile() error {
	switch d.Role {
	case RoleDepartment:
		if d.Department == nil || d.Department.Name == "" {
			return fmt.Errorf("department profile is required for department accounts")
		}
		if d.Driver != nil || d.Hospital != nil {
			return fmt.Errorf("department accounts may only carry a department profile")
		}
	case RoleDriver:
		if d.Driver == nil || d.Driver.Department == "" {
			return fmt.Errorf("driver profile with a department is required for driver accounts")
		}
		if d.Department != nil || d.Hospital != nil {
			return fmt.Errorf("driver accounts may only carry a driver profile")
		}
	case RoleHospital:
		if d.Hospital == nil || d.Hospital.Name == "" {
			return fmt.Errorf("hospital profile is required for hospital accounts")
		}
		if d.Department != nil || d.Driver != nil {
			return fmt.Errorf("hospital accounts may only carry a hospital profile")
		}
	default:
		if d.Department != nil || d.Driver != nil || d.Hospital != nil {
			return fmt.Errorf("%s accounts may not carry a profile section", d.Role)
		}
	}
	return nil
}

// Sanitized returns a copy safe to hand back to clients, with the
// password hash removed.
func (u User) Sanitized() User {
	u.Details.Password = ""
	return u
}
