package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Incident holds the structure for the incident collection in mongo. The
// __v field is the monotonic version used for optimistic concurrency:
// every mutation must carry the version it read, and the update filter
// rejects stale writes.
type Incident struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details IncidentDetails    `json:"incident" bson:"incident"`
	Version int32              `json:"__v" bson:"__v"`
}

// IncidentDetails holds the structure for the inner incident structure as
// defined in the incident collection in mongo
type IncidentDetails struct {
	Description     string             `json:"description" bson:"description"`
	Category        string             `json:"category" bson:"category"`
	Priority        Priority           `json:"priority" bson:"priority"`
	Reporter        Reporter           `json:"reporter" bson:"reporter"`
	Location        Location           `json:"location" bson:"location"`
	Photos          []string           `json:"photos" bson:"photos"`
	Status          IncidentStatus     `json:"status" bson:"status"`
	DriverStatus    DriverStatus       `json:"driverStatus,omitempty" bson:"driverStatus,omitempty"`
	HospitalStatus  HospitalStatus     `json:"hospitalStatus,omitempty" bson:"hospitalStatus,omitempty"`
	AssignedTo      *Assignment        `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	PatientStatus   *PatientStatus     `json:"patientStatus,omitempty" bson:"patientStatus,omitempty"`
	RejectionReason string             `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	CancelReason    string             `json:"cancelReason,omitempty" bson:"cancelReason,omitempty"`
	Notes           []IncidentNote     `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt       primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// IncidentNote is a free-form annotation left by a responder while the
// incident is in flight
type IncidentNote struct {
	Note      string             `json:"note" bson:"note"`
	CreatedBy string             `json:"createdBy" bson:"createdBy"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Reporter identifies who reported the incident
type Reporter struct {
	UserID string `json:"userId" bson:"userId"`
	Name   string `json:"name" bson:"name"`
	Phone  string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// Assignment records the department (and later the driver) an approved
// incident was handed to
type Assignment struct {
	Department string              `json:"department" bson:"department"`
	DriverID   *primitive.ObjectID `json:"driverId,omitempty" bson:"driverId,omitempty"`
	Hospital   string              `json:"hospital,omitempty" bson:"hospital,omitempty"`
	AssignedAt primitive.DateTime  `json:"assignedAt" bson:"assignedAt"`
}

// PatientStatus is the clinical annotation attached during admission and
// discharge
type PatientStatus struct {
	Condition string `json:"condition,omitempty" bson:"condition,omitempty"`
	Hospital  string `json:"hospital,omitempty" bson:"hospital,omitempty"`
	Treatment string `json:"treatment,omitempty" bson:"treatment,omitempty"`
	Doctor    string `json:"doctor,omitempty" bson:"doctor,omitempty"`
	BedNumber string `json:"bedNumber,omitempty" bson:"bedNumber,omitempty"`
}
