package models

// IncidentStatus is the global lifecycle axis of an incident. Transitions
// are validated server-side; clients send the intended target status and
// accept whatever comes back as ground truth.
type IncidentStatus string

// Global incident lifecycle states.
const (
	IncidentPending    IncidentStatus = "pending"
	IncidentApproved   IncidentStatus = "approved"
	IncidentRejected   IncidentStatus = "rejected"
	IncidentAssigned   IncidentStatus = "assigned"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentCompleted  IncidentStatus = "completed"
	IncidentCancelled  IncidentStatus = "cancelled"
)

// NextStates returns the set of legal successor states. Rejected, completed
// and cancelled are terminal. Every non-terminal state may be cancelled.
func (s IncidentStatus) NextStates() []IncidentStatus {
	switch s {
	case IncidentPending:
		return []IncidentStatus{IncidentApproved, IncidentRejected, IncidentCancelled}
	case IncidentApproved:
		return []IncidentStatus{IncidentAssigned, IncidentCancelled}
	case IncidentAssigned:
		return []IncidentStatus{IncidentInProgress, IncidentCancelled}
	case IncidentInProgress:
		return []IncidentStatus{IncidentCompleted, IncidentCancelled}
	default:
		return nil
	}
}

// CanTransition reports whether moving from s to target is legal.
func (s IncidentStatus) CanTransition(target IncidentStatus) bool {
	for _, n := range s.NextStates() {
		if n == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s IncidentStatus) Terminal() bool {
	return len(s.NextStates()) == 0
}

// DriverStatus is the driver workflow axis. It is strictly sequential:
// assigned, arrived, transporting, delivered, completed. No skipping, no
// backward transition.
type DriverStatus string

// Driver workflow states, in order.
const (
	DriverAssigned     DriverStatus = "assigned"
	DriverArrived      DriverStatus = "arrived"
	DriverTransporting DriverStatus = "transporting"
	DriverDelivered    DriverStatus = "delivered"
	DriverCompleted    DriverStatus = "completed"
)

var driverSequence = []DriverStatus{
	DriverAssigned,
	DriverArrived,
	DriverTransporting,
	DriverDelivered,
	DriverCompleted,
}

// Next returns the single legal successor, or false when the workflow is
// finished or the value is unknown.
func (s DriverStatus) Next() (DriverStatus, bool) {
	for i, v := range driverSequence {
		if v == s && i+1 < len(driverSequence) {
			return driverSequence[i+1], true
		}
	}
	return "", false
}

// Valid reports whether s is a known driver workflow state.
func (s DriverStatus) Valid() bool {
	for _, v := range driverSequence {
		if v == s {
			return true
		}
	}
	return false
}

// HospitalStatus is the hospital workflow axis: incoming, admitted,
// discharged, strictly sequential.
type HospitalStatus string

// Hospital workflow states, in order.
const (
	HospitalIncoming   HospitalStatus = "incoming"
	HospitalAdmitted   HospitalStatus = "admitted"
	HospitalDischarged HospitalStatus = "discharged"
)

var hospitalSequence = []HospitalStatus{
	HospitalIncoming,
	HospitalAdmitted,
	HospitalDischarged,
}

// Next returns the single legal successor, or false when the workflow is
// finished or the value is unknown.
func (s HospitalStatus) Next() (HospitalStatus, bool) {
	for i, v := range hospitalSequence {
		if v == s && i+1 < len(hospitalSequence) {
			return hospitalSequence[i+1], true
		}
	}
	return "", false
}

// Valid reports whether s is a known hospital workflow state.
func (s HospitalStatus) Valid() bool {
	for _, v := range hospitalSequence {
		if v == s {
			return true
		}
	}
	return false
}

// Priority is the reporter-assigned urgency of an incident.
type Priority string

// Incident priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
