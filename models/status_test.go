package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RoshiKK/emergency-response-api/models"
)

func TestIncidentStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name   string
		from   models.IncidentStatus
		to     models.IncidentStatus
		wantOK bool
	}{
		{"pending to approved", models.IncidentPending, models.IncidentApproved, true},
		{"pending to rejected", models.IncidentPending, models.IncidentRejected, true},
		{"pending to cancelled", models.IncidentPending, models.IncidentCancelled, true},
		{"pending cannot skip to assigned", models.IncidentPending, models.IncidentAssigned, false},
		{"pending cannot skip to completed", models.IncidentPending, models.IncidentCompleted, false},
		{"approved to assigned", models.IncidentApproved, models.IncidentAssigned, true},
		{"approved to cancelled", models.IncidentApproved, models.IncidentCancelled, true},
		{"approved cannot return to pending", models.IncidentApproved, models.IncidentPending, false},
		{"assigned to in_progress", models.IncidentAssigned, models.IncidentInProgress, true},
		{"in_progress to completed", models.IncidentInProgress, models.IncidentCompleted, true},
		{"rejected is terminal", models.IncidentRejected, models.IncidentCancelled, false},
		{"completed is terminal", models.IncidentCompleted, models.IncidentCancelled, false},
		{"cancelled is terminal", models.IncidentCancelled, models.IncidentPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOK, tt.from.CanTransition(tt.to))
		})
	}
}

func TestIncidentStatus_EveryNonTerminalStateCanCancel(t *testing.T) {
	for _, s := range []models.IncidentStatus{
		models.IncidentPending,
		models.IncidentApproved,
		models.IncidentAssigned,
		models.IncidentInProgress,
	} {
		assert.True(t, s.CanTransition(models.IncidentCancelled), "state %s should allow cancel", s)
	}
}

func TestIncidentStatus_Terminal(t *testing.T) {
	assert.True(t, models.IncidentRejected.Terminal())
	assert.True(t, models.IncidentCompleted.Terminal())
	assert.True(t, models.IncidentCancelled.Terminal())
	assert.False(t, models.IncidentPending.Terminal())
	assert.False(t, models.IncidentInProgress.Terminal())
}

func TestDriverStatus_NextIsStrictlySequential(t *testing.T) {
	order := []models.DriverStatus{
		models.DriverAssigned,
		models.DriverArrived,
		models.DriverTransporting,
		models.DriverDelivered,
		models.DriverCompleted,
	}
	for i := 0; i < len(order)-1; i++ {
		next, ok := order[i].Next()
		assert.True(t, ok)
		assert.Equal(t, order[i+1], next)
	}

	_, ok := models.DriverCompleted.Next()
	assert.False(t, ok, "completed has no successor")

	_, ok = models.DriverStatus("bogus").Next()
	assert.False(t, ok, "unknown status has no successor")
}

func TestDriverStatus_Valid(t *testing.T) {
	assert.True(t, models.DriverTransporting.Valid())
	assert.False(t, models.DriverStatus("en_route").Valid())
	assert.False(t, models.DriverStatus("").Valid())
}

func TestHospitalStatus_Next(t *testing.T) {
	next, ok := models.HospitalIncoming.Next()
	assert.True(t, ok)
	assert.Equal(t, models.HospitalAdmitted, next)

	next, ok = models.HospitalAdmitted.Next()
	assert.True(t, ok)
	assert.Equal(t, models.HospitalDischarged, next)

	_, ok = models.HospitalDischarged.Next()
	assert.False(t, ok)
}

func TestPriority_Valid(t *testing.T) {
	assert.True(t, models.PriorityUrgent.Valid())
	assert.True(t, models.PriorityLow.Valid())
	assert.False(t, models.Priority("critical").Valid())
	assert.False(t, models.Priority("").Valid())
}
