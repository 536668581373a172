package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/api/handlers"
	"github.com/RoshiKK/emergency-response-api/databases/mocks"
	"github.com/RoshiKK/emergency-response-api/models"
)

func authedRequest(t *testing.T, method, url, body string, ident api.Identity, vars map[string]string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req.WithContext(api.WithIdentity(req.Context(), ident))
}

func adminIdentity() api.Identity {
	return api.Identity{
		UserID:  primitive.NewObjectID().Hex(),
		Email:   "admin@example.com",
		Role:    models.RoleAdmin,
		TokenID: "jti-admin",
	}
}

func pendingIncident(id primitive.ObjectID, version int32) *models.Incident {
	return &models.Incident{
		ID:      id,
		Version: version,
		Details: models.IncidentDetails{
			Description: "house fire",
			Priority:    models.PriorityHigh,
			Status:      models.IncidentPending,
		},
	}
}

func TestIncident_CreateIncidentHandlerRequiresIdentity(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Incident{DB: db}

	req, _ := http.NewRequest("POST", "/api/incidents", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.CreateIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestIncident_CreateIncidentHandlerValidatesBeforeWriting(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Incident{DB: db}

	tests := []struct {
		name string
		body string
	}{
		{"missing description", `{"priority": "high"}`},
		{"invalid priority", `{"description": "x", "priority": "catastrophic"}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(t, "POST", "/api/incidents", tt.body, adminIdentity(), nil)
			rr := httptest.NewRecorder()
			http.HandlerFunc(h.CreateIncidentHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestIncident_CreateIncidentHandlerForcesPendingState(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)

	var inserted models.Incident
	db.On("InsertOne", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(models.Incident)
	}).Return(nil, nil)

	h := handlers.Incident{DB: db}

	// the client tries to smuggle in an already-approved state
	body := `{"description": "house fire", "priority": "high", "status": "approved", "driverStatus": "arrived"}`
	req := authedRequest(t, "POST", "/api/incidents", body, adminIdentity(), nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.CreateIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, models.IncidentPending, inserted.Details.Status)
	assert.Empty(t, inserted.Details.DriverStatus)
	assert.Empty(t, inserted.Details.HospitalStatus)
	assert.Nil(t, inserted.Details.AssignedTo)
	assert.Equal(t, int32(0), inserted.Version)
}

func TestIncident_ApproveIncidentHandlerRejectsNonAdmin(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Incident{DB: db}

	ident := adminIdentity()
	ident.Role = models.RoleDriver

	req := authedRequest(t, "PUT", "/api/incidents/x/approve", `{"department": "Rescue 1122", "version": 0}`,
		ident, map[string]string{"incident_id": primitive.NewObjectID().Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	db.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
}

func TestIncident_ApproveIncidentHandlerRequiresDepartment(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/approve", `{"department": "  ", "version": 0}`,
		adminIdentity(), map[string]string{"incident_id": primitive.NewObjectID().Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestIncident_ApproveIncidentHandlerRequiresVersion(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/approve", `{"department": "Rescue 1122"}`,
		adminIdentity(), map[string]string{"incident_id": primitive.NewObjectID().Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIncident_ApproveIncidentHandlerRejectsNonPending(t *testing.T) {
	id := primitive.NewObjectID()
	already := pendingIncident(id, 1)
	already.Details.Status = models.IncidentApproved

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(already, nil)

	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/approve", `{"department": "Rescue 1122", "version": 1}`,
		adminIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestIncident_ApproveIncidentHandlerStaleVersionConflicts(t *testing.T) {
	id := primitive.NewObjectID()

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(pendingIncident(id, 3), nil)
	// the guarded write matches nothing: someone else already bumped __v
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/approve", `{"department": "Rescue 1122", "version": 2}`,
		adminIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "modified by another actor")
}

func TestIncident_ApproveIncidentHandlerHappyPath(t *testing.T) {
	id := primitive.NewObjectID()
	approved := pendingIncident(id, 1)
	approved.Details.Status = models.IncidentApproved

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(pendingIncident(id, 0), nil).Once()
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	db.On("FindOne", mock.Anything, mock.Anything).Return(approved, nil).Once()

	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/approve", `{"department": "Rescue 1122", "version": 0}`,
		adminIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"approved"`)
}

func TestIncident_RejectIncidentHandlerRequiresReason(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/reject", `{"version": 0}`,
		adminIdentity(), map[string]string{"incident_id": primitive.NewObjectID().Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.RejectIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestIncident_AssignDriverHandlerRejectsPendingIncident(t *testing.T) {
	id := primitive.NewObjectID()

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(pendingIncident(id, 0), nil)

	h := handlers.Incident{DB: db}

	body := `{"driverId": "` + primitive.NewObjectID().Hex() + `", "version": 0}`
	req := authedRequest(t, "PUT", "/api/incidents/x/assign", body,
		adminIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.AssignDriverHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestIncident_CancelIncidentHandlerRejectsTerminalState(t *testing.T) {
	id := primitive.NewObjectID()
	done := pendingIncident(id, 5)
	done.Details.Status = models.IncidentCompleted

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(done, nil)

	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/cancel", `{"reason": "duplicate", "version": 5}`,
		adminIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.CancelIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestIncident_CancelIncidentHandlerCancelsInProgress(t *testing.T) {
	id := primitive.NewObjectID()
	active := pendingIncident(id, 4)
	active.Details.Status = models.IncidentInProgress
	cancelled := pendingIncident(id, 5)
	cancelled.Details.Status = models.IncidentCancelled

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(active, nil).Once()
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	db.On("FindOne", mock.Anything, mock.Anything).Return(cancelled, nil).Once()

	h := handlers.Incident{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/cancel", `{"reason": "false alarm", "version": 4}`,
		adminIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.CancelIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"cancelled"`)
}

func TestIncident_IncidentByIDHandlerBadHex(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Incident{DB: db}

	req := authedRequest(t, "GET", "/api/incidents/1234", "", adminIdentity(),
		map[string]string{"incident_id": "1234"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.IncidentByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to get objectID from Hex")
}
