package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/api/handlers"
	"github.com/RoshiKK/emergency-response-api/databases/mocks"
	"github.com/RoshiKK/emergency-response-api/models"
)

func hospitalIdentity() api.Identity {
	return api.Identity{
		UserID:  primitive.NewObjectID().Hex(),
		Email:   "hospital@example.com",
		Role:    models.RoleHospital,
		TokenID: "jti-hospital",
	}
}

func hospitalIncident(id primitive.ObjectID, status models.HospitalStatus, version int32) *models.Incident {
	return &models.Incident{
		ID:      id,
		Version: version,
		Details: models.IncidentDetails{
			Description:    "road accident",
			Priority:       models.PriorityUrgent,
			Status:         models.IncidentInProgress,
			DriverStatus:   models.DriverDelivered,
			HospitalStatus: status,
			AssignedTo: &models.Assignment{
				Department: "Rescue 1122",
				Hospital:   "Jinnah Hospital",
			},
		},
	}
}

func TestHospital_IncidentsHandlerRequiresHospitalRole(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Hospital{DB: db}

	req := authedRequest(t, "GET", "/api/incidents/hospital/incidents", "", adminIdentity(), nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.IncidentsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	db.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}

func TestHospital_IncidentsHandlerGroupsByStay(t *testing.T) {
	queue := []models.Incident{
		*hospitalIncident(primitive.NewObjectID(), models.HospitalIncoming, 3),
		*hospitalIncident(primitive.NewObjectID(), models.HospitalAdmitted, 4),
		*hospitalIncident(primitive.NewObjectID(), models.HospitalDischarged, 6),
	}

	db := mocks.NewIncidentDatabase(t)
	db.On("Find", mock.Anything, mock.Anything).Return(queue, nil)

	h := handlers.Hospital{DB: db}

	req := authedRequest(t, "GET", "/api/incidents/hospital/incidents", "", hospitalIdentity(), nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.IncidentsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"incoming"`)
	assert.Contains(t, rr.Body.String(), `"admitted"`)
	assert.Contains(t, rr.Body.String(), `"discharged"`)
}

func TestHospital_HospitalStatusHandlerAdmitRequiresIncoming(t *testing.T) {
	id := primitive.NewObjectID()

	db := mocks.NewIncidentDatabase(t)
	// already admitted: admitting again is not a legal step
	db.On("FindOne", mock.Anything, mock.Anything).Return(hospitalIncident(id, models.HospitalAdmitted, 4), nil)

	h := handlers.Hospital{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/hospital-status",
		`{"status": "admitted", "version": 4}`,
		hospitalIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.HospitalStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestHospital_HospitalStatusHandlerDischargeRequiresAdmitted(t *testing.T) {
	id := primitive.NewObjectID()

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(hospitalIncident(id, models.HospitalIncoming, 3), nil)

	h := handlers.Hospital{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/hospital-status",
		`{"status": "discharged", "version": 3}`,
		hospitalIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.HospitalStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestHospital_HospitalStatusHandlerAdmitRecordsPatientDetails(t *testing.T) {
	id := primitive.NewObjectID()

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(hospitalIncident(id, models.HospitalIncoming, 3), nil).Once()

	var capturedUpdate bson.M
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		capturedUpdate = args.Get(2).(bson.M)
	}).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	admitted := hospitalIncident(id, models.HospitalAdmitted, 4)
	db.On("FindOne", mock.Anything, mock.Anything).Return(admitted, nil).Once()

	h := handlers.Hospital{DB: db}

	body := `{"status": "admitted", "condition": "stable", "treatment": "fracture care", "doctor": "Dr. Khan", "bedNumber": "B-12", "version": 3}`
	req := authedRequest(t, "PUT", "/api/incidents/x/hospital-status", body,
		hospitalIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.HospitalStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	set := capturedUpdate["$set"].(bson.M)
	assert.Equal(t, models.HospitalAdmitted, set["incident.hospitalStatus"])
	assert.Equal(t, "stable", set["incident.patientStatus.condition"])
	assert.Equal(t, "Dr. Khan", set["incident.patientStatus.doctor"])
	assert.Equal(t, "B-12", set["incident.patientStatus.bedNumber"])
	assert.Equal(t, "Jinnah Hospital", set["incident.patientStatus.hospital"])
}

func TestHospital_HospitalStatusHandlerStaleVersionConflicts(t *testing.T) {
	id := primitive.NewObjectID()

	db := mocks.NewIncidentDatabase(t)
	db.On("FindOne", mock.Anything, mock.Anything).Return(hospitalIncident(id, models.HospitalIncoming, 9), nil)
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	h := handlers.Hospital{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/hospital-status",
		`{"status": "admitted", "version": 8}`,
		hospitalIdentity(), map[string]string{"incident_id": id.Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.HospitalStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHospital_HospitalStatusHandlerRejectsUnknownStatus(t *testing.T) {
	db := mocks.NewIncidentDatabase(t)
	h := handlers.Hospital{DB: db}

	req := authedRequest(t, "PUT", "/api/incidents/x/hospital-status",
		`{"status": "released", "version": 1}`,
		hospitalIdentity(), map[string]string{"incident_id": primitive.NewObjectID().Hex()})
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.HospitalStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
}
