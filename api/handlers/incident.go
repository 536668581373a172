package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/config"
	"github.com/RoshiKK/emergency-response-api/databases"
	"github.com/RoshiKK/emergency-response-api/models"
)

// Incident exported for testing purposes
type Incident struct {
	DB  databases.IncidentDatabase
	Hub *EventHub
}

type approveRequest struct {
	Department string `json:"department"`
	Version    *int32 `json:"version"`
}

type rejectRequest struct {
	Reason  string `json:"reason"`
	Version *int32 `json:"version"`
}

type assignRequest struct {
	DriverID string `json:"driverId"`
	Version  *int32 `json:"version"`
}

type cancelRequest struct {
	Reason  string `json:"reason"`
	Version *int32 `json:"version"`
}

// CreateIncidentHandler records a newly reported incident in the pending
// state
func (i Incident) CreateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no identity in context"))
		return
	}

	var details models.IncidentDetails
	if err := decodeJSONBody(r, &details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if strings.TrimSpace(details.Description) == "" {
		config.ErrorStatus("description is required", http.StatusBadRequest, w, errors.New("missing description"))
		return
	}
	if !details.Priority.Valid() {
		config.ErrorStatus("invalid priority", http.StatusBadRequest, w, errors.New(string(details.Priority)))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	details.Status = models.IncidentPending
	details.DriverStatus = ""
	details.HospitalStatus = ""
	details.AssignedTo = nil
	details.PatientStatus = nil
	details.Reporter.UserID = ident.UserID
	details.CreatedAt = now
	details.UpdatedAt = now

	newIncident := models.Incident{
		ID:      primitive.NewObjectID(),
		Details: details,
		Version: 0,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := i.DB.InsertOne(ctx, newIncident); err != nil {
		config.ErrorStatus("failed to create incident", http.StatusInternalServerError, w, err)
		return
	}

	i.Hub.BroadcastIncident("reported", newIncident)
	respondJSON(w, http.StatusCreated, newIncident, "incident reported successfully")
}

// IncidentByIDHandler returns an incident by ID
func (i Incident) IncidentByIDHandler(w http.ResponseWriter, r *http.Request) {
	incidentID := mux.Vars(r)["incident_id"]

	zap.S().Debugf("incident_id: %v", incidentID)

	iID, err := primitive.ObjectIDFromHex(incidentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}

	respondJSON(w, http.StatusOK, dbResp, "")
}

// ApproveIncidentHandler applies the admin approve decision. Only pending
// incidents may be approved, the department is mandatory, and the write
// is rejected when the caller's version is stale.
func (i Incident) ApproveIncidentHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	var req approveRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Department) == "" {
		config.ErrorStatus("department is required", http.StatusBadRequest, w, errors.New("missing department"))
		return
	}
	if req.Version == nil {
		config.ErrorStatus("version is required", http.StatusBadRequest, w, errors.New("missing version"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	i.decide(w, r, *req.Version, models.IncidentApproved, bson.M{
		"incident.status": models.IncidentApproved,
		"incident.assignedTo": models.Assignment{
			Department: strings.TrimSpace(req.Department),
			AssignedAt: now,
		},
		"incident.updatedAt": now,
	})
}

// RejectIncidentHandler applies the admin reject decision. Only pending
// incidents may be rejected and the reason is mandatory.
func (i Incident) RejectIncidentHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	var req rejectRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		config.ErrorStatus("reason is required", http.StatusBadRequest, w, errors.New("missing reason"))
		return
	}
	if req.Version == nil {
		config.ErrorStatus("version is required", http.StatusBadRequest, w, errors.New("missing version"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	i.decide(w, r, *req.Version, models.IncidentRejected, bson.M{
		"incident.status":          models.IncidentRejected,
		"incident.rejectionReason": strings.TrimSpace(req.Reason),
		"incident.updatedAt":       now,
	})
}

// decide runs the shared pending-only, version-guarded decision write
func (i Incident) decide(w http.ResponseWriter, r *http.Request, version int32, target models.IncidentStatus, set bson.M) {
	iID, err := primitive.ObjectIDFromHex(mux.Vars(r)["incident_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	current, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}
	if !current.Details.Status.CanTransition(target) {
		config.ErrorStatus("only pending incidents can be "+string(target), http.StatusConflict, w,
			errors.New("current status is "+string(current.Details.Status)))
		return
	}

	res, err := i.DB.UpdateOne(ctx,
		bson.M{"_id": iID, "incident.status": models.IncidentPending, "__v": version},
		bson.M{"$set": set, "$inc": bson.M{"__v": 1}})
	if err != nil {
		config.ErrorStatus("failed to update incident", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("incident was modified by another actor", http.StatusConflict, w, errors.New("stale version"))
		return
	}

	respondWithIncident(ctx, w, i.DB, i.Hub, iID, string(target))
}

// AssignDriverHandler attaches a driver to an approved incident and moves
// it to the assigned state, starting the driver workflow
func (i Incident) AssignDriverHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin, models.RoleDepartment); !ok {
		return
	}

	var req assignRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Version == nil {
		config.ErrorStatus("version is required", http.StatusBadRequest, w, errors.New("missing version"))
		return
	}
	driverID, err := primitive.ObjectIDFromHex(req.DriverID)
	if err != nil {
		config.ErrorStatus("a valid driverId is required", http.StatusBadRequest, w, err)
		return
	}

	iID, err := primitive.ObjectIDFromHex(mux.Vars(r)["incident_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	current, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}
	if !current.Details.Status.CanTransition(models.IncidentAssigned) {
		config.ErrorStatus("only approved incidents can be assigned", http.StatusConflict, w,
			errors.New("current status is "+string(current.Details.Status)))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := i.DB.UpdateOne(ctx,
		bson.M{"_id": iID, "incident.status": models.IncidentApproved, "__v": *req.Version},
		bson.M{"$set": bson.M{
			"incident.status":                models.IncidentAssigned,
			"incident.driverStatus":          models.DriverAssigned,
			"incident.assignedTo.driverId":   driverID,
			"incident.assignedTo.assignedAt": now,
			"incident.updatedAt":             now,
		}, "$inc": bson.M{"__v": 1}})
	if err != nil {
		config.ErrorStatus("failed to update incident", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("incident was modified by another actor", http.StatusConflict, w, errors.New("stale version"))
		return
	}

	respondWithIncident(ctx, w, i.DB, i.Hub, iID, "assigned")
}

// CancelIncidentHandler cancels an incident from any non-terminal state
func (i Incident) CancelIncidentHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	var req cancelRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Version == nil {
		config.ErrorStatus("version is required", http.StatusBadRequest, w, errors.New("missing version"))
		return
	}

	iID, err := primitive.ObjectIDFromHex(mux.Vars(r)["incident_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	current, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}
	if !current.Details.Status.CanTransition(models.IncidentCancelled) {
		config.ErrorStatus("incident can no longer be cancelled", http.StatusConflict, w,
			errors.New("current status is "+string(current.Details.Status)))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := i.DB.UpdateOne(ctx,
		bson.M{"_id": iID, "incident.status": current.Details.Status, "__v": *req.Version},
		bson.M{"$set": bson.M{
			"incident.status":       models.IncidentCancelled,
			"incident.cancelReason": strings.TrimSpace(req.Reason),
			"incident.updatedAt":    now,
		}, "$inc": bson.M{"__v": 1}})
	if err != nil {
		config.ErrorStatus("failed to update incident", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("incident was modified by another actor", http.StatusConflict, w, errors.New("stale version"))
		return
	}

	respondWithIncident(ctx, w, i.DB, i.Hub, iID, "cancelled")
}

// respondWithIncident refetches the authoritative document, broadcasts it
// to connected dashboards and writes the response
func respondWithIncident(ctx context.Context, w http.ResponseWriter, db databases.IncidentDatabase, hub *EventHub, id primitive.ObjectID, action string) {
	updated, err := db.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}
	hub.BroadcastIncident(action, *updated)
	respondJSON(w, http.StatusOK, updated, "incident "+action)
}
