package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/config"
	"github.com/RoshiKK/emergency-response-api/databases"
	"github.com/RoshiKK/emergency-response-api/models"
)

// Driver exported for testing purposes
type Driver struct {
	DB  databases.IncidentDatabase
	Hub *EventHub
}

type driverStatusRequest struct {
	Status   models.DriverStatus `json:"status"`
	Hospital string              `json:"hospital,omitempty"`
	Note     string              `json:"note,omitempty"`
	Version  *int32              `json:"version"`
}

// MyIncidentsHandler returns the calling driver's transport queue, split
// into active runs and completed runs.
func (d Driver) MyIncidentsHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireRole(w, r, models.RoleDriver)
	if !ok {
		return
	}

	driverID, err := primitive.ObjectIDFromHex(ident.UserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := d.DB.Find(ctx, bson.M{"incident.assignedTo.driverId": driverID})
	if err != nil {
		config.ErrorStatus("failed to get incidents", http.StatusNotFound, w, err)
		return
	}
	// the frontend requires an empty array not a null
	if dbResp == nil {
		dbResp = []models.Incident{}
	}

	respondJSON(w, http.StatusOK, models.GroupByDriverStatus(dbResp), "")
}

// DriverStatusHandler advances an incident one step through the transport
// sequence. Steps cannot be skipped and only the assigned driver may move
// the incident.
func (d Driver) DriverStatusHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireRole(w, r, models.RoleDriver)
	if !ok {
		return
	}

	var req driverStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if !req.Status.Valid() {
		config.ErrorStatus("invalid driver status", http.StatusBadRequest, w, errors.New(string(req.Status)))
		return
	}
	if req.Version == nil {
		config.ErrorStatus("version is required", http.StatusBadRequest, w, errors.New("missing version"))
		return
	}

	incidentID := mux.Vars(r)["incident_id"]
	iID, err := primitive.ObjectIDFromHex(incidentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	incident, err := d.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}

	assigned := incident.Details.AssignedTo
	if assigned == nil || assigned.DriverID == nil || assigned.DriverID.Hex() != ident.UserID {
		config.ErrorStatus("incident is not assigned to you", http.StatusForbidden, w, errors.New("driver mismatch"))
		return
	}

	current := incident.Details.DriverStatus
	next, hasNext := current.Next()
	if !hasNext || next != req.Status {
		config.ErrorStatus("driver status steps cannot be skipped", http.StatusConflict, w,
			errors.New("current driver status is "+string(current)))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	set := bson.M{
		"incident.driverStatus": req.Status,
		"incident.updatedAt":    now,
	}
	switch req.Status {
	case models.DriverArrived:
		// the first movement on scene flips the incident into the
		// active phase
		set["incident.status"] = models.IncidentInProgress
	case models.DriverTransporting:
		set["incident.hospitalStatus"] = models.HospitalIncoming
		if req.Hospital != "" {
			set["incident.assignedTo.hospital"] = req.Hospital
		}
	case models.DriverCompleted:
		set["incident.status"] = models.IncidentCompleted
	}

	update := bson.M{"$set": set, "$inc": bson.M{"__v": 1}}
	if req.Note != "" {
		update["$push"] = bson.M{"incident.notes": models.IncidentNote{
			Note:      req.Note,
			CreatedBy: ident.UserID,
			CreatedAt: now,
		}}
	}

	res, err := d.DB.UpdateOne(ctx,
		bson.M{"_id": iID, "incident.driverStatus": current, "__v": *req.Version},
		update,
	)
	if err != nil {
		config.ErrorStatus("failed to update driver status", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("incident was modified by another actor", http.StatusConflict, w, errors.New("stale version"))
		return
	}

	respondWithIncident(ctx, w, d.DB, d.Hub, iID, "driver-status:"+string(req.Status))
}
