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

// Hospital exported for testing purposes
type Hospital struct {
	DB  databases.IncidentDatabase
	Hub *EventHub
}

type hospitalStatusRequest struct {
	Status    models.HospitalStatus `json:"status"`
	Condition string                `json:"condition,omitempty"`
	Treatment string                `json:"treatment,omitempty"`
	Doctor    string                `json:"doctor,omitempty"`
	BedNumber string                `json:"bedNumber,omitempty"`
	Version   *int32                `json:"version"`
}

// IncidentsHandler returns every incident that has entered the hospital
// workflow, partitioned into incoming, admitted and discharged.
func (h Hospital) IncidentsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleHospital); !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.Find(ctx, bson.M{"incident.hospitalStatus": bson.M{"$exists": true}})
	if err != nil {
		config.ErrorStatus("failed to get incidents", http.StatusNotFound, w, err)
		return
	}
	// the frontend requires an empty array not a null
	if dbResp == nil {
		dbResp = []models.Incident{}
	}

	respondJSON(w, http.StatusOK, models.GroupByHospitalStatus(dbResp), "")
}

// HospitalStatusHandler admits or discharges a patient. Admission requires
// the incident to be incoming, discharge requires it to be admitted.
func (h Hospital) HospitalStatusHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleHospital); !ok {
		return
	}

	var req hospitalStatusRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if !req.Status.Valid() {
		config.ErrorStatus("invalid hospital status", http.StatusBadRequest, w, errors.New(string(req.Status)))
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

	incident, err := h.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}

	current := incident.Details.HospitalStatus
	next, hasNext := current.Next()
	if current == "" || !hasNext || next != req.Status {
		config.ErrorStatus("illegal hospital status transition", http.StatusConflict, w,
			errors.New("current hospital status is "+string(current)))
		return
	}

	set := bson.M{
		"incident.hospitalStatus": req.Status,
		"incident.updatedAt":      primitive.NewDateTimeFromTime(time.Now()),
	}
	if req.Condition != "" {
		set["incident.patientStatus.condition"] = req.Condition
	}
	if req.Treatment != "" {
		set["incident.patientStatus.treatment"] = req.Treatment
	}
	if req.Doctor != "" {
		set["incident.patientStatus.doctor"] = req.Doctor
	}
	if req.BedNumber != "" {
		set["incident.patientStatus.bedNumber"] = req.BedNumber
	}
	if req.Status == models.HospitalAdmitted && incident.Details.AssignedTo != nil && incident.Details.AssignedTo.Hospital != "" {
		set["incident.patientStatus.hospital"] = incident.Details.AssignedTo.Hospital
	}

	res, err := h.DB.UpdateOne(ctx,
		bson.M{"_id": iID, "incident.hospitalStatus": current, "__v": *req.Version},
		bson.M{"$set": set, "$inc": bson.M{"__v": 1}},
	)
	if err != nil {
		config.ErrorStatus("failed to update hospital status", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("incident was modified by another actor", http.StatusConflict, w, errors.New("stale version"))
		return
	}

	respondWithIncident(ctx, w, h.DB, h.Hub, iID, "hospital-status:"+string(req.Status))
}
