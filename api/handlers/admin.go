package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/config"
	"github.com/RoshiKK/emergency-response-api/databases"
	"github.com/RoshiKK/emergency-response-api/models"
)

// Admin exported for testing purposes
type Admin struct {
	IDB databases.IncidentDatabase
	UDB databases.UserDatabase
}

type bulkActionRequest struct {
	Action      string   `json:"action"`
	IncidentIDs []string `json:"incidentIds"`
	Department  string   `json:"department,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// DashboardHandler aggregates the platform-wide counters shown on the
// admin landing page.
func (a Admin) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	incidents, err := a.IDB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get incidents", http.StatusInternalServerError, w, err)
		return
	}

	// the driver and hospital axes only exist once an incident enters the
	// respective workflow, so group over those subsets
	var transports, stays []models.Incident
	for _, inc := range incidents {
		if inc.Details.DriverStatus != "" {
			transports = append(transports, inc)
		}
		if inc.Details.HospitalStatus != "" {
			stays = append(stays, inc)
		}
	}

	decision := models.GroupByDecision(incidents)
	driver := models.GroupByDriverStatus(transports)
	hospital := models.GroupByHospitalStatus(stays)

	stats := models.DashboardStats{
		TotalIncidents:     int64(len(incidents)),
		PendingIncidents:   int64(len(decision.Pending)),
		ProcessedIncidents: int64(len(decision.Processed)),
		ActiveTransports:   int64(len(driver.Active)),
		CompletedRuns:      int64(len(driver.Completed)),
		IncomingPatients:   int64(len(hospital.Incoming)),
		AdmittedPatients:   int64(len(hospital.Admitted)),
		DischargedPatients: int64(len(hospital.Discharged)),
		UsersByRole:        map[models.Role]int64{},
	}

	for _, role := range []models.Role{
		models.RoleAdmin,
		models.RoleDepartment,
		models.RoleDriver,
		models.RoleHospital,
		models.RoleCitizen,
	} {
		count, err := a.UDB.CountDocuments(ctx, bson.M{"user.role": role})
		if err != nil {
			config.ErrorStatus("failed to count users", http.StatusInternalServerError, w, err)
			return
		}
		stats.UsersByRole[role] = count
	}

	respondJSON(w, http.StatusOK, stats, "")
}

// IncidentsHandler lists incidents for the admin console, optionally
// filtered by status and paginated with limit/page query params.
func (a Admin) IncidentsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["incident.status"] = models.IncidentStatus(status)
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := a.IDB.FindPaginated(ctx, filter, limit, page)
	if err != nil {
		config.ErrorStatus("failed to get incidents", http.StatusNotFound, w, err)
		return
	}
	// the frontend requires an empty array not a null
	if dbResp == nil {
		dbResp = []models.Incident{}
	}

	respondJSON(w, http.StatusOK, dbResp, "")
}

// BulkActionsHandler approves or rejects a batch of pending incidents in
// one shot. The batch is all-or-nothing: if any id is missing or no
// longer pending, nothing is written.
func (a Admin) BulkActionsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	var req bulkActionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if len(req.IncidentIDs) == 0 {
		config.ErrorStatus("incidentIds is required", http.StatusBadRequest, w, errors.New("empty batch"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	set := bson.M{"incident.updatedAt": now}
	switch req.Action {
	case "approve":
		if req.Department == "" {
			config.ErrorStatus("department is required", http.StatusBadRequest, w, errors.New("missing department"))
			return
		}
		set["incident.status"] = models.IncidentApproved
		set["incident.assignedTo"] = models.Assignment{Department: req.Department, AssignedAt: now}
	case "reject":
		if req.Reason == "" {
			config.ErrorStatus("reason is required", http.StatusBadRequest, w, errors.New("missing reason"))
			return
		}
		set["incident.status"] = models.IncidentRejected
		set["incident.rejectionReason"] = req.Reason
	default:
		config.ErrorStatus("unknown bulk action", http.StatusBadRequest, w, errors.New(req.Action))
		return
	}

	ids := make([]primitive.ObjectID, 0, len(req.IncidentIDs))
	for _, raw := range req.IncidentIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		ids = append(ids, id)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"_id": bson.M{"$in": ids}, "incident.status": models.IncidentPending}

	// every id must still be pending or the whole batch is refused
	count, err := a.IDB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count incidents", http.StatusInternalServerError, w, err)
		return
	}
	if count != int64(len(ids)) {
		config.ErrorStatus("one or more incidents are no longer pending", http.StatusConflict, w,
			errors.New("batch precondition failed"))
		return
	}

	res, err := a.IDB.UpdateMany(ctx, filter, bson.M{"$set": set, "$inc": bson.M{"__v": 1}})
	if err != nil {
		config.ErrorStatus("failed to update incidents", http.StatusInternalServerError, w, err)
		return
	}

	respondJSON(w, http.StatusOK, bson.M{"modifiedCount": res.ModifiedCount}, "bulk "+req.Action+" applied")
}
