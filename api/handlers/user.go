package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/config"
	"github.com/RoshiKK/emergency-response-api/databases"
	"github.com/RoshiKK/emergency-response-api/models"
)

// User exported for testing purposes
type User struct {
	DB     databases.UserDatabase
	Mailer *Mailer
}

type restrictRequest struct {
	Days   int    `json:"days"`
	Reason string `json:"reason"`
}

type updateUserRequest struct {
	Name   *string            `json:"name,omitempty"`
	Phone  *string            `json:"phone,omitempty"`
	CNIC   *string            `json:"cnic,omitempty"`
	Status *models.UserStatus `json:"status,omitempty"`
}

// UsersHandler lists accounts, optionally filtered by role
func (u User) UsersHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	filter := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["user.role"] = models.Role(role)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusNotFound, w, err)
		return
	}
	// the frontend requires an empty array not a null
	if dbResp == nil {
		dbResp = []models.User{}
	}
	for i := range dbResp {
		dbResp[i] = dbResp[i].Sanitized()
	}

	respondJSON(w, http.StatusOK, dbResp, "")
}

// CreateUserHandler registers a new account. Validation runs before any
// database call; a duplicate email is refused with a conflict.
func (u User) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	var details models.UserDetails
	if err := decodeJSONBody(r, &details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	details.Email = strings.ToLower(strings.TrimSpace(details.Email))
	if details.Name == "" || details.Email == "" || details.Password == "" {
		config.ErrorStatus("name, email and password are required", http.StatusBadRequest, w, errors.New("missing fields"))
		return
	}
	if !details.Role.Valid() {
		config.ErrorStatus("invalid role", http.StatusBadRequest, w, errors.New(string(details.Role)))
		return
	}
	if err := details.ValidateProfile(); err != nil {
		config.ErrorStatus(err.Error(), http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := u.DB.CountDocuments(ctx, bson.M{"user.email": details.Email})
	if err != nil {
		config.ErrorStatus("failed to count users", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("an account with this email already exists", http.StatusConflict, w, errors.New(details.Email))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(details.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	details.Password = string(hash)
	if details.Status == "" {
		details.Status = models.UserActive
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	details.CreatedAt = now
	details.UpdatedAt = now

	res, err := u.DB.InsertOne(ctx, details)
	if err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	details.Password = ""
	respondJSON(w, http.StatusCreated, bson.M{"_id": res.Decode(), "user": details}, "user created")
}

// UserByIDHandler returns a single account by its ID
func (u User) UserByIDHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	respondJSON(w, http.StatusOK, dbResp.Sanitized(), "")
}

// UpdateUserHandler applies a partial update. Only the fields present in
// the body are written.
func (u User) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{"user.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Name != nil {
		set["user.name"] = *req.Name
	}
	if req.Phone != nil {
		set["user.phone"] = *req.Phone
	}
	if req.CNIC != nil {
		set["user.cnic"] = *req.CNIC
	}
	if req.Status != nil {
		switch *req.Status {
		case models.UserActive, models.UserInactive, models.UserSuspended:
		default:
			config.ErrorStatus("invalid status", http.StatusBadRequest, w, errors.New(string(*req.Status)))
			return
		}
		set["user.status"] = *req.Status
	}
	if len(set) == 1 {
		config.ErrorStatus("no updatable fields supplied", http.StatusBadRequest, w, errors.New("empty update"))
		return
	}

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{"$set": set, "$inc": bson.M{"__v": 1}})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, errors.New(userID))
		return
	}

	updated, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated.Sanitized(), "user updated")
}

// DeleteUserHandler removes an account permanently
func (u User) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleSuperAdmin); !ok {
		return
	}

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deleted, err := u.DB.DeleteOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, errors.New(userID))
		return
	}

	respondJSON(w, http.StatusOK, nil, "user deleted")
}

// RestrictUserHandler places a timed login restriction on an account. The
// account status is left untouched: restriction is its own axis and is
// enforced at login time.
func (u User) RestrictUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}

	var req restrictRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Days <= 0 {
		config.ErrorStatus("days must be positive", http.StatusBadRequest, w, errors.New("non-positive restriction length"))
		return
	}
	if req.Reason == "" {
		config.ErrorStatus("reason is required", http.StatusBadRequest, w, errors.New("missing reason"))
		return
	}

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	until := time.Now().AddDate(0, 0, req.Days)
	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{
		"$set": bson.M{
			"user.restrictionEndDate": primitive.NewDateTimeFromTime(until),
			"user.restrictionReason":  req.Reason,
			"user.updatedAt":          primitive.NewDateTimeFromTime(time.Now()),
		},
		"$inc": bson.M{"__v": 1},
	})
	if err != nil {
		config.ErrorStatus("failed to restrict user", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, errors.New(userID))
		return
	}

	restricted, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	u.Mailer.SendRestrictionNotice(
		restricted.Details.Name,
		restricted.Details.Email,
		req.Reason,
		until.Format(time.RFC1123),
	)

	respondJSON(w, http.StatusOK, restricted.Sanitized(), "user restricted")
}
