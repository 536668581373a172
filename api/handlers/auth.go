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
	"golang.org/x/crypto/bcrypt"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/config"
	"github.com/RoshiKK/emergency-response-api/databases"
	"github.com/RoshiKK/emergency-response-api/models"
)

// Auth handles session lifecycle: login, verify, logout, impersonation
type Auth struct {
	UDB    databases.UserDatabase
	SDB    databases.SessionDatabase
	Secret []byte
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler checks credentials and issues a fresh bearer token. Any
// previously issued token for the account is revoked: exactly one token
// is active per principal.
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, errors.New("missing credentials"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"user.email": email})
	if err != nil {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, errors.New("no matching account"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, errors.New("password mismatch"))
		return
	}

	// Restriction is a separate gate from status: a restricted account can
	// still read "active" and must be rejected here regardless.
	if user.Details.Restricted(time.Now()) {
		config.ErrorStatus("account is restricted", http.StatusForbidden, w,
			errors.New("restricted until "+user.Details.RestrictionEndDate.Time().Format(time.RFC3339)))
		return
	}
	if user.Details.Status != models.UserActive {
		config.ErrorStatus("account is not active", http.StatusForbidden, w, errors.New(string(user.Details.Status)))
		return
	}

	// revoke whatever token was active before this login
	a.revokeUserSessions(ctx, user.ID)

	token, err := a.issueSession(ctx, *user, nil)
	if err != nil {
		config.ErrorStatus("failed to create session", http.StatusInternalServerError, w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user.Sanitized(),
	}, "")
}

// VerifyHandler rechecks token validity and returns the refreshed
// identity. Reaching this handler at all means the middleware accepted
// the token.
func (a Auth) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	a.currentUser(w, r, "verified")
}

// MeHandler refetches the current identity (the impersonated identity
// when an overlay is active)
func (a Auth) MeHandler(w http.ResponseWriter, r *http.Request) {
	a.currentUser(w, r, "")
}

func (a Auth) currentUser(w http.ResponseWriter, r *http.Request, message string) {
	ident, ok := api.IdentityFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no identity in context"))
		return
	}

	userID, err := primitive.ObjectIDFromHex(ident.UserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.UDB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		User:          user.Sanitized(),
		Impersonating: ident.Impersonating(),
		Overlay:       ident.Overlay,
	}, message)
}

// LogoutHandler revokes the current session. Revocation failures are
// logged but never surfaced: logout always succeeds from the caller's
// point of view.
func (a Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromContext(r.Context())
	if ok {
		ctx, cancel := api.WithQueryTimeout(r.Context())
		defer cancel()
		if err := a.revokeSession(ctx, ident.TokenID); err != nil {
			zap.S().Warnw("failed to revoke session on logout", "error", err)
		}
		api.RevokeToken(r)
	}

	respondJSON(w, http.StatusOK, nil, "logged out")
}

// ImpersonateHandler lets a super-admin act as another account. The
// target must be active and of an impersonatable role. The calling
// session is revoked and a new one is issued for the target, carrying the
// original principal in its overlay. Repeated impersonation keeps the
// overlay captured at the first impersonation.
func (a Auth) ImpersonateHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromContext(r.Context())
	if !ok || ident.Role != models.RoleSuperAdmin {
		config.ErrorStatus("forbidden", http.StatusForbidden, w, errors.New("only super-admins may impersonate"))
		return
	}

	targetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["user_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	target, err := a.UDB.FindOne(ctx, bson.M{"_id": targetID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	if !target.Details.Role.Impersonatable() {
		config.ErrorStatus("forbidden", http.StatusForbidden, w,
			errors.New(string(target.Details.Role)+" accounts cannot be impersonated"))
		return
	}
	if target.Details.Status != models.UserActive {
		config.ErrorStatus("forbidden", http.StatusForbidden, w, errors.New("target account is not active"))
		return
	}

	overlay := ident.Overlay
	if overlay == nil {
		callerID, err := primitive.ObjectIDFromHex(ident.UserID)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		caller, err := a.UDB.FindOne(ctx, bson.M{"_id": callerID})
		if err != nil {
			config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
			return
		}
		overlay = &models.ImpersonationOverlay{
			UserID: caller.ID,
			Name:   caller.Details.Name,
			Email:  caller.Details.Email,
			Role:   caller.Details.Role,
		}
	}

	if err := a.revokeSession(ctx, ident.TokenID); err != nil {
		zap.S().Warnw("failed to revoke session on impersonate", "error", err)
	}
	api.RevokeToken(r)

	token, err := a.issueSession(ctx, *target, overlay)
	if err != nil {
		config.ErrorStatus("failed to create session", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("impersonation started",
		"by", overlay.UserID.Hex(),
		"target", target.ID.Hex(),
	)
	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token:         token,
		User:          target.Sanitized(),
		Impersonating: true,
		Overlay:       overlay,
	}, "")
}

// ReturnToAdminHandler reverts an impersonated session to the original
// principal. The impersonated session is revoked no matter what, so a
// failure can only leave the caller logged out, never half-impersonated.
func (a Auth) ReturnToAdminHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromContext(r.Context())
	if !ok || ident.Overlay == nil {
		config.ErrorStatus("no impersonation to return from", http.StatusBadRequest, w, errors.New("session has no overlay"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := a.revokeSession(ctx, ident.TokenID); err != nil {
		zap.S().Warnw("failed to revoke impersonated session", "error", err)
	}
	api.RevokeToken(r)

	original, err := a.UDB.FindOne(ctx, bson.M{"_id": ident.Overlay.UserID})
	if err != nil {
		config.ErrorStatus("original account no longer exists", http.StatusNotFound, w, err)
		return
	}
	if original.Details.Status != models.UserActive {
		config.ErrorStatus("original account is not active", http.StatusForbidden, w, errors.New(string(original.Details.Status)))
		return
	}

	token, err := a.issueSession(ctx, *original, nil)
	if err != nil {
		config.ErrorStatus("failed to create session", http.StatusInternalServerError, w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  original.Sanitized(),
	}, "")
}

// issueSession mints a token for the user and records the matching
// session document
func (a Auth) issueSession(ctx context.Context, user models.User, overlay *models.ImpersonationOverlay) (string, error) {
	token, jti, expiresAt, err := api.NewSessionToken(a.Secret, user.ID.Hex(), user.Details.Role)
	if err != nil {
		return "", err
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	_, err = a.SDB.InsertOne(ctx, models.Session{
		ID:        primitive.NewObjectID(),
		TokenID:   jti,
		UserID:    user.ID,
		Email:     user.Details.Email,
		Role:      user.Details.Role,
		Overlay:   overlay,
		CreatedAt: now,
		ExpiresAt: primitive.NewDateTimeFromTime(expiresAt),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (a Auth) revokeSession(ctx context.Context, tokenID string) error {
	now := primitive.NewDateTimeFromTime(time.Now())
	_, err := a.SDB.UpdateOne(ctx, bson.M{"tokenId": tokenID, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": now}})
	return err
}

func (a Auth) revokeUserSessions(ctx context.Context, userID primitive.ObjectID) {
	now := primitive.NewDateTimeFromTime(time.Now())
	if _, err := a.SDB.UpdateMany(ctx, bson.M{"userId": userID, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": now}}); err != nil {
		zap.S().Warnw("failed to revoke previous sessions", "error", err, "userId", userID.Hex())
	}
}
