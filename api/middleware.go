package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/RoshiKK/emergency-response-api/databases"
	"github.com/RoshiKK/emergency-response-api/models"
)

// MiddlewareDB is a struct that holds the databases the auth middleware needs
type MiddlewareDB struct {
	Sessions  databases.SessionDatabase
	JWTSecret []byte
}

var authenticator auth.Authenticator
var cache store.Cache

// Middleware authenticates the bearer token and attaches the resolved
// identity to the request context. Any invalid, revoked or expired token
// gets a 401 regardless of which route was called.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success": false, "message": "unauthorized"}`))
			return
		}
		ident, err := identityFromInfo(user)
		if err != nil {
			zap.S().Errorw("malformed auth info", "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success": false, "message": "unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// SetupGoGuardian sets up the go-guardian middleware. The FIFO cache TTL
// is kept short so a revocation in the sessions collection takes effect
// within a minute even for cached tokens.
func (m MiddlewareDB) SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), time.Minute)
	tokenStrategy := bearer.New(m.AuthenticateToken, cache)

	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// AuthenticateToken validates a signed bearer token against the session
// store. The token must parse, verify and map to a session that is neither
// revoked nor expired.
func (m MiddlewareDB) AuthenticateToken(ctx context.Context, r *http.Request, tokenString string) (auth.Info, error) {
	claims, err := ParseSessionToken(tokenString, m.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	session, err := m.Sessions.FindOne(ctx, bson.M{
		"tokenId":   claims.ID,
		"revokedAt": nil,
		"expiresAt": bson.M{"$gt": primitive.NewDateTimeFromTime(time.Now())},
	})
	if err != nil {
		return nil, fmt.Errorf("token revoked or expired")
	}

	ext := map[string][]string{
		"role":    {string(session.Role)},
		"tokenId": {session.TokenID},
	}
	if session.Overlay != nil {
		ext["overlayUserId"] = []string{session.Overlay.UserID.Hex()}
		ext["overlayName"] = []string{session.Overlay.Name}
		ext["overlayEmail"] = []string{session.Overlay.Email}
		ext["overlayRole"] = []string{string(session.Overlay.Role)}
	}
	return auth.NewDefaultUser(session.Email, session.UserID.Hex(), nil, ext), nil
}

// RevokeToken drops the bearer token from the strategy cache so a
// revocation is visible immediately on this instance
func RevokeToken(r *http.Request) {
	reqToken := r.Header.Get("Authorization")
	splitToken := strings.Split(reqToken, "Bearer ")
	if len(splitToken) < 2 {
		return
	}
	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Revoke(tokenStrategy, splitToken[1], r)
}

// identityFromInfo rebuilds the request identity from the go-guardian
// auth info extensions.
func identityFromInfo(user auth.Info) (Identity, error) {
	ext := user.Extensions()
	ident := Identity{
		UserID: user.ID(),
		Email:  user.UserName(),
	}
	if roles := ext["role"]; len(roles) > 0 {
		ident.Role = models.Role(roles[0])
	}
	if !ident.Role.Valid() {
		return Identity{}, fmt.Errorf("unknown role %q", ident.Role)
	}
	if tokens := ext["tokenId"]; len(tokens) > 0 {
		ident.TokenID = tokens[0]
	}
	if ids := ext["overlayUserId"]; len(ids) > 0 {
		overlayID, err := primitive.ObjectIDFromHex(ids[0])
		if err != nil {
			return Identity{}, fmt.Errorf("malformed overlay user id: %w", err)
		}
		overlay := &models.ImpersonationOverlay{UserID: overlayID}
		if v := ext["overlayName"]; len(v) > 0 {
			overlay.Name = v[0]
		}
		if v := ext["overlayEmail"]; len(v) > 0 {
			overlay.Email = v[0]
		}
		if v := ext["overlayRole"]; len(v) > 0 {
			overlay.Role = models.Role(v[0])
		}
		ident.Overlay = overlay
	}
	return ident, nil
}
