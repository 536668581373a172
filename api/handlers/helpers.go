package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/RoshiKK/emergency-response-api/api"
	"github.com/RoshiKK/emergency-response-api/config"
	"github.com/RoshiKK/emergency-response-api/models"
)

// decodeJSONBody decodes the request body into v
func decodeJSONBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// requireRole returns the request identity when its role is one of the
// allowed roles, writing a 401/403 otherwise
func requireRole(w http.ResponseWriter, r *http.Request, roles ...models.Role) (api.Identity, bool) {
	ident, ok := api.IdentityFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no identity in context"))
		return api.Identity{}, false
	}
	for _, role := range roles {
		if ident.Role == role {
			return ident, true
		}
	}
	config.ErrorStatus("forbidden", http.StatusForbidden, w, errors.New("insufficient role"))
	return api.Identity{}, false
}
