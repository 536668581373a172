package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session holds the structure for the session collection in mongo. One
// document per issued token; the TokenID matches the jti claim of the
// signed bearer token so revocation takes effect immediately.
type Session struct {
	ID        primitive.ObjectID    `json:"_id" bson:"_id"`
	TokenID   string                `json:"tokenId" bson:"tokenId"`
	UserID    primitive.ObjectID    `json:"userId" bson:"userId"`
	Email     string                `json:"email" bson:"email"`
	Role      Role                  `json:"role" bson:"role"`
	Overlay   *ImpersonationOverlay `json:"overlay,omitempty" bson:"overlay,omitempty"`
	CreatedAt primitive.DateTime    `json:"createdAt" bson:"createdAt"`
	ExpiresAt primitive.DateTime    `json:"expiresAt" bson:"expiresAt"`
	RevokedAt *primitive.DateTime   `json:"revokedAt,omitempty" bson:"revokedAt,omitempty"`
}

// ImpersonationOverlay stores the original principal of an impersonated
// session. Present iff the session was established via impersonation and
// has not been reverted. Repeated impersonation never stacks overlays:
// the overlay always identifies the principal captured at the first
// impersonation.
type ImpersonationOverlay struct {
	UserID primitive.ObjectID `json:"userId" bson:"userId"`
	Name   string             `json:"name" bson:"name"`
	Email  string             `json:"email" bson:"email"`
	Role   Role               `json:"role" bson:"role"`
}

// Impersonated reports whether the session carries an overlay.
func (s Session) Impersonated() bool {
	return s.Overlay != nil
}

// LoginResponse is the payload returned by login, impersonate and
// return-to-admin
type LoginResponse struct {
	Token         string                `json:"token"`
	User          User                  `json:"user"`
	Impersonating bool                  `json:"impersonating"`
	Overlay       *ImpersonationOverlay `json:"originalUser,omitempty"`
}
