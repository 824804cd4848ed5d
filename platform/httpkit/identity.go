package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const identityKey = "httpkit.identity"

// Identity is the authenticated caller extracted from the access token.
type Identity struct {
	UserID uuid.UUID
}

// IdentityFrom returns the authenticated identity for the request, if any.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// MustGetIdentity returns the authenticated identity or writes a 401 and
// returns nil. Handlers can bail out on nil without writing anything else.
func MustGetIdentity(c *gin.Context) *Identity {
	id, ok := IdentityFrom(c)
	if !ok {
		Fail(c, http.StatusUnauthorized, "authentication required")
		c.Abort()
		return nil
	}
	return &id
}
