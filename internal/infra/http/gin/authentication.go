package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "staysync.principal"

// principal is the identity asserted by the upstream identity provider. The
// gateway terminates authentication and forwards the verified claims as
// headers; this service trusts them as-is.
type principal struct {
	ID              string
	Role            string
	OwnedProperties []string
}

func (p principal) IsAdmin() bool { return p.Role == "admin" }

// IdentityMiddleware lifts the forwarded identity headers into the request.
type IdentityMiddleware struct{}

func (IdentityMiddleware) Handle(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader("X-Identity"))
	if id == "" {
		c.Next()
		return
	}
	p := principal{
		ID:   id,
		Role: strings.ToLower(strings.TrimSpace(c.GetHeader("X-Role"))),
	}
	if owned := c.GetHeader("X-Owned-Properties"); owned != "" {
		for _, raw := range strings.Split(owned, ",") {
			if v := strings.TrimSpace(raw); v != "" {
				p.OwnedProperties = append(p.OwnedProperties, v)
			}
		}
	}
	setPrincipal(c, p)
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requirePrincipal(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return principal{}, false
	}
	return p, true
}
