package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuswriters/go-market-backend/internal/domain"
	"github.com/campuswriters/go-market-backend/internal/services"
)

// Identity headers set by the authenticating edge proxy. HeaderSubject is the
// stable external subject; the rest seed the local profile on first sight.
const (
	HeaderSubject = "X-Auth-Subject"
	HeaderEmail   = "X-Auth-Email"
	HeaderName    = "X-Auth-Name"
	HeaderPicture = "X-Auth-Picture"
	HeaderRole    = "X-Auth-Role"
)

const (
	principalKey = "principal"
	userIDKey    = "userID"
)

// Principal is the resolved identity of the current request. A guest has an
// empty UserID and the guest role.
type Principal struct {
	UserID string
	Name   string
	Role   string
}

// Guest reports whether the principal is unauthenticated.
func (p Principal) Guest() bool { return p.UserID == "" }

// Authenticate resolves the identity headers to a local user row, creating
// one on first contact, and stores the principal in the Gin context. Requests
// without a subject proceed as guests; readonly endpoints serve them sample
// data and RequireUser fences off the rest.
func Authenticate(profiles *services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetHeader(HeaderSubject)
		if subject == "" {
			c.Set(principalKey, Principal{Role: domain.RoleGuest})
			c.Next()
			return
		}

		u, err := profiles.EnsureUser(
			c.Request.Context(),
			subject,
			c.GetHeader(HeaderEmail),
			c.GetHeader(HeaderName),
			c.GetHeader(HeaderPicture),
			c.GetHeader(HeaderRole),
		)
		if err != nil {
			if services.IsValidation(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"request_id": RequestIDFrom(c),
					"code":       "invalid_identity",
					"message":    "identity headers are incomplete or invalid",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "internal_error",
				"message":    "could not resolve identity",
			})
			return
		}

		c.Set(principalKey, Principal{UserID: u.ID, Name: u.Name, Role: u.Role})
		c.Set(userIDKey, u.ID)
		c.Next()
	}
}

// PrincipalFrom returns the principal resolved by Authenticate. Absent one
// (e.g. in tests wiring handlers directly) it returns a guest.
func PrincipalFrom(c *gin.Context) Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{Role: domain.RoleGuest}
}

// RequireUser rejects guests with 401. Mount it on every mutating route so
// browsing stays open while anything that writes demands a signed-in account.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if PrincipalFrom(c).Guest() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "sign_in_required",
				"message":    "sign in to continue",
			})
			return
		}
		c.Next()
	}
}
