package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyEmail    = "auth_email"
	ContextKeyIsAdmin  = "auth_is_admin"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
	ContextKeyToken    = "auth_token"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Authenticator resolves credentials to a principal. *Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
	Principal(ctx context.Context, userID uint) (*Principal, error)
}

// Middleware handles authentication for HTTP requests. It never rejects a
// request on its own: anonymous requests pass through and route groups opt in
// with RequireAuth or RequireAdmin.
type Middleware struct {
	auth           Authenticator
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware. sessionManager may
// be nil, in which case only bearer tokens are accepted.
func NewMiddleware(auth Authenticator, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		auth:           auth,
		sessionManager: sessionManager,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try Bearer token first (for API clients)
		if token := BearerToken(c.Request); token != "" {
			if principal, err := m.auth.Authenticate(c.Request.Context(), token); err == nil {
				m.setUserContext(c, principal, AuthTypeBearer)
				c.Set(ContextKeyToken, token)
				c.Next()
				return
			}
		}

		// Then the session cookie (for browsers)
		if principal := m.trySessionAuth(c); principal != nil {
			m.setUserContext(c, principal, AuthTypeSession)
			c.Next()
			return
		}

		c.Set(ContextKeyAuthType, AuthTypeNone)
		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// trySessionAuth attempts to authenticate using session cookie.
func (m *Middleware) trySessionAuth(c *gin.Context) *Principal {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	principal, err := m.auth.Principal(c.Request.Context(), userID)
	if err != nil || !principal.IsActive {
		return nil
	}
	return principal
}

// setUserContext stores user information in the Gin context.
func (m *Middleware) setUserContext(c *gin.Context, p *Principal, authType AuthType) {
	c.Set(ContextKeyUserID, p.ID)
	c.Set(ContextKeyEmail, p.Email)
	c.Set(ContextKeyIsAdmin, p.IsAdmin)
	c.Set(ContextKeyAuthType, authType)
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "AUTH_REQUIRED",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "AUTH_REQUIRED",
			})
			return
		}
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin privileges required",
				"code":  "ADMIN_REQUIRED",
			})
			return
		}
		c.Next()
	}
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextKeyIsAdmin)
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// GetToken returns the bearer token the request authenticated with.
func GetToken(c *gin.Context) string {
	return c.GetString(ContextKeyToken)
}
