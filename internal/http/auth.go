package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
)

// AuthService defines the account operations used by the auth endpoints.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*entities.User, error)
	Login(ctx context.Context, email, password, ip string) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, userID uint) (*entities.User, error)
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

// AuthRecorder records authentication events in the audit trail.
type AuthRecorder interface {
	LogAuth(userID uint, action, ipAddr string, success bool)
}

type AuthController struct {
	service  AuthService
	sessions *auth.SessionManager
	recorder AuthRecorder
}

// NewAuthController creates a new AuthController. sessions and recorder may be nil.
func NewAuthController(service AuthService, sessions *auth.SessionManager, recorder AuthRecorder) *AuthController {
	return &AuthController{service: service, sessions: sessions, recorder: recorder}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Register creates a reader account.
// POST /auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req auth.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.record(user.ID, "register", c.ClientIP(), true)
	respondCreated(c, user)
}

// Login issues a bearer token. Browser clients also get a session cookie.
// POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ac.service.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		ac.record(0, "login", c.ClientIP(), false)
		respondError(c, err)
		return
	}

	if ac.sessions != nil {
		if err := ac.sessions.CreateSession(c.Request, result.User.ID); err != nil {
			// The token is still valid; only cookie auth is unavailable.
			log.Warn("Failed to create session", zap.Uint("user_id", result.User.ID), zap.Error(err))
		}
	}

	ac.record(result.User.ID, "login", c.ClientIP(), true)
	c.JSON(http.StatusOK, result)
}

// Logout revokes the bearer token and destroys the session, whichever the
// request carries.
// POST /auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	userID := currentUser(c)

	if token := auth.GetToken(c); token != "" {
		if err := ac.service.Logout(c.Request.Context(), token); err != nil {
			respondError(c, err)
			return
		}
	}
	if ac.sessions != nil && auth.GetAuthType(c) == auth.AuthTypeSession {
		if err := ac.sessions.DestroySession(c.Request); err != nil {
			respondInternalError(c, err, "destroy session")
			return
		}
	}

	ac.record(userID, "logout", c.ClientIP(), true)
	respondSuccess(c, "logged out")
}

// Me returns the authenticated user's profile.
// GET /auth/me
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the password after checking the current one.
// PUT /auth/password
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := currentUser(c)
	if err := ac.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		ac.record(userID, "password_change", c.ClientIP(), false)
		respondError(c, err)
		return
	}
	ac.record(userID, "password_change", c.ClientIP(), true)
	respondSuccess(c, "password changed")
}

func (ac *AuthController) record(userID uint, action, ip string, success bool) {
	if ac.recorder != nil {
		ac.recorder.LogAuth(userID, action, ip, success)
	}
}
