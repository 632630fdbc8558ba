package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/log"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondError maps err to its HTTP status. Application errors carry their own
// code and message; anything else is logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal {
		respondInternalError(c, err, c.FullPath())
		return
	}
	if appErr.Kind == apperr.KindUnavailable {
		log.Warn("Dependency unavailable", zap.String("route", c.FullPath()), zap.Error(err))
	}
	c.JSON(appErr.Kind.HTTPStatus(), ErrorResponse{Error: appErr.Message, Code: appErr.Code})
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: code})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Error("Internal error",
		zap.String("context", context),
		zap.String("request_id", c.GetString(ContextKeyRequestID)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"})
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates a positive integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "INVALID_ID", "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an optional integer query parameter. A malformed value
// responds with 400 and returns false.
func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, "INVALID_PARAMETER", name+" must be an integer")
		return 0, false
	}
	return v, true
}

// queryFloat reads an optional float query parameter.
func queryFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		respondBadRequest(c, "INVALID_PARAMETER", name+" must be a number")
		return 0, false
	}
	return v, true
}

// queryBool reads an optional boolean query parameter; nil when absent.
func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondBadRequest(c, "INVALID_PARAMETER", name+" must be true or false")
		return nil, false
	}
	return &v, true
}

// bindJSON decodes the request body into dst or responds with 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "INVALID_BODY", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// currentUser returns the authenticated user's ID. Routes using it sit
// behind auth.RequireAuth.
func currentUser(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// parsePageParam reads the :page path segment. Non-numeric and negative
// values are validation errors, matching what the pagination engine reports.
func parsePageParam(c *gin.Context) (int, error) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return 0, apperr.Validation("INVALID_PAGE", "page must be an integer")
	}
	return page, nil
}
