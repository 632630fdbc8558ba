package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	svc, _ := setupService(t)

	router := gin.New()
	router.Use(NewMiddleware(svc, nil).Handler())
	router.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth_type": GetAuthType(c)})
	})
	router.GET("/user", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "email": c.GetString(ContextKeyEmail)})
	})
	router.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, svc
}

func doRequest(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_Anonymous(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := doRequest(router, "/public", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"auth_type":"none"}`, w.Body.String())

	w = doRequest(router, "/user", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_REQUIRED")

	w = doRequest(router, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_BearerAuth(t *testing.T) {
	router, svc := newAuthRouter(t)
	ctx := context.Background()
	user := register(t, svc, "reader@example.com")
	result, err := svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		w := doRequest(router, "/user", result.Token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "reader@example.com")

		w = doRequest(router, "/public", result.Token)
		assert.Contains(t, w.Body.String(), `"auth_type":"bearer"`)
	})

	t.Run("non-admin is forbidden on admin routes", func(t *testing.T) {
		w := doRequest(router, "/admin", result.Token)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ADMIN_REQUIRED")
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		w := doRequest(router, "/user", "not-a-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("suspended user is anonymous", func(t *testing.T) {
		require.NoError(t, svc.users.Update(ctx, user.ID, map[string]any{"is_active": false}))
		svc.InvalidateUser(ctx, user.ID)

		w := doRequest(router, "/user", result.Token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMiddleware_Admin(t *testing.T) {
	router, svc := newAuthRouter(t)
	_, err := svc.CreateUser(context.Background(), RegisterInput{Email: "admin@example.com", Password: testPassword}, true)
	require.NoError(t, err)
	result, err := svc.Login(context.Background(), "admin@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)

	w := doRequest(router, "/admin", result.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"BEARER  abc123 ", "abc123"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, BearerToken(req))
		})
	}
}
