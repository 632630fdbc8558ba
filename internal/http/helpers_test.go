package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booklook/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		value  string
		wantID uint
		wantOK bool
	}{
		{"123", 123, true},
		{"abc", 0, false},
		{"-1", 0, false},
		{"0", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			id, ok := parseIDParam(c, "id")

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "invalid id")
			}
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	t.Run("int fallback and parse", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/?page=3&bad=x", nil)

		v, ok := queryInt(c, "page", 1)
		assert.True(t, ok)
		assert.Equal(t, 3, v)

		v, ok = queryInt(c, "missing", 7)
		assert.True(t, ok)
		assert.Equal(t, 7, v)

		_, ok = queryInt(c, "bad", 1)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bool", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/?flagged=true", nil)

		v, ok := queryBool(c, "flagged")
		require.True(t, ok)
		require.NotNil(t, v)
		assert.True(t, *v)

		v, ok = queryBool(c, "is_admin")
		assert.True(t, ok)
		assert.Nil(t, v)
	})
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperr.Validation("INVALID_RATING", "rating must be between 1 and 5"), http.StatusBadRequest, "INVALID_RATING"},
		{"not found", apperr.NotFound("BOOK_NOT_FOUND", "book not found"), http.StatusNotFound, "BOOK_NOT_FOUND"},
		{"conflict", apperr.Conflict("DUPLICATE_REVIEW", "already reviewed"), http.StatusConflict, "DUPLICATE_REVIEW"},
		{"forbidden", apperr.Forbidden("SELF_ACTION_FORBIDDEN", "not on yourself"), http.StatusForbidden, "SELF_ACTION_FORBIDDEN"},
		{"rate limited", apperr.RateLimited("TOO_MANY_ATTEMPTS", "slow down"), http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"internal", apperr.Internal(errors.New("boom"), "secret detail"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotContains(t, body.Error, "disk on fire")
			assert.NotContains(t, body.Error, "secret detail")
		})
	}
}
