package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestKind_HTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindUnavailable:  http.StatusServiceUnavailable,
		KindRateLimited:  http.StatusTooManyRequests,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		t.Run(kind.String(), func(t *testing.T) {
			assert.Equal(t, status, kind.HTTPStatus())
		})
	}
}

func TestAs_ThroughWrapping(t *testing.T) {
	base := Conflict("DUPLICATE_REVIEW", "already reviewed")
	wrapped := fmt.Errorf("create review: %w", base)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "DUPLICATE_REVIEW", appErr.Code)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, "DUPLICATE_REVIEW"))
	assert.False(t, Is(wrapped, "BOOK_NOT_FOUND"))
}

func TestKindOf_UnknownIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, KindUnavailable, "CONTENT_UNAVAILABLE", "content store unavailable")

	assert.Equal(t, cause, errors.Cause(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, Wrap(nil, KindInternal, "X", "y"))
}

func TestFromDB(t *testing.T) {
	t.Run("record not found", func(t *testing.T) {
		err := FromDB(gorm.ErrRecordNotFound, "BOOK_NOT_FOUND", "")
		appErr, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, KindNotFound, appErr.Kind)
		assert.Equal(t, "book not found", appErr.Message)
	})

	t.Run("duplicate key", func(t *testing.T) {
		err := FromDB(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "", "DUPLICATE_REVIEW")
		assert.True(t, Is(err, "DUPLICATE_REVIEW"))
		assert.Equal(t, KindConflict, KindOf(err))
	})

	t.Run("application errors pass through", func(t *testing.T) {
		original := Forbidden("SELF_ACTION_FORBIDDEN", "nope")
		assert.Same(t, original, FromDB(original, "BOOK_NOT_FOUND", ""))
	})

	t.Run("other errors are internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(FromDB(errors.New("disk I/O error"), "BOOK_NOT_FOUND", "")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, FromDB(nil, "BOOK_NOT_FOUND", ""))
	})
}
