package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	page, size, offset := Window(3, 20, 20, 100)
	assert.Equal(t, []int{3, 20, 40}, []int{page, size, offset})

	page, size, offset = Window(0, 500, 20, 100)
	assert.Equal(t, []int{1, 100, 0}, []int{page, size, offset})

	_, size, _ = Window(1, 0, 20, 100)
	assert.Equal(t, 20, size)

	t.Run("huge page keeps a positive offset", func(t *testing.T) {
		page, _, offset := Window(math.MaxInt, 20, 20, 100)
		assert.Equal(t, math.MaxInt32/20+1, page)
		assert.Positive(t, offset)
		assert.LessOrEqual(t, offset, math.MaxInt32)

		l := NewListing(45, page, 20)
		assert.False(t, l.HasNext)
		assert.True(t, l.HasPrevious)
	})
}

func TestNewListing(t *testing.T) {
	l := NewListing(45, 2, 20)
	assert.Equal(t, 3, l.TotalPages)
	assert.True(t, l.HasNext)
	assert.True(t, l.HasPrevious)

	last := NewListing(45, 3, 20)
	assert.False(t, last.HasNext)

	empty := NewListing(0, 1, 20)
	assert.Zero(t, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrevious)
}
