package reviews

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/database"
	"github.com/mrlokans/booklook/internal/entities"
)

type fixture struct {
	repo  *Repository
	db    *database.Database
	users []*entities.User
	book  *entities.Book
}

func setupTestDB(t *testing.T) (*fixture, func()) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)

	f := &fixture{repo: NewRepository(db.DB), db: db}
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		user := &entities.User{Email: email, IsActive: true}
		require.NoError(t, db.DB.Create(user).Error)
		f.users = append(f.users, user)
	}
	f.book = &entities.Book{Title: "Fantasy Realm"}
	require.NoError(t, db.DB.Create(f.book).Error)

	cleanup := func() {
		db.Close()
	}
	return f, cleanup
}

func (f *fixture) review(t *testing.T, user *entities.User, rating int) *entities.Review {
	t.Helper()
	review := &entities.Review{UserID: user.ID, BookID: f.book.ID, Rating: rating}
	require.NoError(t, f.repo.Create(context.Background(), review))
	return review
}

func TestRepository_CreateUnique(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()

	f.review(t, f.users[0], 5)

	err := f.repo.Create(context.Background(), &entities.Review{UserID: f.users[0].ID, BookID: f.book.ID, Rating: 3})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestRepository_UpdateDelete(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	review := f.review(t, f.users[0], 2)

	require.NoError(t, f.repo.Update(ctx, review.ID, map[string]any{"rating": 4}))
	got, err := f.repo.GetByID(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)

	require.NoError(t, f.repo.Delete(ctx, review.ID))
	assert.ErrorIs(t, f.repo.Delete(ctx, review.ID), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, f.repo.Update(ctx, review.ID, map[string]any{"rating": 1}), gorm.ErrRecordNotFound)
}

func TestRepository_List(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i, rating := range []int{5, 5, 4, 3} {
		f.review(t, f.users[i], rating)
	}

	t.Run("by rating descending", func(t *testing.T) {
		reviews, total, err := f.repo.List(ctx, Filter{BookID: f.book.ID, SortBy: SortRating})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, reviews, 4)
		assert.Equal(t, 5, reviews[0].Rating)
		assert.Equal(t, 3, reviews[3].Rating)
		require.NotNil(t, reviews[0].User)
		require.NotNil(t, reviews[0].Book)
		assert.Equal(t, "Fantasy Realm", reviews[0].Book.Title)
	})

	t.Run("rating window and paging", func(t *testing.T) {
		reviews, total, err := f.repo.List(ctx, Filter{MinRating: 4, MaxRating: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, 4, reviews[0].Rating)

		reviews, total, err = f.repo.List(ctx, Filter{Limit: 3, Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, reviews, 1)
	})

	t.Run("by user", func(t *testing.T) {
		reviews, _, err := f.repo.List(ctx, Filter{UserID: f.users[3].ID})
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Equal(t, 3, reviews[0].Rating)
	})
}

func TestRepository_Distribution(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()

	for i, rating := range []int{5, 5, 4, 3} {
		f.review(t, f.users[i], rating)
	}

	dist, err := f.repo.Distribution(context.Background(), f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{1: 0, 2: 0, 3: 1, 4: 1, 5: 2}, dist)
}

func TestRepository_Bulk(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := f.review(t, f.users[0], 1)
	b := f.review(t, f.users[1], 2)
	ids := []uint{a.ID, b.ID, 999}

	flagged, err := f.repo.SetFlagged(ctx, ids, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), flagged)

	flagged, err = f.repo.SetFlagged(ctx, ids, true)
	require.NoError(t, err)
	assert.Zero(t, flagged, "already flagged reviews are not counted again")

	bookIDs, err := f.repo.BookIDs(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.book.ID}, bookIDs)

	deleted, err := f.repo.DeleteMany(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
