package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booklook/internal/database"
	"github.com/mrlokans/booklook/internal/entities"
)

func TestRepository_Overview(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	now := time.Now()

	admin := &entities.User{Email: "admin@example.com", IsActive: true, IsAdmin: true}
	reader := &entities.User{Email: "reader@example.com", IsActive: true}
	old := &entities.User{Email: "old@example.com", IsActive: true, CreatedAt: now.AddDate(0, -2, 0)}
	for _, u := range []*entities.User{admin, reader, old} {
		require.NoError(t, db.DB.Create(u).Error)
	}
	require.NoError(t, db.DB.Model(old).Update("is_active", false).Error)

	rated := &entities.Book{Title: "Rated", AverageRating: 4.25, ReviewCount: 4}
	alsoRated := &entities.Book{Title: "Also Rated", AverageRating: 3, ReviewCount: 1}
	unrated := &entities.Book{Title: "Unrated"}
	for _, b := range []*entities.Book{rated, alsoRated, unrated} {
		require.NoError(t, db.DB.Create(b).Error)
	}

	require.NoError(t, db.DB.Create(&entities.Review{UserID: admin.ID, BookID: rated.ID, Rating: 5}).Error)
	require.NoError(t, db.DB.Create(&entities.Review{UserID: reader.ID, BookID: rated.ID, Rating: 4, IsFlagged: true}).Error)
	require.NoError(t, db.DB.Create(&entities.Review{UserID: old.ID, BookID: alsoRated.ID, Rating: 3, CreatedAt: now.AddDate(0, 0, -20)}).Error)

	require.NoError(t, db.DB.Create(&entities.ReadingProgress{UserID: reader.ID, BookID: rated.ID, CurrentPage: 2}).Error)
	require.NoError(t, db.DB.Create(&entities.ReadingProgress{UserID: reader.ID, BookID: unrated.ID, CurrentPage: 1}).Error)

	o, err := NewRepository(db.DB).Overview(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, int64(3), o.TotalBooks)
	assert.Equal(t, int64(3), o.TotalUsers)
	assert.Equal(t, int64(2), o.ActiveUsers)
	assert.Equal(t, int64(1), o.AdminUsers)
	assert.Equal(t, int64(3), o.TotalReviews)
	assert.Equal(t, int64(1), o.FlaggedReviews)
	assert.Equal(t, int64(2), o.ReadingSessions)
	assert.Equal(t, int64(1), o.ActiveReaders)
	assert.Equal(t, int64(2), o.NewUsersLast7d)
	assert.Equal(t, int64(2), o.NewReviewsLast7d)
	assert.Equal(t, 3.63, o.AverageBookRating)
	assert.Equal(t, 4.0, o.AverageReviewRating)
	assert.Equal(t, now, o.GeneratedAt)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 4.67, Round2(14.0/3))
	assert.Equal(t, 0.0, Round2(0))
}

func TestRepository_Breakdowns(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	now := time.Now().UTC()
	repo := NewRepository(db.DB)

	ann := &entities.User{Email: "ann@example.com", FirstName: "Ann", LastName: "Reader", IsActive: true}
	bo := &entities.User{Email: "bo@example.com", FirstName: "Bo", IsActive: true}
	ancient := &entities.User{Email: "ancient@example.com", IsActive: true, CreatedAt: now.AddDate(-2, 0, 0)}
	for _, u := range []*entities.User{ann, bo, ancient} {
		require.NoError(t, db.DB.Create(u).Error)
	}
	require.NoError(t, db.DB.Model(ancient).Update("is_active", false).Error)

	popular := &entities.Book{Title: "Popular", ReviewCount: 6, AverageRating: 3.5}
	loved := &entities.Book{Title: "Loved", ReviewCount: 5, AverageRating: 4.8}
	niche := &entities.Book{Title: "Niche", ReviewCount: 1, AverageRating: 5}
	quiet := &entities.Book{Title: "Quiet"}
	for _, b := range []*entities.Book{popular, loved, niche, quiet} {
		require.NoError(t, db.DB.Create(b).Error)
	}
	fantasy := &entities.Genre{Name: "Fantasy"}
	horror := &entities.Genre{Name: "Horror"}
	require.NoError(t, db.DB.Create(fantasy).Error)
	require.NoError(t, db.DB.Create(horror).Error)
	require.NoError(t, db.DB.Model(popular).Association("Genres").Append(fantasy))
	require.NoError(t, db.DB.Model(loved).Association("Genres").Append(fantasy, horror))

	require.NoError(t, db.DB.Create(&entities.Review{UserID: ann.ID, BookID: popular.ID, Rating: 4}).Error)
	require.NoError(t, db.DB.Create(&entities.Review{UserID: ann.ID, BookID: loved.ID, Rating: 5, IsFlagged: true}).Error)
	require.NoError(t, db.DB.Create(&entities.Review{UserID: bo.ID, BookID: popular.ID, Rating: 4}).Error)

	t.Run("users", func(t *testing.T) {
		u, err := repo.Users(ctx, now)
		require.NoError(t, err)
		require.Len(t, u.Growth, 6)
		assert.Equal(t, now.Format("2006-01"), u.Growth[5].Month)
		assert.Equal(t, int64(2), u.Growth[5].Count, "the two-year-old account is outside the window")
		require.Len(t, u.MostActiveReviewers, 2)
		assert.Equal(t, "Ann Reader", u.MostActiveReviewers[0].Name)
		assert.Equal(t, int64(2), u.MostActiveReviewers[0].ReviewCount)
		assert.Equal(t, int64(2), u.ActiveUsers)
		assert.Equal(t, int64(1), u.InactiveUsers)
		assert.Equal(t, int64(3), u.TotalUsers)
	})

	t.Run("books", func(t *testing.T) {
		b, err := repo.Books(ctx)
		require.NoError(t, err)
		require.Len(t, b.MostReviewed, 4)
		assert.Equal(t, popular.ID, b.MostReviewed[0].ID)
		require.Len(t, b.HighestRated, 2, "books with fewer than 5 reviews are not ranked")
		assert.Equal(t, "Loved", b.HighestRated[0].Title)
		assert.Equal(t, []GenreCount{{"Fantasy", 2}, {"Horror", 1}}, b.TopGenres)
		assert.Equal(t, int64(1), b.BooksWithoutReviews)
	})

	t.Run("reviews", func(t *testing.T) {
		r, err := repo.Reviews(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, []RatingCount{{1, 0}, {2, 0}, {3, 0}, {4, 2}, {5, 1}}, r.RatingDistribution)
		require.Len(t, r.Trends, 6)
		assert.Equal(t, int64(3), r.Trends[5].Count)
		assert.Equal(t, int64(1), r.FlaggedReviews)
	})
}
