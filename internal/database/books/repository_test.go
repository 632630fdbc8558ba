package books

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

func setupTestDB(t *testing.T) (*Repository, *database.Database, func()) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}
	return NewRepository(db.DB), db, cleanup
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, repo *Repository, title string, authors, genres []string, rating float64) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, AverageRating: rating}
	require.NoError(t, repo.Create(context.Background(), book, authors, genres))
	return book
}

func TestRepository_Create(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := &entities.Book{Title: "Fantasy Realm", ISBN: strPtr("9780000000001")}
	err := repo.Create(ctx, book, []string{"Ann Writer", " ann writer ", "Bo Scribe"}, []string{"Fantasy"})
	require.NoError(t, err)
	assert.NotZero(t, book.ID)

	got, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann Writer", "Bo Scribe"}, []string(got.AuthorNames))
	assert.Equal(t, []string{"Fantasy"}, []string(got.GenreNames))

	var links int64
	require.NoError(t, db.DB.Table("book_authors").Where("book_id = ?", book.ID).Count(&links).Error)
	assert.Equal(t, int64(2), links)

	t.Run("reuses existing authors", func(t *testing.T) {
		seed(t, repo, "Second Book", []string{"Ann Writer"}, nil, 0)
		var count int64
		require.NoError(t, db.DB.Model(&entities.Author{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("lookup by ISBN", func(t *testing.T) {
		found, err := repo.GetByISBN(ctx, "9780000000001")
		require.NoError(t, err)
		assert.Equal(t, book.ID, found.ID)
	})
}

func TestRepository_Update_RebuildsDenormalizedNames(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seed(t, repo, "Fantasy Realm", []string{"Ann Writer"}, []string{"Fantasy"}, 0)

	genres := []string{"Adventure", "Fantasy"}
	err := repo.Update(ctx, book.ID, map[string]any{"title": "Fantasy Realm II"}, nil, &genres)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fantasy Realm II", got.Title)
	assert.Equal(t, []string{"Ann Writer"}, []string(got.AuthorNames))
	assert.Equal(t, []string{"Adventure", "Fantasy"}, []string(got.GenreNames))

	items, _, err := repo.List(ctx, Filter{Genre: "adventure"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, book.ID, items[0].ID)
}

func TestRepository_List(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := seed(t, repo, "Alpha", []string{"Ann Writer"}, []string{"Fantasy"}, 4.5)
	b := seed(t, repo, "Bravo", []string{"Bo Scribe"}, []string{"Science Fiction"}, 3.0)
	c := seed(t, repo, "Charlie", []string{"Ann Writer"}, []string{"Fantasy", "Horror"}, 4.5)

	t.Run("defaults to title ascending", func(t *testing.T) {
		items, total, err := repo.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []uint{a.ID, b.ID, c.ID}, ids(items))
	})

	t.Run("rating desc breaks ties by id", func(t *testing.T) {
		items, _, err := repo.List(ctx, Filter{SortBy: SortRating, SortOrder: "desc"})
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, c.ID, b.ID}, ids(items))
	})

	t.Run("filters combine with AND", func(t *testing.T) {
		items, total, err := repo.List(ctx, Filter{Author: "Ann Writer", Genre: "Horror"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, []uint{c.ID}, ids(items))
	})

	t.Run("search matches title or author", func(t *testing.T) {
		items, _, err := repo.List(ctx, Filter{Search: "scribe"})
		require.NoError(t, err)
		assert.Equal(t, []uint{b.ID}, ids(items))

		items, _, err = repo.List(ctx, Filter{Search: "CHAR"})
		require.NoError(t, err)
		assert.Equal(t, []uint{c.ID}, ids(items))
	})

	t.Run("min rating", func(t *testing.T) {
		_, total, err := repo.List(ctx, Filter{MinRating: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("limit and offset", func(t *testing.T) {
		items, total, err := repo.List(ctx, Filter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []uint{b.ID}, ids(items))
	})

	t.Run("wildcards in search are literal", func(t *testing.T) {
		_, total, err := repo.List(ctx, Filter{Search: "%"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestRepository_List_NamesWithSpecialCharacters(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	odd := seed(t, repo, "Twin Voices", []string{"Smith & Jones"}, []string{"Science Fiction & Fantasy"}, 0)
	seed(t, repo, "Plain Book", []string{"Ann Writer"}, []string{"Fantasy"}, 0)
	angled := seed(t, repo, "Markup", []string{"<b>Bold</b>"}, nil, 0)

	tests := []struct {
		name   string
		filter Filter
		want   []uint
	}{
		{"genre with ampersand", Filter{Genre: "science fiction & fantasy"}, []uint{odd.ID}},
		{"author with ampersand", Filter{Author: "Smith & Jones"}, []uint{odd.ID}},
		{"search with ampersand", Filter{Search: "smith &"}, []uint{odd.ID}},
		{"author with angle brackets", Filter{Author: "<b>Bold</b>"}, []uint{angled.ID}},
		{"genre is an exact name", Filter{Genre: "Fiction"}, []uint{}},
		{"quote is not json syntax", Filter{Search: `"`}, []uint{}},
		{"bracket is not json syntax", Filter{Search: `","`}, []uint{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
			assert.Equal(t, tt.want, ids(items))
		})
	}
}

func TestRepository_RecomputeRating(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seed(t, repo, "Fantasy Realm", nil, nil, 0)

	summary, err := repo.RecomputeRating(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.Count)
	assert.Zero(t, summary.Average)

	for i, rating := range []int{5, 5, 4, 3} {
		require.NoError(t, db.DB.Create(&entities.Review{UserID: uint(i + 1), BookID: book.ID, Rating: rating}).Error)
	}

	summary, err = repo.RecomputeRating(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Count)
	assert.InDelta(t, 4.25, summary.Average, 1e-9)

	got, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.ReviewCount)
	assert.InDelta(t, 4.25, got.AverageRating, 1e-9)
}

func TestRepository_SoftDelete(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := &entities.Book{Title: "Gone", ISBN: strPtr("123")}
	require.NoError(t, repo.Create(ctx, book, nil, nil))

	affected, err := repo.SoftDelete(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = repo.GetByID(ctx, book.ID)
	assert.Error(t, err)

	// The ISBN is free again.
	require.NoError(t, repo.Create(ctx, &entities.Book{Title: "Back", ISBN: strPtr("123")}, nil, nil))
}

func TestRepository_PopularAndGenres(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	quiet := seed(t, repo, "Quiet", nil, []string{"Poetry"}, 0)
	loud := seed(t, repo, "Loud", nil, []string{"Poetry", "Drama"}, 0)
	require.NoError(t, db.DB.Model(&entities.Book{}).Where("id = ?", loud.ID).Update("review_count", 10).Error)

	popular, err := repo.Popular(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{loud.ID, quiet.ID}, ids(popular))

	genres, err := repo.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []NameCount{{Name: "Drama", BookCount: 1}, {Name: "Poetry", BookCount: 2}}, genres)
}

func TestRepository_UpdateContentStats(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := seed(t, repo, "Fantasy Realm", nil, nil, 0)
	require.NoError(t, repo.UpdateContentStats(ctx, book.ID, "1", 9000, 30))

	got, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, got.HasContent())
	assert.Equal(t, 30, got.TotalPages)
	assert.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)
}

func TestCleanNames(t *testing.T) {
	assert.Equal(t, []string{"A", "b"}, CleanNames([]string{" A ", "", "a", "b"}))
}

func ids(books []entities.Book) []uint {
	out := make([]uint, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}
