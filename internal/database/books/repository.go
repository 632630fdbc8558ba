// Package books provides database operations for the book catalog.
//
// Authors and genres are canonical many-to-many relations, and the catalog
// filters go through them. Every write that touches them also rebuilds the
// denormalized AuthorNames and GenreNames columns the catalog renders from.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	items, total, err := repo.List(ctx, books.Filter{Genre: "Fantasy", Limit: 20})
package books

import (
	"context"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/database"
	"github.com/mrlokans/booklook/internal/entities"
)

// Sort keys accepted by List.
const (
	SortTitle           = "title"
	SortRating          = "rating"
	SortPublicationDate = "publication_date"
	SortCreatedAt       = "created_at"
)

var sortColumns = map[string]string{
	SortTitle:           "title",
	SortRating:          "average_rating",
	SortPublicationDate: "publication_date",
	SortCreatedAt:       "created_at",
}

// Filter narrows a catalog listing. All set fields are combined with AND.
type Filter struct {
	Search    string
	Genre     string
	Author    string
	MinRating float64
	SortBy    string
	SortOrder string // "asc" or "desc"
	Limit     int
	Offset    int
}

// NameCount is a genre or author with the number of live books linked to it.
type NameCount struct {
	Name      string `json:"name"`
	BookCount int64  `json:"book_count"`
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetByID retrieves a live book by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByISBN retrieves a live book by ISBN.
func (r *Repository) GetByISBN(ctx context.Context, isbn string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Exists reports whether a live book with id exists.
func (r *Repository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List returns one page of books matching f and the total number of matches.
// Ties in the sort order are always broken by id ascending.
func (r *Repository) List(ctx context.Context, f Filter) ([]entities.Book, int64, error) {
	db := r.db.WithContext(ctx)
	query := r.applyFilter(db.Model(&entities.Book{}), f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = sortColumns[SortTitle]
	}
	direction := "ASC"
	if strings.EqualFold(f.SortOrder, "desc") {
		direction = "DESC"
	}

	query = r.applyFilter(db.Model(&entities.Book{}), f).
		Order(column + " " + direction).
		Order("id ASC")
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var books []entities.Book
	err := query.Find(&books).Error
	return books, total, err
}

func (r *Repository) applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + database.EscapeLike(strings.ToLower(term)) + "%"
		query = query.Where(
			"("+database.Like(r.db, "LOWER(books.title)")+" OR "+linkedName("book_authors", "authors", "author_id", database.Like(r.db, "LOWER(authors.name)"))+")",
			pattern, pattern,
		)
	}
	if genre := strings.TrimSpace(f.Genre); genre != "" {
		query = query.Where(linkedName("book_genres", "genres", "genre_id", "LOWER(genres.name) = ?"), strings.ToLower(genre))
	}
	if author := strings.TrimSpace(f.Author); author != "" {
		query = query.Where(linkedName("book_authors", "authors", "author_id", "LOWER(authors.name) = ?"), strings.ToLower(author))
	}
	if f.MinRating > 0 {
		query = query.Where("books.average_rating >= ?", f.MinRating)
	}
	return query
}

// linkedName builds an EXISTS clause matching books linked through joinTable
// to a row of table satisfying cond.
func linkedName(joinTable, table, fk, cond string) string {
	return "EXISTS (SELECT 1 FROM " + joinTable +
		" JOIN " + table + " ON " + table + ".id = " + joinTable + "." + fk +
		" WHERE " + joinTable + ".book_id = books.id AND " + cond + ")"
}

// Popular returns the most reviewed books, best rated first among equals.
func (r *Repository) Popular(ctx context.Context, limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Order("review_count DESC").
		Order("average_rating DESC").
		Order("id ASC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// Genres lists genres with their live book counts.
func (r *Repository) Genres(ctx context.Context) ([]NameCount, error) {
	return r.namesWithCounts(ctx, "genres", "book_genres", "genre_id")
}

// Authors lists authors with their live book counts.
func (r *Repository) Authors(ctx context.Context) ([]NameCount, error) {
	return r.namesWithCounts(ctx, "authors", "book_authors", "author_id")
}

func (r *Repository) namesWithCounts(ctx context.Context, table, joinTable, fk string) ([]NameCount, error) {
	var rows []NameCount
	err := r.db.WithContext(ctx).
		Table(table).
		Select(table+".name AS name, COUNT(books.id) AS book_count").
		Joins("LEFT JOIN "+joinTable+" ON "+joinTable+"."+fk+" = "+table+".id").
		Joins("LEFT JOIN books ON books.id = "+joinTable+".book_id AND books.deleted_at IS NULL").
		Group(table + ".id, " + table + ".name").
		Order(table + ".name ASC").
		Scan(&rows).Error
	return rows, err
}

// Create inserts book and links it to the named authors and genres, creating
// any that do not exist yet. The denormalized name lists are rebuilt from the
// links.
func (r *Repository) Create(ctx context.Context, book *entities.Book, authorNames, genreNames []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authors, err := upsertAuthors(tx, authorNames)
		if err != nil {
			return err
		}
		genres, err := upsertGenres(tx, genreNames)
		if err != nil {
			return err
		}

		book.Authors = authors
		book.Genres = genres
		book.AuthorNames = authorList(authors)
		book.GenreNames = genreList(genres)

		return tx.Omit("Authors.*", "Genres.*").Create(book).Error
	})
}

// Update applies fields to the book. A non-nil authorNames or genreNames replaces
// that relation and its denormalized copy.
func (r *Repository) Update(ctx context.Context, id uint, fields map[string]any, authorNames, genreNames *[]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book := &entities.Book{ID: id}
		if fields == nil {
			fields = map[string]any{}
		}

		if authorNames != nil {
			authors, err := upsertAuthors(tx, *authorNames)
			if err != nil {
				return err
			}
			if err := tx.Model(book).Association("Authors").Replace(authors); err != nil {
				return err
			}
			fields["author_names"] = authorList(authors)
		}
		if genreNames != nil {
			genres, err := upsertGenres(tx, *genreNames)
			if err != nil {
				return err
			}
			if err := tx.Model(book).Association("Genres").Replace(genres); err != nil {
				return err
			}
			fields["genre_names"] = genreList(genres)
		}

		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&entities.Book{}).Where("id = ?", id).Updates(fields).Error
	})
}

// UpdateContentStats records where the text lives and its derived counts.
func (r *Repository) UpdateContentStats(ctx context.Context, id uint, contentKey string, wordCount, totalPages int) error {
	return r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Updates(map[string]any{
		"content_key": contentKey,
		"word_count":  wordCount,
		"total_pages": totalPages,
	}).Error
}

// SoftDelete hides the book. Its ISBN is released so the book can be imported again.
func (r *Repository) SoftDelete(ctx context.Context, id uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("id = ?", id).Update("isbn", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// RatingSummary is the aggregate of a book's live reviews.
type RatingSummary struct {
	Count   int64   `json:"review_count"`
	Average float64 `json:"average_rating"`
}

// RecomputeRating recalculates the cached average and count from the book's
// reviews and stores them. A book without reviews gets an average of 0.
func (r *Repository) RecomputeRating(ctx context.Context, bookID uint) (RatingSummary, error) {
	db := r.db.WithContext(ctx)

	var summary RatingSummary
	err := db.Model(&entities.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("book_id = ?", bookID).
		Scan(&summary).Error
	if err != nil {
		return summary, err
	}

	err = db.Model(&entities.Book{}).Where("id = ?", bookID).Updates(map[string]any{
		"average_rating": summary.Average,
		"review_count":   summary.Count,
	}).Error
	return summary, err
}

// IDs returns the ids of all live books.
func (r *Repository) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func upsertAuthors(tx *gorm.DB, names []string) ([]entities.Author, error) {
	names = CleanNames(names)
	authors := make([]entities.Author, 0, len(names))
	for _, name := range names {
		author := entities.Author{}
		if err := tx.Where(entities.Author{Name: name}).FirstOrCreate(&author).Error; err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}
	return authors, nil
}

func upsertGenres(tx *gorm.DB, names []string) ([]entities.Genre, error) {
	names = CleanNames(names)
	genres := make([]entities.Genre, 0, len(names))
	for _, name := range names {
		genre := entities.Genre{}
		if err := tx.Where(entities.Genre{Name: name}).FirstOrCreate(&genre).Error; err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, nil
}

// CleanNames trims names, drops empty ones and removes case-insensitive
// duplicates, keeping the first spelling and the original order.
func CleanNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

func authorList(authors []entities.Author) datatypes.JSONSlice[string] {
	names := make(datatypes.JSONSlice[string], 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return names
}

func genreList(genres []entities.Genre) datatypes.JSONSlice[string] {
	names := make(datatypes.JSONSlice[string], 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}
