// Package exporters writes the catalog, its users and their reviews as CSV
// for the admin download endpoints. Rows are read in batches so an export
// never holds a whole table in memory.
package exporters

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/entities"
)

const batchSize = 500

// ListSeparator joins multi-valued cells such as a book's authors.
const ListSeparator = "; "

var (
	UserHeader   = []string{"ID", "Email", "First Name", "Last Name", "Is Active", "Is Admin", "Created At", "Reviews Count", "Favorites Count"}
	BookHeader   = []string{"ID", "Title", "ISBN", "Authors", "Genres", "Publication Date", "Pages", "Language", "Publisher", "Average Rating", "Review Count", "Word Count", "Description"}
	ReviewHeader = []string{"ID", "User ID", "User Email", "Book ID", "Book ISBN", "Book Title", "Rating", "Title", "Content", "Is Flagged", "Created At"}
)

// ExportResult reports how many data rows were written.
type ExportResult struct {
	Rows int `json:"rows"`
}

type CSVExporter struct {
	db *gorm.DB
}

func NewCSVExporter(db *gorm.DB) *CSVExporter {
	return &CSVExporter{db: db}
}

// Users writes every account with its review and favourite counts.
func (e *CSVExporter) Users(ctx context.Context, w io.Writer) (ExportResult, error) {
	type userRow struct {
		entities.User
		ReviewsCount    int64
		FavouritesCount int64
	}

	query := e.db.WithContext(ctx).Model(&entities.User{}).
		Select("users.*, " +
			"(SELECT COUNT(*) FROM reviews WHERE reviews.user_id = users.id) AS reviews_count, " +
			"(SELECT COUNT(*) FROM favourites WHERE favourites.user_id = users.id) AS favourites_count")

	return writeBatches(w, UserHeader, query, "users.id", func(row *userRow) []string {
		return []string{
			id(row.ID),
			row.Email,
			row.FirstName,
			row.LastName,
			strconv.FormatBool(row.IsActive),
			strconv.FormatBool(row.IsAdmin),
			timestamp(&row.CreatedAt),
			strconv.FormatInt(row.ReviewsCount, 10),
			strconv.FormatInt(row.FavouritesCount, 10),
		}
	})
}

// Books writes every live book.
func (e *CSVExporter) Books(ctx context.Context, w io.Writer) (ExportResult, error) {
	query := e.db.WithContext(ctx).Model(&entities.Book{})

	return writeBatches(w, BookHeader, query, "books.id", func(b *entities.Book) []string {
		date := ""
		if b.PublicationDate != nil {
			date = b.PublicationDate.Format("2006-01-02")
		}
		return []string{
			id(b.ID),
			b.Title,
			deref(b.ISBN),
			strings.Join(b.AuthorNames, ListSeparator),
			strings.Join(b.GenreNames, ListSeparator),
			date,
			strconv.Itoa(b.TotalPages),
			b.Language,
			b.Publisher,
			strconv.FormatFloat(b.AverageRating, 'f', 2, 64),
			strconv.Itoa(b.ReviewCount),
			strconv.Itoa(b.WordCount),
			b.Description,
		}
	})
}

// Reviews writes every review with its author's email and the book title.
func (e *CSVExporter) Reviews(ctx context.Context, w io.Writer) (ExportResult, error) {
	type reviewRow struct {
		entities.Review
		UserEmail string
		BookISBN  *string
		BookTitle string
	}

	query := e.db.WithContext(ctx).Model(&entities.Review{}).
		Select("reviews.*, users.email AS user_email, books.isbn AS book_isbn, books.title AS book_title").
		Joins("LEFT JOIN users ON users.id = reviews.user_id").
		Joins("LEFT JOIN books ON books.id = reviews.book_id")

	return writeBatches(w, ReviewHeader, query, "reviews.id", func(r *reviewRow) []string {
		return []string{
			id(r.ID),
			id(r.UserID),
			r.UserEmail,
			id(r.BookID),
			deref(r.BookISBN),
			r.BookTitle,
			strconv.Itoa(r.Rating),
			deref(r.Title),
			deref(r.Content),
			strconv.FormatBool(r.IsFlagged),
			timestamp(&r.CreatedAt),
		}
	})
}

// writeBatches pages through query by primary key and writes one record per row.
func writeBatches[T any](w io.Writer, header []string, query *gorm.DB, pk string, record func(*T) []string) (ExportResult, error) {
	var result ExportResult
	out := csv.NewWriter(w)
	if err := out.Write(header); err != nil {
		return result, errors.Wrap(err, "write header")
	}

	for offset := 0; ; offset += batchSize {
		var batch []T
		if err := query.Session(&gorm.Session{}).Order(pk + " ASC").Limit(batchSize).Offset(offset).Find(&batch).Error; err != nil {
			return result, errors.Wrap(err, "read rows")
		}
		for i := range batch {
			if err := out.Write(record(&batch[i])); err != nil {
				return result, errors.Wrap(err, "write row")
			}
			result.Rows++
		}
		if len(batch) < batchSize {
			break
		}
	}

	out.Flush()
	return result, errors.Wrap(out.Error(), "flush csv")
}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
