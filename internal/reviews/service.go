// Package reviews handles review submission and keeps each book's cached
// average rating and review count in step with its reviews.
//
// Every mutation runs the review write and the rating recompute in one
// transaction, so readers never see a review without its effect on the
// average. Cached book data is invalidated after the commit.
package reviews

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/cache"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/database/books"
	"github.com/mrlokans/booklook/internal/database/reviews"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/metrics"
	"github.com/mrlokans/booklook/internal/pagination"
)

const (
	maxTitleLength    = 200
	maxContentLength  = 5000
	DefaultRecentSize = 10
	maxRecentSize     = 50
)

// Actor is the authenticated user performing a mutation.
type Actor struct {
	UserID  uint
	IsAdmin bool
}

type Input struct {
	Rating  int     `json:"rating"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Patch is a partial review update. Nil fields are left unchanged.
type Patch struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type ListResult struct {
	Items []entities.Review `json:"items"`
	pagination.Listing
}

type Distribution struct {
	BookID        uint          `json:"book_id"`
	AverageRating float64       `json:"average_rating"`
	ReviewCount   int           `json:"review_count"`
	Ratings       map[int]int64 `json:"distribution"`
}

type Service struct {
	db      *gorm.DB
	reviews *reviews.Repository
	books   *books.Repository
	cache   cache.Cache
	catalog config.Catalog
}

func NewService(db *gorm.DB, c cache.Cache, catalog config.Catalog) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	if catalog.MaxPageSize <= 0 {
		catalog.MaxPageSize = config.MaxCatalogPageSize
	}
	if catalog.DefaultPageSize <= 0 {
		catalog.DefaultPageSize = 20
	}
	return &Service{
		db:      db,
		reviews: reviews.NewRepository(db),
		books:   books.NewRepository(db),
		cache:   c,
		catalog: catalog,
	}
}

// Create submits the user's review of the book. A user may review a book
// only once; the unique (user_id, book_id) index enforces it.
func (s *Service) Create(ctx context.Context, userID, bookID uint, in Input) (*entities.Review, error) {
	if !entities.ValidRating(in.Rating) {
		return nil, invalidRating()
	}
	if err := validateText(in.Title, in.Content); err != nil {
		return nil, err
	}

	review := &entities.Review{
		UserID:  userID,
		BookID:  bookID,
		Rating:  in.Rating,
		Title:   trimmed(in.Title),
		Content: trimmed(in.Content),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.books.WithTx(tx).Exists(ctx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("BOOK_NOT_FOUND", "book not found")
		}
		if err := s.reviews.WithTx(tx).Create(ctx, review); err != nil {
			return apperr.FromDB(err, "", "DUPLICATE_REVIEW")
		}
		_, err = s.RecomputeTx(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}

	s.Invalidate(ctx, bookID)
	return review, nil
}

// Update changes a review. Only its author or an admin may do so.
func (s *Service) Update(ctx context.Context, actor Actor, reviewID uint, patch Patch) (*entities.Review, error) {
	if patch.Rating != nil && !entities.ValidRating(*patch.Rating) {
		return nil, invalidRating()
	}
	if err := validateText(patch.Title, patch.Content); err != nil {
		return nil, err
	}

	var review *entities.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.reviews.WithTx(tx)
		var err error
		if review, err = s.owned(ctx, repo, actor, reviewID); err != nil {
			return err
		}

		fields := map[string]any{}
		if patch.Rating != nil {
			fields["rating"] = *patch.Rating
		}
		if patch.Title != nil {
			fields["title"] = trimmed(patch.Title)
		}
		if patch.Content != nil {
			fields["content"] = trimmed(patch.Content)
		}
		if len(fields) == 0 {
			return nil
		}
		if err := repo.Update(ctx, reviewID, fields); err != nil {
			return err
		}
		if _, err := s.RecomputeTx(ctx, tx, review.BookID); err != nil {
			return err
		}
		review, err = repo.GetByID(ctx, reviewID)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "REVIEW_NOT_FOUND", "")
	}

	s.Invalidate(ctx, review.BookID)
	return review, nil
}

// Delete removes a review. Only its author or an admin may do so.
func (s *Service) Delete(ctx context.Context, actor Actor, reviewID uint) (*entities.Review, error) {
	var review *entities.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.reviews.WithTx(tx)
		var err error
		if review, err = s.owned(ctx, repo, actor, reviewID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, reviewID); err != nil {
			return err
		}
		_, err = s.RecomputeTx(ctx, tx, review.BookID)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "REVIEW_NOT_FOUND", "")
	}

	s.Invalidate(ctx, review.BookID)
	return review, nil
}

// BulkDelete removes the reviews that exist among ids and recomputes every
// affected book, all in one transaction.
func (s *Service) BulkDelete(ctx context.Context, ids []uint) (int64, error) {
	var deleted int64
	var bookIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.reviews.WithTx(tx)
		var err error
		if bookIDs, err = repo.BookIDs(ctx, ids); err != nil {
			return err
		}
		if deleted, err = repo.DeleteMany(ctx, ids); err != nil {
			return err
		}
		for _, bookID := range bookIDs {
			if _, err := s.RecomputeTx(ctx, tx, bookID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperr.FromDB(err, "", "")
	}

	for _, bookID := range bookIDs {
		s.Invalidate(ctx, bookID)
	}
	return deleted, nil
}

func (s *Service) owned(ctx context.Context, repo *reviews.Repository, actor Actor, reviewID uint) (*entities.Review, error) {
	review, err := repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, apperr.FromDB(err, "REVIEW_NOT_FOUND", "")
	}
	if review.UserID != actor.UserID && !actor.IsAdmin {
		return nil, apperr.Forbidden("NOT_REVIEW_OWNER", "you can only change your own reviews")
	}
	return review, nil
}

// RecomputeTx recalculates the book's average rating and review count inside tx.
func (s *Service) RecomputeTx(ctx context.Context, tx *gorm.DB, bookID uint) (books.RatingSummary, error) {
	summary, err := s.books.WithTx(tx).RecomputeRating(ctx, bookID)
	if err != nil {
		return summary, err
	}
	metrics.ReviewsRecomputed.Inc()
	return summary, nil
}

// Recompute recalculates one book's rating in its own transaction.
func (s *Service) Recompute(ctx context.Context, bookID uint) (books.RatingSummary, error) {
	var summary books.RatingSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.books.WithTx(tx).Exists(ctx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			return gorm.ErrRecordNotFound
		}
		summary, err = s.RecomputeTx(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return summary, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	s.Invalidate(ctx, bookID)
	return summary, nil
}

// RecomputeAll reconciles the cached rating of every live book and returns how
// many were processed. A failing book is logged and skipped.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.books.IDs(ctx)
	if err != nil {
		return 0, apperr.FromDB(err, "", "")
	}
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.Recompute(ctx, id); err != nil {
			log.Error("Failed to recompute book rating", zap.Uint("book_id", id), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// Invalidate drops cached data derived from the book's reviews.
func (s *Service) Invalidate(ctx context.Context, bookID uint) {
	s.cache.Delete(ctx, cache.BookDetailKey(bookID), cache.ReviewDistributionKey(bookID))
	s.cache.DeletePrefix(ctx, cache.BookListPrefix)
}

// ListForBook pages through a book's reviews, newest first unless sortBy and
// order say otherwise.
func (s *Service) ListForBook(ctx context.Context, bookID uint, page, size int, sortBy, order string) (*ListResult, error) {
	if err := s.requireBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.List(ctx, reviews.Filter{BookID: bookID, SortBy: sortBy, SortOrder: order}, page, size)
}

func (s *Service) ListForUser(ctx context.Context, userID uint, page, size int) (*ListResult, error) {
	return s.List(ctx, reviews.Filter{UserID: userID}, page, size)
}

// List pages through reviews matching f. Limit and Offset in f are replaced.
func (s *Service) List(ctx context.Context, f reviews.Filter, page, size int) (*ListResult, error) {
	page, size, offset := pagination.Window(page, size, s.catalog.DefaultPageSize, s.catalog.MaxPageSize)
	f.Limit, f.Offset = size, offset

	items, total, err := s.reviews.List(ctx, f)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return &ListResult{Items: items, Listing: pagination.NewListing(total, page, size)}, nil
}

// Recent returns the newest reviews across all books.
func (s *Service) Recent(ctx context.Context, limit int) ([]entities.Review, error) {
	if limit <= 0 || limit > maxRecentSize {
		limit = DefaultRecentSize
	}
	items, _, err := s.reviews.List(ctx, reviews.Filter{SortBy: reviews.SortCreatedAt, SortOrder: "desc", Limit: limit})
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return items, nil
}

// Distribution counts the book's reviews per star rating.
func (s *Service) Distribution(ctx context.Context, bookID uint) (*Distribution, error) {
	key := cache.ReviewDistributionKey(bookID)
	var cached Distribution
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	ratings, err := s.reviews.Distribution(ctx, bookID)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}

	dist := &Distribution{
		BookID:        bookID,
		AverageRating: book.AverageRating,
		ReviewCount:   book.ReviewCount,
		Ratings:       ratings,
	}
	cache.SetJSON(ctx, s.cache, key, dist, 0)
	return dist, nil
}

func (s *Service) requireBook(ctx context.Context, bookID uint) error {
	exists, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return apperr.FromDB(err, "", "")
	}
	if !exists {
		return apperr.NotFound("BOOK_NOT_FOUND", "book not found")
	}
	return nil
}

func invalidRating() error {
	return apperr.Validation("INVALID_RATING", "rating must be between 1 and 5")
}

func validateText(title, content *string) error {
	if title != nil && len(strings.TrimSpace(*title)) > maxTitleLength {
		return apperr.Validation("INVALID_REVIEW", "title must be at most 200 characters")
	}
	if content != nil && len(strings.TrimSpace(*content)) > maxContentLength {
		return apperr.Validation("INVALID_REVIEW", "content must be at most 5000 characters")
	}
	return nil
}

// trimmed returns nil for a nil or blank string.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
