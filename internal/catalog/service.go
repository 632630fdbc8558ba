// Package catalog serves book listings and details and owns every write to a
// book's metadata and text.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/cache"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/content"
	"github.com/mrlokans/booklook/internal/database/books"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/pagination"
)

const (
	maxTitleLength      = 500
	DefaultPopularLimit = 10
	maxPopularLimit     = 50
)

// Query is a catalog listing request.
type Query struct {
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	Search    string  `json:"search,omitempty"`
	Genre     string  `json:"genre,omitempty"`
	Author    string  `json:"author,omitempty"`
	MinRating float64 `json:"min_rating,omitempty"`
	SortBy    string  `json:"sort_by,omitempty"`
	SortOrder string  `json:"sort_order,omitempty"`
}

type ListResult struct {
	Items []entities.Book `json:"items"`
	pagination.Listing
}

// BookInput creates a book. Text is optional.
type BookInput struct {
	Title           string     `json:"title"`
	ISBN            *string    `json:"isbn"`
	Description     string     `json:"description"`
	ImageURL        string     `json:"image_url"`
	Publisher       string     `json:"publisher"`
	Language        string     `json:"language"`
	PublicationDate *time.Time `json:"publication_date"`
	Authors         []string   `json:"authors"`
	Genres          []string   `json:"genres"`
	Text            string     `json:"text"`
}

// BookPatch is a partial update. Nil fields are left unchanged; non-nil
// Authors or Genres replace the whole list.
type BookPatch struct {
	Title           *string    `json:"title"`
	ISBN            *string    `json:"isbn"`
	Description     *string    `json:"description"`
	ImageURL        *string    `json:"image_url"`
	Publisher       *string    `json:"publisher"`
	Language        *string    `json:"language"`
	PublicationDate *time.Time `json:"publication_date"`
	Authors         *[]string  `json:"authors"`
	Genres          *[]string  `json:"genres"`
}

type Service struct {
	books  *books.Repository
	store  content.Store
	engine *pagination.Engine
	cache  cache.Cache
	cfg    config.Catalog
}

func NewService(bookRepo *books.Repository, store content.Store, engine *pagination.Engine, c cache.Cache, cfg config.Catalog) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = config.MaxCatalogPageSize
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	return &Service{books: bookRepo, store: store, engine: engine, cache: c, cfg: cfg}
}

// List returns one page of the catalog. Results are cached per normalized query.
func (s *Service) List(ctx context.Context, q Query) (*ListResult, error) {
	q, offset, err := s.normalize(q)
	if err != nil {
		return nil, err
	}

	key := cache.BookListKey(q)
	var cached ListResult
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	items, total, err := s.books.List(ctx, books.Filter{
		Search:    q.Search,
		Genre:     q.Genre,
		Author:    q.Author,
		MinRating: q.MinRating,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Limit:     q.PageSize,
		Offset:    offset,
	})
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	if items == nil {
		items = []entities.Book{}
	}

	result := &ListResult{Items: items, Listing: pagination.NewListing(total, q.Page, q.PageSize)}
	cache.SetJSON(ctx, s.cache, key, result, 0)
	return result, nil
}

func (s *Service) normalize(q Query) (Query, int, error) {
	var offset int
	q.Page, q.PageSize, offset = pagination.Window(q.Page, q.PageSize, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	q.Search = strings.TrimSpace(q.Search)
	q.Genre = strings.TrimSpace(q.Genre)
	q.Author = strings.TrimSpace(q.Author)
	q.SortBy = strings.ToLower(strings.TrimSpace(q.SortBy))
	q.SortOrder = strings.ToLower(strings.TrimSpace(q.SortOrder))

	switch q.SortBy {
	case "":
		q.SortBy = books.SortTitle
	case books.SortTitle, books.SortRating, books.SortPublicationDate, books.SortCreatedAt:
	default:
		return q, 0, apperr.Validation("INVALID_SORT", "sort_by must be one of title, rating, publication_date, created_at")
	}
	switch q.SortOrder {
	case "":
		// Ratings read best first unless asked otherwise.
		q.SortOrder = "asc"
		if q.SortBy == books.SortRating {
			q.SortOrder = "desc"
		}
	case "asc", "desc":
	default:
		return q, 0, apperr.Validation("INVALID_SORT", "sort_order must be asc or desc")
	}
	if q.MinRating < 0 || q.MinRating > entities.MaxRating {
		return q, 0, apperr.Validation("INVALID_MIN_RATING", "min_rating must be between 0 and 5")
	}
	return q, offset, nil
}

// Get returns a live book.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Book, error) {
	key := cache.BookDetailKey(id)
	var cached entities.Book
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	cache.SetJSON(ctx, s.cache, key, book, 0)
	return book, nil
}

// Create adds a book and, when text is given, stores its content. If the text
// cannot be stored the book is removed again.
func (s *Service) Create(ctx context.Context, in BookInput) (*entities.Book, error) {
	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:           title,
		ISBN:            normalizeISBN(in.ISBN),
		Description:     strings.TrimSpace(in.Description),
		ImageURL:        strings.TrimSpace(in.ImageURL),
		Publisher:       strings.TrimSpace(in.Publisher),
		Language:        strings.TrimSpace(in.Language),
		PublicationDate: in.PublicationDate,
	}
	if book.Language == "" {
		book.Language = "en"
	}
	if err := s.books.Create(ctx, book, in.Authors, in.Genres); err != nil {
		return nil, apperr.FromDB(err, "", "DUPLICATE_ISBN")
	}

	if strings.TrimSpace(in.Text) != "" {
		if _, err := s.SetContent(ctx, book.ID, in.Text); err != nil {
			if _, delErr := s.books.SoftDelete(ctx, book.ID); delErr != nil {
				log.Error("Failed to remove book after content error", zap.Uint("book_id", book.ID), zap.Error(delErr))
			}
			return nil, err
		}
	}

	s.cache.DeletePrefix(ctx, cache.BookListPrefix)
	return s.fresh(ctx, book.ID)
}

// Update applies patch to the book.
func (s *Service) Update(ctx context.Context, id uint, patch BookPatch) (*entities.Book, error) {
	if err := s.requireBook(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if patch.ISBN != nil {
		fields["isbn"] = normalizeISBN(patch.ISBN)
	}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*patch.ImageURL)
	}
	if patch.Publisher != nil {
		fields["publisher"] = strings.TrimSpace(*patch.Publisher)
	}
	if patch.Language != nil {
		fields["language"] = strings.TrimSpace(*patch.Language)
	}
	if patch.PublicationDate != nil {
		fields["publication_date"] = *patch.PublicationDate
	}

	if err := s.books.Update(ctx, id, fields, patch.Authors, patch.Genres); err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "DUPLICATE_ISBN")
	}

	// Cached pages carry the book title.
	s.engine.Invalidate(ctx, id)
	s.invalidate(ctx, id)
	return s.fresh(ctx, id)
}

// SetContent replaces the book's text. Word and page counts are recomputed and
// every cached page of the book is dropped.
func (s *Service) SetContent(ctx context.Context, id uint, text string) (*entities.Book, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("EMPTY_CONTENT", "content text is required")
	}
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}

	key, err := s.store.Save(ctx, id, text)
	if err != nil {
		return nil, err
	}
	words := content.CountWords(text)
	pages := pagination.TotalPages(words, s.engine.DefaultWordsPerPage())
	if err := s.books.UpdateContentStats(ctx, id, key, words, pages); err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}

	if book.ContentKey != "" && book.ContentKey != key {
		s.deleteContent(ctx, id, book.ContentKey)
	}
	s.engine.Invalidate(ctx, id)
	s.invalidate(ctx, id)

	log.Info("Stored book content",
		zap.Uint("book_id", id),
		zap.String("backend", s.store.Backend()),
		zap.Int("words", words),
		zap.Int("pages", pages),
	)
	return s.fresh(ctx, id)
}

// Delete soft-deletes the book and removes its text.
func (s *Service) Delete(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	affected, err := s.books.SoftDelete(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	if affected == 0 {
		return nil, apperr.NotFound("BOOK_NOT_FOUND", "book not found")
	}

	if book.ContentKey != "" {
		s.deleteContent(ctx, id, book.ContentKey)
	}
	s.engine.Invalidate(ctx, id)
	s.invalidate(ctx, id)
	s.cache.Delete(ctx, cache.ReviewDistributionKey(id))
	return book, nil
}

// Popular returns the most reviewed books.
func (s *Service) Popular(ctx context.Context, limit int) ([]entities.Book, error) {
	if limit <= 0 || limit > maxPopularLimit {
		limit = DefaultPopularLimit
	}
	items, err := s.books.Popular(ctx, limit)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return items, nil
}

func (s *Service) Genres(ctx context.Context) ([]books.NameCount, error) {
	items, err := s.books.Genres(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return items, nil
}

func (s *Service) Authors(ctx context.Context) ([]books.NameCount, error) {
	items, err := s.books.Authors(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return items, nil
}

// ISBNExists reports whether a live book already carries isbn.
func (s *Service) ISBNExists(ctx context.Context, isbn string) (bool, error) {
	normalized := normalizeISBN(&isbn)
	if normalized == nil {
		return false, nil
	}
	_, err := s.books.GetByISBN(ctx, *normalized)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, apperr.FromDB(err, "", "")
	}
}

func (s *Service) requireBook(ctx context.Context, id uint) error {
	exists, err := s.books.Exists(ctx, id)
	if err != nil {
		return apperr.FromDB(err, "", "")
	}
	if !exists {
		return apperr.NotFound("BOOK_NOT_FOUND", "book not found")
	}
	return nil
}

// fresh reads the book from the store, bypassing the detail cache.
func (s *Service) fresh(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	return book, nil
}

func (s *Service) invalidate(ctx context.Context, id uint) {
	s.cache.Delete(ctx, cache.BookDetailKey(id))
	s.cache.DeletePrefix(ctx, cache.BookListPrefix)
}

func (s *Service) deleteContent(ctx context.Context, id uint, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		log.Warn("Failed to delete book content", zap.Uint("book_id", id), zap.String("key", key), zap.Error(err))
	}
}

func validateTitle(title string) error {
	if title == "" {
		return apperr.Validation("INVALID_TITLE", "title is required")
	}
	if len(title) > maxTitleLength {
		return apperr.Validation("INVALID_TITLE", "title must be at most 500 characters")
	}
	return nil
}

// normalizeISBN strips spaces and hyphens. An empty result means no ISBN.
func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(*isbn))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
