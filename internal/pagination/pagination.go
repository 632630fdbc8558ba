// Package pagination splits a book's stored text into pages of a requested
// number of words.
//
// Pages are derived from the full text on every request, so any words-per-page
// value within bounds gives consistent, gap-free page numbering:
//
//	total_pages = ceil(words / words_per_page)
//
// Page n (1-based) holds words [(n-1)*wpp, min(n*wpp, words)).
package pagination

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/cache"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/content"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
)

// BookSource loads live books.
type BookSource interface {
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
}

// Page is one page of a book's text.
type Page struct {
	BookID       uint   `json:"book_id"`
	BookTitle    string `json:"book_title"`
	Content      string `json:"content"`
	Page         int    `json:"page"`
	TotalPages   int    `json:"total_pages"`
	WordsPerPage int    `json:"words_per_page"`
	WordCount    int    `json:"word_count"`
	HasPrevious  bool   `json:"has_previous"`
	HasNext      bool   `json:"has_next"`
	PreviousPage *int   `json:"previous_page"`
	NextPage     *int   `json:"next_page"`
}

type Engine struct {
	books               BookSource
	store               content.Store
	cache               cache.Cache
	defaultWordsPerPage int
	maxWordsPerPage     int
}

func NewEngine(books BookSource, store content.Store, c cache.Cache, cfg config.Content) *Engine {
	if c == nil {
		c = cache.NewNoop()
	}
	defaultWPP := cfg.DefaultWordsPerPage
	if defaultWPP <= 0 {
		defaultWPP = config.DefaultWordsPerPage
	}
	maxWPP := cfg.MaxWordsPerPage
	if maxWPP <= 0 {
		maxWPP = config.MaxWordsPerPage
	}
	return &Engine{
		books:               books,
		store:               store,
		cache:               c,
		defaultWordsPerPage: defaultWPP,
		maxWordsPerPage:     maxWPP,
	}
}

// DefaultWordsPerPage is the page size used when a request does not choose one.
func (e *Engine) DefaultWordsPerPage() int {
	return e.defaultWordsPerPage
}

// WordsPerPage resolves a requested page size. Zero selects the default.
func (e *Engine) WordsPerPage(requested int) (int, error) {
	if requested == 0 {
		return e.defaultWordsPerPage, nil
	}
	if requested < 1 || requested > e.maxWordsPerPage {
		return 0, apperr.Validation("INVALID_WORDS_PER_PAGE", "words_per_page must be between 1 and the configured maximum")
	}
	return requested, nil
}

// Page returns page n of the book. Pages past the end are not clamped; they
// yield a PAGE_OUT_OF_RANGE not-found error.
func (e *Engine) Page(ctx context.Context, bookID uint, page, wordsPerPage int) (*Page, error) {
	if page < 1 {
		return nil, apperr.Validation("INVALID_PAGE", "page must be 1 or greater")
	}
	wpp, err := e.WordsPerPage(wordsPerPage)
	if err != nil {
		return nil, err
	}

	book, err := e.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}

	key := cache.BookContentKey(bookID, wpp, page)
	var cached Page
	if cache.GetJSON(ctx, e.cache, key, &cached) {
		return &cached, nil
	}

	words, err := e.loadWords(ctx, book)
	if err != nil {
		return nil, err
	}

	total := TotalPages(len(words), wpp)
	if page > total {
		return nil, apperr.NotFound("PAGE_OUT_OF_RANGE", "page is beyond the end of the book")
	}

	result := buildPage(book, words, page, wpp)

	cache.SetJSON(ctx, e.cache, key, result, 0)
	return result, nil
}

// TotalPages returns the page count of a book at the given page size. Books
// without stored text fall back to their recorded page count.
func (e *Engine) TotalPages(ctx context.Context, bookID uint, wordsPerPage int) (int, error) {
	wpp, err := e.WordsPerPage(wordsPerPage)
	if err != nil {
		return 0, err
	}
	book, err := e.books.GetByID(ctx, bookID)
	if err != nil {
		return 0, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	return e.PagesFor(book, wpp), nil
}

// PagesFor returns the page count of book at wpp words per page, falling back to
// the recorded page count when the book has no stored text.
func (e *Engine) PagesFor(book *entities.Book, wpp int) int {
	if book.WordCount > 0 {
		return TotalPages(book.WordCount, wpp)
	}
	return book.TotalPages
}

// Stats describes the book's text at the default page size.
func (e *Engine) Stats(ctx context.Context, bookID uint) (*content.Stats, error) {
	book, err := e.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	stats := content.ComputeStats(book.WordCount, e.defaultWordsPerPage)
	stats.BookID = book.ID
	stats.BookTitle = book.Title
	stats.HasContent = book.HasContent()
	return &stats, nil
}

func buildPage(book *entities.Book, words []string, page, wpp int) *Page {
	total := TotalPages(len(words), wpp)
	slice := Slice(words, page, wpp)
	result := &Page{
		BookID:       book.ID,
		BookTitle:    book.Title,
		Content:      strings.Join(slice, " "),
		Page:         page,
		TotalPages:   total,
		WordsPerPage: wpp,
		WordCount:    len(slice),
		HasPrevious:  page > 1,
		HasNext:      page < total,
	}
	if result.HasPrevious {
		prev := page - 1
		result.PreviousPage = &prev
	}
	if result.HasNext {
		next := page + 1
		result.NextPage = &next
	}
	return result
}

// Invalidate drops every cached page of the book.
func (e *Engine) Invalidate(ctx context.Context, bookID uint) {
	e.cache.DeletePrefix(ctx, cache.BookContentPrefix(bookID))
}

func (e *Engine) loadWords(ctx context.Context, book *entities.Book) ([]string, error) {
	if !book.HasContent() {
		return nil, apperr.Unavailable("CONTENT_UNAVAILABLE", "no content is available for this book")
	}
	text, err := e.store.Load(ctx, book.ContentKey)
	if err != nil {
		if appErr, ok := apperr.As(err); ok {
			log.Warn("Content store failed", zap.Uint("book_id", book.ID), zap.Error(err))
			return nil, appErr
		}
		return nil, apperr.Wrap(err, apperr.KindUnavailable, "CONTENT_UNAVAILABLE", "no content is available for this book")
	}
	words := content.Words(text)
	if len(words) == 0 {
		return nil, apperr.Unavailable("CONTENT_UNAVAILABLE", "no content is available for this book")
	}
	return words, nil
}

// TotalPages is ceil(words / wordsPerPage).
func TotalPages(words, wordsPerPage int) int {
	return content.PageCount(words, wordsPerPage)
}

// Slice returns the words of page n. Out-of-range pages are empty.
func Slice(words []string, page, wordsPerPage int) []string {
	if page < 1 || wordsPerPage < 1 {
		return nil
	}
	if page-1 >= (len(words)+wordsPerPage-1)/wordsPerPage {
		return nil
	}
	start := (page - 1) * wordsPerPage
	if start >= len(words) {
		return nil
	}
	end := start + wordsPerPage
	if end > len(words) {
		end = len(words)
	}
	return words[start:end]
}
