package pagination

import (
	"context"
	"strings"

	"github.com/mrlokans/booklook/internal/apperr"
)

const (
	MaxRangePages      = 10
	MinSearchLength    = 3
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	previewLength      = 300
)

// PageRange is a run of consecutive pages read in one request.
type PageRange struct {
	BookID       uint    `json:"book_id"`
	BookTitle    string  `json:"book_title"`
	StartPage    int     `json:"start_page"`
	EndPage      int     `json:"end_page"`
	TotalPages   int     `json:"total_pages"`
	WordsPerPage int     `json:"words_per_page"`
	Pages        []*Page `json:"pages"`
}

// SearchHit is a page whose text contains the search query.
type SearchHit struct {
	PageNumber     int    `json:"page_number"`
	ContentPreview string `json:"content_preview"`
	WordCount      int    `json:"word_count"`
}

type SearchResult struct {
	BookID       uint        `json:"book_id"`
	BookTitle    string      `json:"book_title"`
	SearchQuery  string      `json:"search_query"`
	WordsPerPage int         `json:"words_per_page"`
	ResultsCount int         `json:"results_count"`
	Pages        []SearchHit `json:"pages"`
}

// Range returns pages start through end inclusive, at most MaxRangePages of
// them. An end past the last page is cut short; a start past it is
// PAGE_OUT_OF_RANGE.
func (e *Engine) Range(ctx context.Context, bookID uint, start, end, wordsPerPage int) (*PageRange, error) {
	if start < 1 || end < start {
		return nil, apperr.Validation("INVALID_PAGE_RANGE", "start must be 1 or greater and end must not precede start")
	}
	if end-start >= MaxRangePages {
		return nil, apperr.Validation("PAGE_RANGE_TOO_LARGE", "at most 10 pages can be read at once")
	}
	wpp, err := e.WordsPerPage(wordsPerPage)
	if err != nil {
		return nil, err
	}

	book, err := e.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	words, err := e.loadWords(ctx, book)
	if err != nil {
		return nil, err
	}

	total := TotalPages(len(words), wpp)
	if start > total {
		return nil, apperr.NotFound("PAGE_OUT_OF_RANGE", "page is beyond the end of the book")
	}
	if end > total {
		end = total
	}

	result := &PageRange{
		BookID:       book.ID,
		BookTitle:    book.Title,
		StartPage:    start,
		EndPage:      end,
		TotalPages:   total,
		WordsPerPage: wpp,
		Pages:        make([]*Page, 0, end-start+1),
	}
	for n := start; n <= end; n++ {
		result.Pages = append(result.Pages, buildPage(book, words, n, wpp))
	}
	return result, nil
}

// Search finds the pages whose text contains query, ignoring case, in page
// order. A phrase split across two pages is not found.
func (e *Engine) Search(ctx context.Context, bookID uint, query string, wordsPerPage, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, apperr.Validation("QUERY_TOO_SHORT", "search query must be at least 3 characters")
	}
	if limit <= 0 || limit > MaxSearchLimit {
		limit = DefaultSearchLimit
	}
	wpp, err := e.WordsPerPage(wordsPerPage)
	if err != nil {
		return nil, err
	}

	book, err := e.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	words, err := e.loadWords(ctx, book)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.Join(strings.Fields(query), " "))
	result := &SearchResult{
		BookID:       book.ID,
		BookTitle:    book.Title,
		SearchQuery:  query,
		WordsPerPage: wpp,
		Pages:        []SearchHit{},
	}
	total := TotalPages(len(words), wpp)
	for n := 1; n <= total && len(result.Pages) < limit; n++ {
		slice := Slice(words, n, wpp)
		text := strings.Join(slice, " ")
		if !strings.Contains(strings.ToLower(text), needle) {
			continue
		}
		result.Pages = append(result.Pages, SearchHit{
			PageNumber:     n,
			ContentPreview: preview(text, previewLength),
			WordCount:      len(slice),
		})
	}
	result.ResultsCount = len(result.Pages)
	return result, nil
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
