package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/content"
	"github.com/mrlokans/booklook/internal/database/books"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/pagination"
)

const defaultPopularLimit = 10

// BookCatalog provides the public catalog reads.
type BookCatalog interface {
	BookGetter
	List(ctx context.Context, q catalog.Query) (*catalog.ListResult, error)
	Popular(ctx context.Context, limit int) ([]entities.Book, error)
	Genres(ctx context.Context) ([]books.NameCount, error)
	Authors(ctx context.Context) ([]books.NameCount, error)
}

// ContentPager serves paginated book text.
type ContentPager interface {
	Page(ctx context.Context, bookID uint, page, wordsPerPage int) (*pagination.Page, error)
	Range(ctx context.Context, bookID uint, start, end, wordsPerPage int) (*pagination.PageRange, error)
	Search(ctx context.Context, bookID uint, query string, wordsPerPage, limit int) (*pagination.SearchResult, error)
	Stats(ctx context.Context, bookID uint) (*content.Stats, error)
}

type BooksController struct {
	catalog BookCatalog
	pager   ContentPager
}

func NewBooksController(catalog BookCatalog, pager ContentPager) *BooksController {
	return &BooksController{
		catalog: catalog,
		pager:   pager,
	}
}

// ListBooks searches and pages through the catalog.
// GET /books?page=&page_size=&search=&genre_filter=&author_filter=&min_rating=&sort_by=&sort_order=
func (bc *BooksController) ListBooks(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}
	minRating, ok := queryFloat(c, "min_rating")
	if !ok {
		return
	}

	result, err := bc.catalog.List(c.Request.Context(), catalog.Query{
		Page:      page,
		PageSize:  size,
		Search:    c.Query("search"),
		Genre:     firstQuery(c, "genre_filter", "genre"),
		Author:    firstQuery(c, "author_filter", "author"),
		MinRating: minRating,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBook returns one book.
// GET /books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// Popular lists the most reviewed books.
// GET /books/popular?limit=
func (bc *BooksController) Popular(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultPopularLimit)
	if !ok {
		return
	}

	items, err := bc.catalog.Popular(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// Genres lists genres with their book counts.
// GET /books/genres
func (bc *BooksController) Genres(c *gin.Context) {
	items, err := bc.catalog.Genres(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Authors lists authors with their book counts.
// GET /books/authors
func (bc *BooksController) Authors(c *gin.Context) {
	items, err := bc.catalog.Authors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ContentPage returns one page of the book's text.
// GET /books/:id/content/page/:page?words_per_page=
func (bc *BooksController) ContentPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, err := parsePageParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	wpp, ok := queryInt(c, "words_per_page", 0)
	if !ok {
		return
	}

	result, err := bc.pager.Page(c.Request.Context(), id, page, wpp)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ContentRange returns up to ten consecutive pages.
// GET /books/:id/content/range/:start/:end?words_per_page=
func (bc *BooksController) ContentRange(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	start, err := strconv.Atoi(c.Param("start"))
	if err != nil {
		respondBadRequest(c, "INVALID_PAGE_RANGE", "start must be an integer")
		return
	}
	end, err := strconv.Atoi(c.Param("end"))
	if err != nil {
		respondBadRequest(c, "INVALID_PAGE_RANGE", "end must be an integer")
		return
	}
	wpp, ok := queryInt(c, "words_per_page", 0)
	if !ok {
		return
	}

	result, err := bc.pager.Range(c.Request.Context(), id, start, end, wpp)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchContent finds the pages of a book that contain q.
// GET /books/:id/search?q=&limit=&words_per_page=
func (bc *BooksController) SearchContent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", pagination.DefaultSearchLimit)
	if !ok {
		return
	}
	wpp, ok := queryInt(c, "words_per_page", 0)
	if !ok {
		return
	}

	result, err := bc.pager.Search(c.Request.Context(), id, c.Query("q"), wpp, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ContentStats reports word and page counts for the book.
// GET /books/:id/content/stats
func (bc *BooksController) ContentStats(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stats, err := bc.pager.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func firstQuery(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.Query(name); v != "" {
			return v
		}
	}
	return ""
}
