package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/progress"
)

// ProgressService defines reading-progress operations for one user.
type ProgressService interface {
	Get(ctx context.Context, userID, bookID uint) (*progress.Progress, bool, error)
	Update(ctx context.Context, userID, bookID uint, page int) (*progress.Progress, error)
	MarkFinished(ctx context.Context, userID, bookID uint) (*progress.Progress, error)
	Delete(ctx context.Context, userID, bookID uint) error
	History(ctx context.Context, userID uint, days, limit int) ([]progress.Progress, error)
	CurrentlyReading(ctx context.Context, userID uint, limit int) ([]progress.Progress, error)
	Finished(ctx context.Context, userID uint, limit int) ([]progress.Progress, error)
	Stats(ctx context.Context, userID uint) (*progress.Stats, error)
}

type ProgressController struct {
	service ProgressService
	books   BookGetter
}

func NewProgressController(service ProgressService, books BookGetter) *ProgressController {
	return &ProgressController{service: service, books: books}
}

type updateProgressRequest struct {
	CurrentPage *int `json:"current_page"`
}

// Get returns the user's position in a book. A book the user has not started
// is 404 PROGRESS_NOT_FOUND; an unknown book is 404 BOOK_NOT_FOUND.
// GET /user/reading-progress/:book_id
func (pc *ProgressController) Get(c *gin.Context) {
	bookID, ok := parseIDParam(c, "book_id")
	if !ok {
		return
	}
	if _, err := pc.books.Get(c.Request.Context(), bookID); err != nil {
		respondError(c, err)
		return
	}

	p, found, err := pc.service.Get(c.Request.Context(), currentUser(c), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		respondError(c, apperr.NotFound("PROGRESS_NOT_FOUND", "reading progress not found"))
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update records the page the user is on. Pages past the end are clamped.
// PUT /user/reading-progress/:book_id
func (pc *ProgressController) Update(c *gin.Context) {
	bookID, ok := parseIDParam(c, "book_id")
	if !ok {
		return
	}
	var req updateProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.CurrentPage == nil {
		respondBadRequest(c, "INVALID_PAGE", "current_page is required")
		return
	}

	p, err := pc.service.Update(c.Request.Context(), currentUser(c), bookID, *req.CurrentPage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Finish moves the user to the last page.
// POST /user/reading-progress/:book_id/finish
func (pc *ProgressController) Finish(c *gin.Context) {
	bookID, ok := parseIDParam(c, "book_id")
	if !ok {
		return
	}

	p, err := pc.service.MarkFinished(c.Request.Context(), currentUser(c), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete forgets the user's position in a book.
// DELETE /user/reading-progress/:book_id
func (pc *ProgressController) Delete(c *gin.Context) {
	bookID, ok := parseIDParam(c, "book_id")
	if !ok {
		return
	}

	if err := pc.service.Delete(c.Request.Context(), currentUser(c), bookID); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "reading progress deleted")
}

// CurrentlyReading lists unfinished books.
// GET /user/reading-progress?limit=
func (pc *ProgressController) CurrentlyReading(c *gin.Context) {
	limit, ok := queryInt(c, "limit", progress.DefaultReadingLimit)
	if !ok {
		return
	}
	items, err := pc.service.CurrentlyReading(c.Request.Context(), currentUser(c), limit)
	pc.respondList(c, items, err)
}

// History lists recently read books.
// GET /user/reading-progress/history?days=&limit=
func (pc *ProgressController) History(c *gin.Context) {
	days, ok := queryInt(c, "days", progress.DefaultHistoryDays)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", progress.DefaultHistoryLimit)
	if !ok {
		return
	}
	items, err := pc.service.History(c.Request.Context(), currentUser(c), days, limit)
	pc.respondList(c, items, err)
}

// Finished lists completed books.
// GET /user/reading-progress/finished?limit=
func (pc *ProgressController) Finished(c *gin.Context) {
	limit, ok := queryInt(c, "limit", progress.DefaultHistoryLimit)
	if !ok {
		return
	}
	items, err := pc.service.Finished(c.Request.Context(), currentUser(c), limit)
	pc.respondList(c, items, err)
}

// Stats summarizes the user's reading.
// GET /user/reading-progress/stats
func (pc *ProgressController) Stats(c *gin.Context) {
	stats, err := pc.service.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (pc *ProgressController) respondList(c *gin.Context, items []progress.Progress, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []progress.Progress{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}
