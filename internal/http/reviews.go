package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/pagination"
	"github.com/mrlokans/booklook/internal/reviews"
)

// ReviewService defines the review operations exposed to readers.
type ReviewService interface {
	Create(ctx context.Context, userID, bookID uint, in reviews.Input) (*entities.Review, error)
	Update(ctx context.Context, actor reviews.Actor, reviewID uint, patch reviews.Patch) (*entities.Review, error)
	Delete(ctx context.Context, actor reviews.Actor, reviewID uint) (*entities.Review, error)
	ListForBook(ctx context.Context, bookID uint, page, size int, sortBy, order string) (*reviews.ListResult, error)
	ListForUser(ctx context.Context, userID uint, page, size int) (*reviews.ListResult, error)
	Recent(ctx context.Context, limit int) ([]entities.Review, error)
	Distribution(ctx context.Context, bookID uint) (*reviews.Distribution, error)
}

type ReviewsController struct {
	service ReviewService
}

func NewReviewsController(service ReviewService) *ReviewsController {
	return &ReviewsController{service: service}
}

// reviewer is the public part of a review's author.
type reviewer struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// reviewResponse hides the author's account details from public listings.
type reviewResponse struct {
	entities.Review
	User *reviewer `json:"user,omitempty"`
}

type reviewListResponse struct {
	Items []reviewResponse `json:"items"`
	pagination.Listing
}

func newReviewResponse(r entities.Review) reviewResponse {
	out := reviewResponse{Review: r}
	if r.User != nil {
		out.User = &reviewer{ID: r.User.ID, Name: r.User.FullName()}
	}
	return out
}

func newReviewList(result *reviews.ListResult) reviewListResponse {
	items := make([]reviewResponse, 0, len(result.Items))
	for _, r := range result.Items {
		items = append(items, newReviewResponse(r))
	}
	return reviewListResponse{Items: items, Listing: result.Listing}
}

func actorFrom(c *gin.Context) reviews.Actor {
	return reviews.Actor{UserID: auth.GetUserID(c), IsAdmin: auth.IsAdmin(c)}
}

// ListForBook pages through a book's reviews.
// GET /books/:id/reviews?page=&page_size=&sort_by=&sort_order=
func (rc *ReviewsController) ListForBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}

	result, err := rc.service.ListForBook(c.Request.Context(), bookID, page, size, c.Query("sort_by"), c.Query("sort_order"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewList(result))
}

// Distribution counts a book's reviews per star.
// GET /books/:id/reviews/distribution
func (rc *ReviewsController) Distribution(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dist, err := rc.service.Distribution(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dist)
}

// Recent lists the newest reviews across the catalog.
// GET /reviews/recent?limit=
func (rc *ReviewsController) Recent(c *gin.Context) {
	limit, ok := queryInt(c, "limit", reviews.DefaultRecentSize)
	if !ok {
		return
	}

	items, err := rc.service.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]reviewResponse, 0, len(items))
	for _, r := range items {
		out = append(out, newReviewResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// Create submits the user's review of a book.
// POST /books/:id/reviews
func (rc *ReviewsController) Create(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in reviews.Input
	if !bindJSON(c, &in) {
		return
	}

	review, err := rc.service.Create(c.Request.Context(), currentUser(c), bookID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, newReviewResponse(*review))
}

// Update edits a review. Only its author or an admin may do so.
// PUT /reviews/:id
func (rc *ReviewsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var patch reviews.Patch
	if !bindJSON(c, &patch) {
		return
	}

	review, err := rc.service.Update(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewResponse(*review))
}

// Delete removes a review. Only its author or an admin may do so.
// DELETE /reviews/:id
func (rc *ReviewsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := rc.service.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "review deleted")
}

// ListMine pages through the authenticated user's reviews.
// GET /user/reviews
func (rc *ReviewsController) ListMine(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}

	result, err := rc.service.ListForUser(c.Request.Context(), currentUser(c), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewList(result))
}
