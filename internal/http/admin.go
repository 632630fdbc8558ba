package http

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/booklook/internal/admin"
	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/database/analytics"
	dbaudit "github.com/mrlokans/booklook/internal/database/audit"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/exporters"
	"github.com/mrlokans/booklook/internal/importers"
	"github.com/mrlokans/booklook/internal/pagination"
	"github.com/mrlokans/booklook/internal/reviews"
	"github.com/mrlokans/booklook/internal/tasks"
)

// AdminService defines the management operations behind /admin.
type AdminService interface {
	ListUsers(ctx context.Context, q admin.UserQuery) (*admin.UserList, error)
	GetUser(ctx context.Context, id uint) (*admin.UserDetail, error)
	SuspendUser(ctx context.Context, actorID, id uint) (*entities.User, error)
	ActivateUser(ctx context.Context, actorID, id uint) (*entities.User, error)
	DeleteUser(ctx context.Context, actorID, id uint) error
	PromoteUser(ctx context.Context, actorID, id uint) (*entities.User, error)
	RevokeAdmin(ctx context.Context, actorID, id uint) (*entities.User, error)
	ResetPassword(ctx context.Context, actorID, id uint, password string) error

	ListReviews(ctx context.Context, q admin.ReviewQuery) (*reviews.ListResult, error)
	FlaggedReviews(ctx context.Context, page, size int) (*reviews.ListResult, error)
	FlagReview(ctx context.Context, actorID, id uint) (*entities.Review, error)
	ApproveReview(ctx context.Context, actorID, id uint) (*entities.Review, error)
	DeleteReview(ctx context.Context, actorID, id uint) error
	BulkDeleteReviews(ctx context.Context, actorID uint, ids []uint) (*admin.BulkResult, error)
	BulkFlagReviews(ctx context.Context, actorID uint, ids []uint) (*admin.BulkResult, error)
	BulkApproveReviews(ctx context.Context, actorID uint, ids []uint) (*admin.BulkResult, error)

	CreateBook(ctx context.Context, actorID uint, in catalog.BookInput) (*entities.Book, error)
	UpdateBook(ctx context.Context, actorID, id uint, patch catalog.BookPatch) (*entities.Book, error)
	DeleteBook(ctx context.Context, actorID, id uint) error
	SetBookContent(ctx context.Context, actorID, id uint, text string) (*entities.Book, error)

	BulkUpdateBooks(ctx context.Context, actorID uint, req admin.BookBulkUpdate) (*admin.BulkResult, error)

	AnalyticsOverview(ctx context.Context) (*analytics.Overview, error)
	AnalyticsUsers(ctx context.Context) (*analytics.UserAnalytics, error)
	AnalyticsBooks(ctx context.Context) (*analytics.BookAnalytics, error)
	AnalyticsReviews(ctx context.Context) (*analytics.ReviewAnalytics, error)

	ExportUsersCSV(ctx context.Context, w io.Writer) (exporters.ExportResult, error)
	ExportBooksCSV(ctx context.Context, w io.Writer) (exporters.ExportResult, error)
	ExportReviewsCSV(ctx context.Context, w io.Writer) (exporters.ExportResult, error)
	ImportUsersCSV(ctx context.Context, actorID uint, r io.Reader) (*importers.Result, error)
	ImportBooksCSV(ctx context.Context, actorID uint, r io.Reader) (*importers.Result, error)
	ImportReviewsCSV(ctx context.Context, actorID uint, r io.Reader) (*importers.Result, error)
}

// AuditReader lists audit events.
type AuditReader interface {
	Events(ctx context.Context, f dbaudit.Filter) ([]entities.AuditEvent, int64, error)
}

type AdminController struct {
	service AdminService
	audit   AuditReader
	tasks   TaskEnqueuer
	paging  config.Catalog
}

// NewAdminController creates a new AdminController. tasks may be nil when
// the background queue is disabled; the enqueueing endpoints then answer 503.
func NewAdminController(service AdminService, audit AuditReader, tasks TaskEnqueuer, paging config.Catalog) *AdminController {
	return &AdminController{service: service, audit: audit, tasks: tasks, paging: paging}
}

type passwordResetRequest struct {
	Password string `json:"password"`
}

type bulkReviewRequest struct {
	ReviewIDs []uint `json:"review_ids"`
}

type bookContentRequest struct {
	Text string `json:"text"`
}

type importRequest struct {
	Path string `json:"path"`
}

type recomputeRequest struct {
	BookID uint `json:"book_id"`
}

type auditListResponse struct {
	Items []entities.AuditEvent `json:"items"`
	pagination.Listing
}

// --- Users ---

// ListUsers pages through accounts.
// GET /admin/users?page=&page_size=&search=&is_active=&is_admin=
func (ac *AdminController) ListUsers(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}
	isActive, ok := queryBool(c, "is_active")
	if !ok {
		return
	}
	isAdmin, ok := queryBool(c, "is_admin")
	if !ok {
		return
	}

	result, err := ac.service.ListUsers(c.Request.Context(), admin.UserQuery{
		Page:     page,
		PageSize: size,
		Search:   c.Query("search"),
		IsActive: isActive,
		IsAdmin:  isAdmin,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUser returns an account with its activity counts.
// GET /admin/users/:id
func (ac *AdminController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := ac.service.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SuspendUser PUT /admin/users/:id/suspend
func (ac *AdminController) SuspendUser(c *gin.Context) {
	ac.userAction(c, ac.service.SuspendUser)
}

// ActivateUser PUT /admin/users/:id/activate
func (ac *AdminController) ActivateUser(c *gin.Context) {
	ac.userAction(c, ac.service.ActivateUser)
}

// PromoteUser PUT /admin/users/:id/promote
func (ac *AdminController) PromoteUser(c *gin.Context) {
	ac.userAction(c, ac.service.PromoteUser)
}

// RevokeAdmin PUT /admin/users/:id/revoke-admin
func (ac *AdminController) RevokeAdmin(c *gin.Context) {
	ac.userAction(c, ac.service.RevokeAdmin)
}

func (ac *AdminController) userAction(c *gin.Context, action func(ctx context.Context, actorID, id uint) (*entities.User, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := action(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account with its reviews, progress and favourites.
// DELETE /admin/users/:id
func (ac *AdminController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.service.DeleteUser(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "user deleted")
}

// ResetPassword sets a new password and signs the user out everywhere.
// PUT /admin/users/:id/password
func (ac *AdminController) ResetPassword(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req passwordResetRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ac.service.ResetPassword(c.Request.Context(), currentUser(c), id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "password reset")
}

// --- Reviews ---

// ListReviews filters reviews for moderation.
// GET /admin/reviews?flagged=&book_id=&user_id=&min_rating=&max_rating=&page=&page_size=
func (ac *AdminController) ListReviews(c *gin.Context) {
	q := admin.ReviewQuery{}
	var ok bool
	if q.Page, ok = queryInt(c, "page", 1); !ok {
		return
	}
	if q.PageSize, ok = queryInt(c, "page_size", 0); !ok {
		return
	}
	if q.Flagged, ok = queryBool(c, "flagged"); !ok {
		return
	}
	if q.MinRating, ok = queryInt(c, "min_rating", 0); !ok {
		return
	}
	if q.MaxRating, ok = queryInt(c, "max_rating", 0); !ok {
		return
	}
	bookID, ok := queryInt(c, "book_id", 0)
	if !ok {
		return
	}
	userID, ok := queryInt(c, "user_id", 0)
	if !ok {
		return
	}
	if bookID < 0 || userID < 0 {
		respondBadRequest(c, "INVALID_PARAMETER", "book_id and user_id must be positive")
		return
	}
	q.BookID, q.UserID = uint(bookID), uint(userID)

	result, err := ac.service.ListReviews(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FlaggedReviews GET /admin/reviews/flagged
func (ac *AdminController) FlaggedReviews(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}
	result, err := ac.service.FlaggedReviews(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FlagReview PUT /admin/reviews/:id/flag
func (ac *AdminController) FlagReview(c *gin.Context) {
	ac.reviewAction(c, ac.service.FlagReview)
}

// ApproveReview PUT /admin/reviews/:id/approve
func (ac *AdminController) ApproveReview(c *gin.Context) {
	ac.reviewAction(c, ac.service.ApproveReview)
}

func (ac *AdminController) reviewAction(c *gin.Context, action func(ctx context.Context, actorID, id uint) (*entities.Review, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	review, err := action(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// DeleteReview DELETE /admin/reviews/:id
func (ac *AdminController) DeleteReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.service.DeleteReview(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "review deleted")
}

// BulkDeleteReviews POST /admin/reviews/bulk-delete
func (ac *AdminController) BulkDeleteReviews(c *gin.Context) {
	ac.bulkAction(c, ac.service.BulkDeleteReviews)
}

// BulkFlagReviews POST /admin/reviews/bulk-flag
func (ac *AdminController) BulkFlagReviews(c *gin.Context) {
	ac.bulkAction(c, ac.service.BulkFlagReviews)
}

// BulkApproveReviews POST /admin/reviews/bulk-approve
func (ac *AdminController) BulkApproveReviews(c *gin.Context) {
	ac.bulkAction(c, ac.service.BulkApproveReviews)
}

func (ac *AdminController) bulkAction(c *gin.Context, action func(ctx context.Context, actorID uint, ids []uint) (*admin.BulkResult, error)) {
	var req bulkReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := action(c.Request.Context(), currentUser(c), req.ReviewIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Books ---

// CreateBook POST /admin/books
func (ac *AdminController) CreateBook(c *gin.Context) {
	var in catalog.BookInput
	if !bindJSON(c, &in) {
		return
	}
	book, err := ac.service.CreateBook(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, book)
}

// UpdateBook PUT /admin/books/:id
func (ac *AdminController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var patch catalog.BookPatch
	if !bindJSON(c, &patch) {
		return
	}
	book, err := ac.service.UpdateBook(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook DELETE /admin/books/:id
func (ac *AdminController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.service.DeleteBook(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "book deleted")
}

// SetBookContent replaces the book's text and repaginates it.
// PUT /admin/books/:id/content
func (ac *AdminController) SetBookContent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req bookContentRequest
	if !bindJSON(c, &req) {
		return
	}
	book, err := ac.service.SetBookContent(c.Request.Context(), currentUser(c), id, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// --- Background work ---

// ImportCatalog enqueues a JSONL import of a file on the server.
// POST /admin/books/import
func (ac *AdminController) ImportCatalog(c *gin.Context) {
	var req importRequest
	if !bindJSON(c, &req) {
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		respondBadRequest(c, "INVALID_PATH", "path is required")
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		respondBadRequest(c, "FILE_NOT_FOUND", "catalog file not found")
		return
	}

	ac.enqueue(c, tasks.ImportCatalogTask{Path: path, ActorID: currentUser(c)}, "import queued")
}

// RecomputeRatings enqueues a rating rebuild for one book or all of them.
// POST /admin/maintenance/recompute-ratings
func (ac *AdminController) RecomputeRatings(c *gin.Context) {
	var req recomputeRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	ac.enqueue(c, tasks.RecomputeRatingsTask{BookID: req.BookID}, "recompute queued")
}

func (ac *AdminController) enqueue(c *gin.Context, task backlite.Task, message string) {
	if ac.tasks == nil {
		respondError(c, apperr.Unavailable("TASKS_DISABLED", "background tasks are disabled"))
		return
	}
	id, err := ac.tasks.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue "+task.Config().Name)
		return
	}
	respondAccepted(c, message, gin.H{"task_id": id, "queue": task.Config().Name})
}

// --- Reporting ---

// AnalyticsOverview GET /admin/analytics/overview
func (ac *AdminController) AnalyticsOverview(c *gin.Context) {
	overview, err := ac.service.AnalyticsOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// AuditLog pages through the audit trail, newest first.
// GET /admin/audit?page=&page_size=&actor_id=&event_type=&entity_type=&since_hours=
func (ac *AdminController) AuditLog(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}
	actorID, ok := queryInt(c, "actor_id", 0)
	if !ok {
		return
	}
	sinceHours, ok := queryInt(c, "since_hours", 0)
	if !ok {
		return
	}
	if actorID < 0 || sinceHours < 0 {
		respondBadRequest(c, "INVALID_PARAMETER", "actor_id and since_hours must be positive")
		return
	}
	page, size, offset := pagination.Window(page, size, ac.paging.DefaultPageSize, ac.paging.MaxPageSize)

	f := dbaudit.Filter{
		ActorID:    uint(actorID),
		EventType:  entities.AuditEventType(c.Query("event_type")),
		EntityType: c.Query("entity_type"),
		Limit:      size,
		Offset:     offset,
	}
	if sinceHours > 0 {
		f.Since = time.Now().Add(-time.Duration(sinceHours) * time.Hour)
	}

	events, total, err := ac.audit.Events(c.Request.Context(), f)
	if err != nil {
		respondError(c, apperr.FromDB(err, "", ""))
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}
	c.JSON(http.StatusOK, auditListResponse{Items: events, Listing: pagination.NewListing(total, page, size)})
}
