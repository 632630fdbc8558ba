// Package admin implements the moderation and management operations behind
// the /admin routes. Every mutation is attributed to the acting admin in the
// audit trail.
package admin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/audit"
	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/database/analytics"
	"github.com/mrlokans/booklook/internal/database/books"
	dbreviews "github.com/mrlokans/booklook/internal/database/reviews"
	"github.com/mrlokans/booklook/internal/database/tokens"
	"github.com/mrlokans/booklook/internal/database/users"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/pagination"
	"github.com/mrlokans/booklook/internal/reviews"
)

// Audit actions
const (
	ActionUserSuspend       = "user_suspend"
	ActionUserActivate      = "user_activate"
	ActionUserDelete        = "user_delete"
	ActionUserPromote       = "user_promote"
	ActionUserRevokeAdmin   = "user_revoke_admin"
	ActionUserResetPassword = "user_reset_password"
	ActionReviewFlag        = "review_flag"
	ActionReviewApprove     = "review_approve"
	ActionReviewDelete      = "review_delete"
	ActionReviewBulkDelete  = "review_bulk_delete"
	ActionReviewBulkFlag    = "review_bulk_flag"
	ActionReviewBulkApprove = "review_bulk_approve"
	ActionBookCreate        = "book_create"
	ActionBookUpdate        = "book_update"
	ActionBookDelete        = "book_delete"
	ActionBookSetContent    = "book_set_content"
	ActionBookBulkUpdate    = "book_bulk_update"
	ActionUserImport        = "user_import"
	ActionBookImport        = "book_import"
	ActionReviewImport      = "review_import"
)

const (
	entityUser   = "user"
	entityReview = "review"
	entityBook   = "book"
)

// UserQuery filters the user listing.
type UserQuery struct {
	Page     int
	PageSize int
	Search   string
	IsActive *bool
	IsAdmin  *bool
}

type UserList struct {
	Items []entities.User `json:"items"`
	pagination.Listing
}

// UserDetail is a user with counts of what they have produced.
type UserDetail struct {
	User       *entities.User `json:"user"`
	Statistics users.Activity `json:"statistics"`
}

// ReviewQuery filters the moderation listing.
type ReviewQuery struct {
	Page      int
	PageSize  int
	Flagged   *bool
	BookID    uint
	UserID    uint
	MinRating int
	MaxRating int
}

// BulkResult reports how many of the requested rows changed.
type BulkResult struct {
	Affected       int64 `json:"affected"`
	TotalRequested int   `json:"total_requested"`
}

type Service struct {
	db        *gorm.DB
	users     *users.Repository
	books     *books.Repository
	tokens    *tokens.Repository
	reviewDB  *dbreviews.Repository
	analytics *analytics.Repository
	auth      *auth.Service
	reviews   *reviews.Service
	catalog   *catalog.Service
	audit     *audit.Service
	pages     config.Catalog
	now       func() time.Time
}

func NewService(
	db *gorm.DB,
	authService *auth.Service,
	reviewService *reviews.Service,
	catalogService *catalog.Service,
	auditService *audit.Service,
	cfg config.Catalog,
) *Service {
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = config.MaxCatalogPageSize
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	return &Service{
		db:        db,
		users:     users.NewRepository(db),
		books:     books.NewRepository(db),
		tokens:    tokens.NewRepository(db),
		reviewDB:  dbreviews.NewRepository(db),
		analytics: analytics.NewRepository(db),
		auth:      authService,
		reviews:   reviewService,
		catalog:   catalogService,
		audit:     auditService,
		pages:     cfg,
		now:       time.Now,
	}
}

// guardSelf rejects destructive actions an admin aims at their own account.
func guardSelf(actorID, targetID uint) error {
	if actorID == targetID {
		return apperr.Forbidden("SELF_ACTION_FORBIDDEN", "you cannot perform this action on your own account")
	}
	return nil
}

// ListUsers pages through users, newest first.
func (s *Service) ListUsers(ctx context.Context, q UserQuery) (*UserList, error) {
	page, size, offset := pagination.Window(q.Page, q.PageSize, s.pages.DefaultPageSize, s.pages.MaxPageSize)
	items, total, err := s.users.List(ctx, users.Filter{
		Search:   q.Search,
		IsActive: q.IsActive,
		IsAdmin:  q.IsAdmin,
		Limit:    size,
		Offset:   offset,
	})
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	if items == nil {
		items = []entities.User{}
	}
	return &UserList{Items: items, Listing: pagination.NewListing(total, page, size)}, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*UserDetail, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	activity, err := s.users.Activity(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return &UserDetail{User: user, Statistics: activity}, nil
}

// SuspendUser deactivates the account and revokes all of its bearer tokens.
// Suspending an already suspended user succeeds.
func (s *Service) SuspendUser(ctx context.Context, actorID, id uint) (*entities.User, error) {
	if err := guardSelf(actorID, id); err != nil {
		return nil, err
	}

	var revoked int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Update(ctx, id, map[string]any{"is_active": false}); err != nil {
			return err
		}
		var err error
		revoked, err = s.tokens.WithTx(tx).DeleteForUser(ctx, id)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}

	s.auth.InvalidateUser(ctx, id)
	s.audit.LogAdmin(ctx, actorID, ActionUserSuspend, entityUser, id, "suspended user",
		map[string]any{"tokens_revoked": revoked})
	log.Info("User suspended", zap.Uint("user_id", id), zap.Uint("actor_id", actorID), zap.Int64("tokens_revoked", revoked))
	return s.reload(ctx, id)
}

func (s *Service) ActivateUser(ctx context.Context, actorID, id uint) (*entities.User, error) {
	if err := s.users.Update(ctx, id, map[string]any{"is_active": true}); err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	s.auth.InvalidateUser(ctx, id)
	s.audit.LogAdmin(ctx, actorID, ActionUserActivate, entityUser, id, "activated user", nil)
	return s.reload(ctx, id)
}

// DeleteUser removes the user and everything they own, then recomputes the
// ratings of the books they had reviewed, all in one transaction.
func (s *Service) DeleteUser(ctx context.Context, actorID, id uint) error {
	if err := guardSelf(actorID, id); err != nil {
		return err
	}

	var bookIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if bookIDs, err = s.users.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		for _, bookID := range bookIDs {
			if _, err := s.reviews.RecomputeTx(ctx, tx, bookID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, "USER_NOT_FOUND", "")
	}

	s.auth.InvalidateUser(ctx, id)
	for _, bookID := range bookIDs {
		s.reviews.Invalidate(ctx, bookID)
	}
	s.audit.LogAdmin(ctx, actorID, ActionUserDelete, entityUser, id, "deleted user",
		map[string]any{"books_recomputed": len(bookIDs)})
	log.Info("User deleted", zap.Uint("user_id", id), zap.Uint("actor_id", actorID))
	return nil
}

func (s *Service) PromoteUser(ctx context.Context, actorID, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	if user.IsAdmin {
		return nil, apperr.Conflict("ALREADY_ADMIN", "user is already an admin")
	}
	return s.setAdmin(ctx, actorID, id, true, ActionUserPromote)
}

// RevokeAdmin removes the admin flag. An admin cannot demote themselves.
func (s *Service) RevokeAdmin(ctx context.Context, actorID, id uint) (*entities.User, error) {
	if err := guardSelf(actorID, id); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	if !user.IsAdmin {
		return nil, apperr.Conflict("NOT_ADMIN", "user is not an admin")
	}
	return s.setAdmin(ctx, actorID, id, false, ActionUserRevokeAdmin)
}

func (s *Service) setAdmin(ctx context.Context, actorID, id uint, isAdmin bool, action string) (*entities.User, error) {
	if err := s.users.Update(ctx, id, map[string]any{"is_admin": isAdmin}); err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	s.auth.InvalidateUser(ctx, id)
	s.audit.LogAdmin(ctx, actorID, action, entityUser, id, fmt.Sprintf("set admin=%t", isAdmin), nil)
	return s.reload(ctx, id)
}

// ResetPassword sets a new password and signs the user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, actorID, id uint, password string) error {
	if err := s.auth.SetPassword(ctx, id, password); err != nil {
		return err
	}
	s.audit.LogAdmin(ctx, actorID, ActionUserResetPassword, entityUser, id, "reset password", nil)
	return nil
}

func (s *Service) reload(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	return user, nil
}

// ListReviews pages through reviews for moderation, newest first.
func (s *Service) ListReviews(ctx context.Context, q ReviewQuery) (*reviews.ListResult, error) {
	if q.MinRating != 0 && !entities.ValidRating(q.MinRating) || q.MaxRating != 0 && !entities.ValidRating(q.MaxRating) {
		return nil, apperr.Validation("INVALID_RATING", "rating filters must be between 1 and 5")
	}
	return s.reviews.List(ctx, dbreviews.Filter{
		BookID:    q.BookID,
		UserID:    q.UserID,
		Flagged:   q.Flagged,
		MinRating: q.MinRating,
		MaxRating: q.MaxRating,
	}, q.Page, q.PageSize)
}

func (s *Service) FlaggedReviews(ctx context.Context, page, size int) (*reviews.ListResult, error) {
	flagged := true
	return s.ListReviews(ctx, ReviewQuery{Page: page, PageSize: size, Flagged: &flagged})
}

// FlagReview marks a review for moderation.
func (s *Service) FlagReview(ctx context.Context, actorID, id uint) (*entities.Review, error) {
	review, err := s.reviewDB.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "REVIEW_NOT_FOUND", "")
	}
	if review.IsFlagged {
		return nil, apperr.Conflict("ALREADY_FLAGGED", "review is already flagged")
	}
	return s.setFlag(ctx, actorID, review, true, ActionReviewFlag)
}

// ApproveReview clears the moderation flag. Approving an unflagged review
// succeeds.
func (s *Service) ApproveReview(ctx context.Context, actorID, id uint) (*entities.Review, error) {
	review, err := s.reviewDB.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "REVIEW_NOT_FOUND", "")
	}
	return s.setFlag(ctx, actorID, review, false, ActionReviewApprove)
}

func (s *Service) setFlag(ctx context.Context, actorID uint, review *entities.Review, flagged bool, action string) (*entities.Review, error) {
	if _, err := s.reviewDB.SetFlagged(ctx, []uint{review.ID}, flagged); err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	review.IsFlagged = flagged
	s.audit.LogAdmin(ctx, actorID, action, entityReview, review.ID, "", map[string]any{"book_id": review.BookID})
	return review, nil
}

// DeleteReview removes any review and recomputes the book's rating.
func (s *Service) DeleteReview(ctx context.Context, actorID, id uint) error {
	review, err := s.reviews.Delete(ctx, reviews.Actor{UserID: actorID, IsAdmin: true}, id)
	if err != nil {
		return err
	}
	s.audit.LogAdmin(ctx, actorID, ActionReviewDelete, entityReview, id, "",
		map[string]any{"book_id": review.BookID, "author_id": review.UserID})
	return nil
}

func (s *Service) BulkDeleteReviews(ctx context.Context, actorID uint, ids []uint) (*BulkResult, error) {
	if err := validateIDs("review_ids", ids); err != nil {
		return nil, err
	}
	deleted, err := s.reviews.BulkDelete(ctx, ids)
	if err != nil {
		return nil, err
	}
	s.audit.LogAdmin(ctx, actorID, ActionReviewBulkDelete, entityReview, 0,
		fmt.Sprintf("deleted %d of %d reviews", deleted, len(ids)), map[string]any{"review_ids": ids})
	return &BulkResult{Affected: deleted, TotalRequested: len(ids)}, nil
}

func (s *Service) BulkFlagReviews(ctx context.Context, actorID uint, ids []uint) (*BulkResult, error) {
	return s.bulkSetFlag(ctx, actorID, ids, true, ActionReviewBulkFlag)
}

func (s *Service) BulkApproveReviews(ctx context.Context, actorID uint, ids []uint) (*BulkResult, error) {
	return s.bulkSetFlag(ctx, actorID, ids, false, ActionReviewBulkApprove)
}

// bulkSetFlag counts only reviews whose flag actually changed.
func (s *Service) bulkSetFlag(ctx context.Context, actorID uint, ids []uint, flagged bool, action string) (*BulkResult, error) {
	if err := validateIDs("review_ids", ids); err != nil {
		return nil, err
	}
	changed, err := s.reviewDB.SetFlagged(ctx, ids, flagged)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	s.audit.LogAdmin(ctx, actorID, action, entityReview, 0,
		fmt.Sprintf("changed %d of %d reviews", changed, len(ids)), map[string]any{"review_ids": ids})
	return &BulkResult{Affected: changed, TotalRequested: len(ids)}, nil
}

func validateIDs(field string, ids []uint) error {
	if len(ids) == 0 {
		return apperr.Validation("EMPTY_SELECTION", field+" must not be empty")
	}
	return nil
}

func (s *Service) CreateBook(ctx context.Context, actorID uint, in catalog.BookInput) (*entities.Book, error) {
	book, err := s.catalog.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.audit.LogAdmin(ctx, actorID, ActionBookCreate, entityBook, book.ID, book.Title, nil)
	return book, nil
}

func (s *Service) UpdateBook(ctx context.Context, actorID, id uint, patch catalog.BookPatch) (*entities.Book, error) {
	book, err := s.catalog.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.audit.LogAdmin(ctx, actorID, ActionBookUpdate, entityBook, id, book.Title, nil)
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, actorID, id uint) error {
	book, err := s.catalog.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.audit.LogAdmin(ctx, actorID, ActionBookDelete, entityBook, id, book.Title, nil)
	return nil
}

// SetBookContent replaces the book's text and repaginates it.
func (s *Service) SetBookContent(ctx context.Context, actorID, id uint, text string) (*entities.Book, error) {
	book, err := s.catalog.SetContent(ctx, id, text)
	if err != nil {
		return nil, err
	}
	s.audit.LogAdmin(ctx, actorID, ActionBookSetContent, entityBook, id, book.Title,
		map[string]any{"word_count": book.WordCount, "total_pages": book.TotalPages})
	return book, nil
}

func (s *Service) AnalyticsOverview(ctx context.Context) (*analytics.Overview, error) {
	overview, err := s.analytics.Overview(ctx, s.now())
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return overview, nil
}
