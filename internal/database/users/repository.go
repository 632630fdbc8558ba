// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(ctx, "reader@example.com")
package users

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/database"
	"github.com/mrlokans/booklook/internal/entities"
)

// Filter narrows a user listing.
type Filter struct {
	Search   string // matches email, first or last name
	IsActive *bool
	IsAdmin  *bool
	Limit    int
	Offset   int
}

// Activity counts what a user has produced.
type Activity struct {
	ReviewCount     int64 `json:"review_count"`
	FavouriteCount  int64 `json:"favourite_count"`
	BooksInProgress int64 `json:"books_in_progress"`
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// NormalizeEmail lowercases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user. A taken email surfaces as gorm.ErrDuplicatedKey.
func (r *Repository) Create(ctx context.Context, user *entities.User) error {
	user.Email = NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users matching f, newest first, and the total match count.
func (r *Repository) List(ctx context.Context, f Filter) ([]entities.User, int64, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&entities.User{})

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + database.EscapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			"("+database.Like(db, "LOWER(email)")+" OR "+
				database.Like(db, "LOWER(first_name)")+" OR "+
				database.Like(db, "LOWER(last_name)")+")",
			pattern, pattern, pattern,
		)
	}
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}
	if f.IsAdmin != nil {
		query = query.Where("is_admin = ?", *f.IsAdmin)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entities.User
	query = query.Order("created_at DESC").Order("id DESC")
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	err := query.Find(&users).Error
	return users, total, err
}

// Update applies fields to the user. It returns gorm.ErrRecordNotFound when no
// user has the id.
func (r *Repository) Update(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordLogin resets the failure counter after a successful login.
func (r *Repository) RecordLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// RecordFailedLogin increments the failure counter and, when lockedUntil is
// set, locks the account until then.
func (r *Repository) RecordFailedLogin(ctx context.Context, id uint, lockedUntil *time.Time) error {
	updates := map[string]any{
		"failed_login_count": gorm.Expr("failed_login_count + 1"),
	}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(updates).Error
}

// Activity counts the user's reviews, favourites and books in progress.
func (r *Repository) Activity(ctx context.Context, id uint) (Activity, error) {
	db := r.db.WithContext(ctx)
	var activity Activity

	if err := db.Model(&entities.Review{}).Where("user_id = ?", id).Count(&activity.ReviewCount).Error; err != nil {
		return activity, err
	}
	if err := db.Model(&entities.Favourite{}).Where("user_id = ?", id).Count(&activity.FavouriteCount).Error; err != nil {
		return activity, err
	}
	err := db.Model(&entities.ReadingProgress{}).Where("user_id = ?", id).Count(&activity.BooksInProgress).Error
	return activity, err
}

// Delete removes the user with their reviews, progress, favourites and tokens.
// It returns the ids of the books whose reviews were removed, so the caller can
// recompute their ratings in the same transaction.
func (r *Repository) Delete(ctx context.Context, id uint) ([]uint, error) {
	db := r.db.WithContext(ctx)

	var bookIDs []uint
	if err := db.Model(&entities.Review{}).Where("user_id = ?", id).Distinct().Pluck("book_id", &bookIDs).Error; err != nil {
		return nil, err
	}

	dependents := []any{
		&entities.Review{},
		&entities.ReadingProgress{},
		&entities.Favourite{},
		&entities.APIToken{},
	}
	for _, model := range dependents {
		if err := db.Where("user_id = ?", id).Delete(model).Error; err != nil {
			return nil, err
		}
	}

	result := db.Delete(&entities.User{}, id)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return bookIDs, nil
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error
	return count, err
}
