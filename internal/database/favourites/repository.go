// Package favourites provides database operations for users' favourite books.
//
// Adding and removing are idempotent: adding an existing favourite and removing
// a missing one both succeed without changes.
//
// # Usage
//
//	repo := favourites.NewRepository(db)
//	items, total, err := repo.List(ctx, userID, 20, 0)
package favourites

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/booklook/internal/entities"
)

// Repository handles all favourites database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new favourites repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add marks the book as a favourite of the user.
func (r *Repository) Add(ctx context.Context, userID, bookID uint) error {
	return r.db.WithContext(ctx).
		Omit("User", "Book").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entities.Favourite{UserID: userID, BookID: bookID}).Error
}

// Remove unmarks the book and reports whether a favourite existed.
func (r *Repository) Remove(ctx context.Context, userID, bookID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&entities.Favourite{})
	return result.RowsAffected > 0, result.Error
}

// IsFavourite reports whether the user has marked the book.
func (r *Repository) IsFavourite(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Favourite{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// List returns the user's favourites with their books, newest first. Books that
// were deleted are left out.
func (r *Repository) List(ctx context.Context, userID uint, limit, offset int) ([]entities.Favourite, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.Favourite{}).
		Joins("JOIN books ON books.id = favourites.book_id AND books.deleted_at IS NULL").
		Where("favourites.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Book").Order("favourites.created_at DESC").Order("favourites.book_id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var favourites []entities.Favourite
	err := query.Find(&favourites).Error
	return favourites, total, err
}

// Count returns how many live books the user has marked.
func (r *Repository) Count(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Favourite{}).
		Joins("JOIN books ON books.id = favourites.book_id AND books.deleted_at IS NULL").
		Where("favourites.user_id = ?", userID).
		Count(&count).Error
	return count, err
}
