// Package progress stores the last page each user viewed in each book.
package progress

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/booklook/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Upsert records page as the user's position in the book. The unique
// (user_id, book_id) index makes concurrent first writes collapse into one row;
// the later write wins.
func (r *Repository) Upsert(ctx context.Context, userID, bookID uint, page int, at time.Time) (*entities.ReadingProgress, error) {
	row := &entities.ReadingProgress{
		UserID:      userID,
		BookID:      bookID,
		CurrentPage: page,
		LastReadAt:  at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	err := r.db.WithContext(ctx).Omit("User", "Book").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_page", "last_read_at", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, bookID)
}

// Get returns the user's progress in the book with the book preloaded.
func (r *Repository) Get(ctx context.Context, userID, bookID uint) (*entities.ReadingProgress, error) {
	var row entities.ReadingProgress
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Delete(ctx context.Context, userID, bookID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&entities.ReadingProgress{})
	return result.RowsAffected, result.Error
}

// ListForUser returns the user's progress rows, most recently read first.
// A non-zero since keeps only rows read after it. Rows of deleted books are
// skipped.
func (r *Repository) ListForUser(ctx context.Context, userID uint, since time.Time, limit int) ([]entities.ReadingProgress, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN books ON books.id = reading_progress.book_id AND books.deleted_at IS NULL").
		Preload("Book").
		Where("reading_progress.user_id = ?", userID).
		Order("reading_progress.last_read_at DESC").
		Order("reading_progress.id DESC")
	if !since.IsZero() {
		query = query.Where("reading_progress.last_read_at >= ?", since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []entities.ReadingProgress
	err := query.Find(&rows).Error
	return rows, err
}
