// Package reviews provides database operations for book reviews.
//
// Rating aggregation is not done here: callers run review writes and
// books.Repository.RecomputeRating in one transaction through WithTx.
package reviews

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/entities"
)

// Sort keys accepted by ListForBook.
const (
	SortCreatedAt = "created_at"
	SortRating    = "rating"
)

// Filter narrows a review listing. Zero values are ignored.
type Filter struct {
	BookID    uint
	UserID    uint
	Flagged   *bool
	MinRating int
	MaxRating int
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// Repository handles all review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the review. A second review by the same user for the same
// book fails with gorm.ErrDuplicatedKey from the unique index.
func (r *Repository) Create(ctx context.Context, review *entities.Review) error {
	return r.db.WithContext(ctx).Omit("User", "Book").Create(review).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Review, error) {
	var review entities.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// Update applies fields to the review.
func (r *Repository) Update(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&entities.Review{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Review{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns reviews matching f with their authors and books preloaded.
func (r *Repository) List(ctx context.Context, f Filter) ([]entities.Review, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&entities.Review{}), f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column := "created_at"
	if f.SortBy == SortRating {
		column = "rating"
	}
	direction := " DESC"
	if f.SortOrder == "asc" {
		direction = " ASC"
	}

	query = query.
		Preload("User").
		Preload("Book").
		Order(column + direction).
		Order("id" + direction)
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var reviews []entities.Review
	err := query.Find(&reviews).Error
	return reviews, total, err
}

func (r *Repository) applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	if f.BookID > 0 {
		query = query.Where("book_id = ?", f.BookID)
	}
	if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Flagged != nil {
		query = query.Where("is_flagged = ?", *f.Flagged)
	}
	if f.MinRating > 0 {
		query = query.Where("rating >= ?", f.MinRating)
	}
	if f.MaxRating > 0 {
		query = query.Where("rating <= ?", f.MaxRating)
	}
	return query
}

// Distribution counts the book's reviews per star rating. Every rating from
// MinRating to MaxRating is present in the result.
func (r *Repository) Distribution(ctx context.Context, bookID uint) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&entities.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	dist := make(map[int]int64, entities.MaxRating)
	for rating := entities.MinRating; rating <= entities.MaxRating; rating++ {
		dist[rating] = 0
	}
	for _, row := range rows {
		dist[row.Rating] = row.Count
	}
	return dist, nil
}

// BookIDs returns the distinct books reviewed by the given reviews.
func (r *Repository) BookIDs(ctx context.Context, reviewIDs []uint) ([]uint, error) {
	var ids []uint
	if len(reviewIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&entities.Review{}).
		Where("id IN ?", reviewIDs).
		Distinct().
		Pluck("book_id", &ids).Error
	return ids, err
}

// DeleteMany removes the reviews and returns how many existed.
func (r *Repository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&entities.Review{})
	return result.RowsAffected, result.Error
}

// SetFlagged sets the moderation flag on the reviews whose flag differs and
// returns how many changed.
func (r *Repository) SetFlagged(ctx context.Context, ids []uint, flagged bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&entities.Review{}).
		Where("id IN ? AND is_flagged = ?", ids, !flagged).
		Updates(map[string]any{"is_flagged": flagged, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}
