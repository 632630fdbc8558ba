// Package analytics runs the aggregate queries behind the admin dashboard.
package analytics

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/entities"
)

// Overview is a snapshot of catalog and community totals.
type Overview struct {
	TotalBooks          int64     `json:"total_books"`
	TotalUsers          int64     `json:"total_users"`
	ActiveUsers         int64     `json:"active_users"`
	AdminUsers          int64     `json:"admin_users"`
	TotalReviews        int64     `json:"total_reviews"`
	FlaggedReviews      int64     `json:"flagged_reviews"`
	ReadingSessions     int64     `json:"reading_sessions"`
	ActiveReaders       int64     `json:"active_readers"`
	NewUsersLast7d      int64     `json:"new_users_last_7_days"`
	NewReviewsLast7d    int64     `json:"new_reviews_last_7_days"`
	AverageBookRating   float64   `json:"average_book_rating"`
	AverageReviewRating float64   `json:"average_review_rating"`
	GeneratedAt         time.Time `json:"generated_at"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Overview computes the dashboard totals as of now. Averages are rounded to
// two decimals; the book average only covers books that have reviews.
func (r *Repository) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	db := r.db.WithContext(ctx)
	weekAgo := now.AddDate(0, 0, -7)
	o := &Overview{GeneratedAt: now}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&o.TotalBooks, db.Model(&entities.Book{})},
		{&o.TotalUsers, db.Model(&entities.User{})},
		{&o.ActiveUsers, db.Model(&entities.User{}).Where("is_active = ?", true)},
		{&o.AdminUsers, db.Model(&entities.User{}).Where("is_admin = ?", true)},
		{&o.TotalReviews, db.Model(&entities.Review{})},
		{&o.FlaggedReviews, db.Model(&entities.Review{}).Where("is_flagged = ?", true)},
		{&o.ReadingSessions, db.Model(&entities.ReadingProgress{})},
		{&o.ActiveReaders, db.Model(&entities.ReadingProgress{}).Distinct("user_id")},
		{&o.NewUsersLast7d, db.Model(&entities.User{}).Where("created_at >= ?", weekAgo)},
		{&o.NewReviewsLast7d, db.Model(&entities.Review{}).Where("created_at >= ?", weekAgo)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	var bookAvg, reviewAvg float64
	if err := db.Model(&entities.Book{}).
		Where("review_count > 0").
		Select("COALESCE(AVG(average_rating), 0)").
		Scan(&bookAvg).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entities.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&reviewAvg).Error; err != nil {
		return nil, err
	}
	o.AverageBookRating = Round2(bookAvg)
	o.AverageReviewRating = Round2(reviewAvg)

	return o, nil
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
