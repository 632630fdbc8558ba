package analytics

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/entities"
)

const (
	topLimit = 10
	// Books need this many reviews before they can rank as highest rated.
	minRankedReviews = 5
	trendMonths      = 6
)

// MonthCount is the number of rows created in a calendar month (UTC, "2006-01").
type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type Reviewer struct {
	UserID      uint   `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	ReviewCount int64  `json:"review_count"`
}

type UserAnalytics struct {
	Growth              []MonthCount `json:"user_growth"`
	MostActiveReviewers []Reviewer   `json:"most_active_reviewers"`
	ActiveUsers         int64        `json:"active_users"`
	InactiveUsers       int64        `json:"inactive_users"`
	TotalUsers          int64        `json:"total_users"`
}

type BookStat struct {
	ID            uint    `json:"id"`
	Title         string  `json:"title"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int64  `json:"count"`
}

type BookAnalytics struct {
	MostReviewed        []BookStat   `json:"most_reviewed_books"`
	HighestRated        []BookStat   `json:"highest_rated_books"`
	TopGenres           []GenreCount `json:"top_genres"`
	BooksWithoutReviews int64        `json:"books_without_reviews"`
}

type RatingCount struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

type ReviewAnalytics struct {
	RatingDistribution []RatingCount `json:"rating_distribution"`
	Trends             []MonthCount  `json:"review_trends"`
	FlaggedReviews     int64         `json:"flagged_reviews"`
}

// Users reports sign-ups over the last six months, the most prolific reviewers
// and the active/suspended split.
func (r *Repository) Users(ctx context.Context, now time.Time) (*UserAnalytics, error) {
	db := r.db.WithContext(ctx)
	out := &UserAnalytics{}

	growth, err := monthly(db.Model(&entities.User{}), now)
	if err != nil {
		return nil, err
	}
	out.Growth = growth

	var rows []struct {
		ID          uint
		Email       string
		FirstName   string
		LastName    string
		ReviewCount int64
	}
	err = db.Table("users").
		Select("users.id, users.email, users.first_name, users.last_name, COUNT(reviews.id) AS review_count").
		Joins("JOIN reviews ON reviews.user_id = users.id").
		Group("users.id, users.email, users.first_name, users.last_name").
		Order("review_count DESC").
		Order("users.id ASC").
		Limit(topLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out.MostActiveReviewers = make([]Reviewer, 0, len(rows))
	for _, row := range rows {
		out.MostActiveReviewers = append(out.MostActiveReviewers, Reviewer{
			UserID:      row.ID,
			Email:       row.Email,
			Name:        strings.TrimSpace(row.FirstName + " " + row.LastName),
			ReviewCount: row.ReviewCount,
		})
	}

	if err := db.Model(&entities.User{}).Where("is_active = ?", true).Count(&out.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entities.User{}).Where("is_active = ?", false).Count(&out.InactiveUsers).Error; err != nil {
		return nil, err
	}
	out.TotalUsers = out.ActiveUsers + out.InactiveUsers
	return out, nil
}

// Books ranks the catalog by review count and by rating, and counts books per genre.
func (r *Repository) Books(ctx context.Context) (*BookAnalytics, error) {
	db := r.db.WithContext(ctx)
	out := &BookAnalytics{MostReviewed: []BookStat{}, HighestRated: []BookStat{}, TopGenres: []GenreCount{}}

	err := db.Model(&entities.Book{}).
		Select("id, title, review_count, average_rating").
		Order("review_count DESC").
		Order("id ASC").
		Limit(topLimit).
		Scan(&out.MostReviewed).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&entities.Book{}).
		Select("id, title, review_count, average_rating").
		Where("review_count >= ?", minRankedReviews).
		Order("average_rating DESC").
		Order("id ASC").
		Limit(topLimit).
		Scan(&out.HighestRated).Error
	if err != nil {
		return nil, err
	}

	err = db.Table("genres").
		Select("genres.name AS genre, COUNT(books.id) AS count").
		Joins("JOIN book_genres ON book_genres.genre_id = genres.id").
		Joins("JOIN books ON books.id = book_genres.book_id AND books.deleted_at IS NULL").
		Group("genres.id, genres.name").
		Order("COUNT(books.id) DESC").
		Order("genres.name ASC").
		Limit(topLimit).
		Scan(&out.TopGenres).Error
	if err != nil {
		return nil, err
	}

	if err := db.Model(&entities.Book{}).Where("review_count = 0").Count(&out.BooksWithoutReviews).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Reviews reports the rating histogram, monthly review volume and the flagged count.
func (r *Repository) Reviews(ctx context.Context, now time.Time) (*ReviewAnalytics, error) {
	db := r.db.WithContext(ctx)
	out := &ReviewAnalytics{}

	var counts []RatingCount
	err := db.Model(&entities.Review{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byRating := make(map[int]int64, len(counts))
	for _, c := range counts {
		byRating[c.Rating] = c.Count
	}
	for rating := entities.MinRating; rating <= entities.MaxRating; rating++ {
		out.RatingDistribution = append(out.RatingDistribution, RatingCount{Rating: rating, Count: byRating[rating]})
	}

	if out.Trends, err = monthly(db.Model(&entities.Review{}), now); err != nil {
		return nil, err
	}
	if err := db.Model(&entities.Review{}).Where("is_flagged = ?", true).Count(&out.FlaggedReviews).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// monthly buckets created_at of the rows in query into the last trendMonths
// calendar months, the current one included. Months without rows report zero.
func monthly(query *gorm.DB, now time.Time) ([]MonthCount, error) {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)

	var stamps []time.Time
	if err := query.Where("created_at >= ?", first).Pluck("created_at", &stamps).Error; err != nil {
		return nil, err
	}

	out := make([]MonthCount, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := range out {
		month := first.AddDate(0, i, 0).Format("2006-01")
		out[i].Month = month
		index[month] = i
	}
	for _, ts := range stamps {
		if i, ok := index[ts.UTC().Format("2006-01")]; ok {
			out[i].Count++
		}
	}
	return out, nil
}
