// Package progress tracks where each user is in each book.
//
// Only the page number and timestamp are stored. Completion percentage,
// status and remaining pages are derived on every read from the book's
// current page count at the default words-per-page, so a re-import of the
// text never leaves stale percentages behind.
package progress

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/database/progress"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/pagination"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

const (
	DefaultHistoryDays  = 30
	DefaultHistoryLimit = 20
	DefaultReadingLimit = 10
	recentActivityDays  = 30
)

// Progress is a stored position enriched with the derived reading metrics.
type Progress struct {
	BookID              uint      `json:"book_id"`
	BookTitle           string    `json:"book_title"`
	Authors             []string  `json:"authors"`
	ImageURL            string    `json:"image_url,omitempty"`
	CurrentPage         int       `json:"current_page"`
	TotalPages          int       `json:"total_pages"`
	WordsPerPage        int       `json:"words_per_page"`
	PercentComplete     float64   `json:"progress_percentage"`
	Status              Status    `json:"status"`
	PagesRemaining      int       `json:"pages_remaining"`
	CurrentWordPosition int       `json:"current_word_position"`
	LastReadAt          time.Time `json:"last_read_at"`
	CreatedAt           time.Time `json:"created_at"`
}

type Stats struct {
	TotalStarted    int     `json:"total_books_started"`
	Finished        int     `json:"books_finished"`
	InProgress      int     `json:"currently_reading"`
	AverageProgress float64 `json:"average_progress"`
	RecentActivity  int     `json:"recent_activity_count"`
	CompletionRate  float64 `json:"completion_rate"`
}

type Service struct {
	repo   *progress.Repository
	engine *pagination.Engine
	now    func() time.Time
}

func NewService(repo *progress.Repository, engine *pagination.Engine) *Service {
	return &Service{repo: repo, engine: engine, now: time.Now}
}

// Get returns the user's position in the book. A missing row is reported
// through found and is not an error.
func (s *Service) Get(ctx context.Context, userID, bookID uint) (*Progress, bool, error) {
	row, err := s.repo.Get(ctx, userID, bookID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.FromDB(err, "", "")
	}
	if row.Book == nil {
		return nil, false, nil
	}
	return s.view(row), true, nil
}

// Update stores page as the user's position, clamped into [1, total pages].
// Repeating the same update is harmless.
func (s *Service) Update(ctx context.Context, userID, bookID uint, page int) (*Progress, error) {
	total, err := s.engine.TotalPages(ctx, bookID, 0)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, apperr.Unavailable("CONTENT_UNAVAILABLE", "no content is available for this book")
	}

	clamped := Clamp(page, total)
	if clamped != page {
		log.Debug("Clamped reading progress",
			zap.Uint("user_id", userID),
			zap.Uint("book_id", bookID),
			zap.Int("requested", page),
			zap.Int("stored", clamped),
		)
	}

	row, err := s.repo.Upsert(ctx, userID, bookID, clamped, s.now())
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	return s.view(row), nil
}

// MarkFinished moves the user to the last page of the book.
func (s *Service) MarkFinished(ctx context.Context, userID, bookID uint) (*Progress, error) {
	total, err := s.engine.TotalPages(ctx, bookID, 0)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, userID, bookID, total)
}

func (s *Service) Delete(ctx context.Context, userID, bookID uint) error {
	affected, err := s.repo.Delete(ctx, userID, bookID)
	if err != nil {
		return apperr.FromDB(err, "", "")
	}
	if affected == 0 {
		return apperr.NotFound("PROGRESS_NOT_FOUND", "no reading progress for this book")
	}
	return nil
}

// History lists books read within the last days days, most recent first.
func (s *Service) History(ctx context.Context, userID uint, days, limit int) ([]Progress, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.repo.ListForUser(ctx, userID, s.now().AddDate(0, 0, -days), limit)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	out := make([]Progress, 0, len(rows))
	for i := range rows {
		out = append(out, *s.view(&rows[i]))
	}
	return out, nil
}

// CurrentlyReading lists unfinished books, most recently read first.
func (s *Service) CurrentlyReading(ctx context.Context, userID uint, limit int) ([]Progress, error) {
	if limit <= 0 {
		limit = DefaultReadingLimit
	}
	return s.filter(ctx, userID, limit, func(p *Progress) bool { return p.Status != StatusFinished })
}

// Finished lists books read to the last page, most recently read first.
func (s *Service) Finished(ctx context.Context, userID uint, limit int) ([]Progress, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.filter(ctx, userID, limit, func(p *Progress) bool { return p.Status == StatusFinished })
}

func (s *Service) filter(ctx context.Context, userID uint, limit int, keep func(*Progress) bool) ([]Progress, error) {
	all, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Progress, 0, limit)
	for i := range all {
		if keep(&all[i]) {
			out = append(out, all[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Service) all(ctx context.Context, userID uint) ([]Progress, error) {
	rows, err := s.repo.ListForUser(ctx, userID, time.Time{}, 0)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	out := make([]Progress, 0, len(rows))
	for i := range rows {
		out = append(out, *s.view(&rows[i]))
	}
	return out, nil
}

// Stats summarizes the user's reading across all books.
func (s *Service) Stats(ctx context.Context, userID uint) (*Stats, error) {
	all, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalStarted: len(all)}
	if len(all) == 0 {
		return stats, nil
	}

	recentSince := s.now().AddDate(0, 0, -recentActivityDays)
	var percentSum float64
	for _, p := range all {
		switch p.Status {
		case StatusFinished:
			stats.Finished++
		case StatusInProgress:
			stats.InProgress++
		}
		if !p.LastReadAt.Before(recentSince) {
			stats.RecentActivity++
		}
		percentSum += p.PercentComplete
	}
	stats.AverageProgress = round2(percentSum / float64(len(all)))
	stats.CompletionRate = round2(float64(stats.Finished) / float64(len(all)) * 100)
	return stats, nil
}

func (s *Service) view(row *entities.ReadingProgress) *Progress {
	wpp := s.engine.DefaultWordsPerPage()
	p := &Progress{
		BookID:       row.BookID,
		CurrentPage:  row.CurrentPage,
		WordsPerPage: wpp,
		LastReadAt:   row.LastReadAt,
		CreatedAt:    row.CreatedAt,
	}
	if row.Book != nil {
		p.BookTitle = row.Book.Title
		p.Authors = row.Book.AuthorNames
		p.ImageURL = row.Book.ImageURL
		p.TotalPages = s.engine.PagesFor(row.Book, wpp)
	}

	p.PercentComplete = Percent(row.CurrentPage, p.TotalPages)
	p.Status = StatusFor(p.PercentComplete)
	p.PagesRemaining = max(0, p.TotalPages-row.CurrentPage)
	p.CurrentWordPosition = max(0, row.CurrentPage-1) * wpp
	return p
}

// Clamp bounds page into [1, total].
func Clamp(page, total int) int {
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Percent is current/total as a percentage, capped at 100 and rounded to two
// decimals. An unknown total reads as 0.
func Percent(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(math.Min(100, float64(current)/float64(total)*100))
}

func StatusFor(percent float64) Status {
	switch {
	case percent >= 100:
		return StatusFinished
	case percent > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
