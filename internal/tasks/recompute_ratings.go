package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/database/books"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/metrics"
)

// RatingsRecomputer rebuilds stored rating aggregates from reviews.
// *reviews.Service implements it.
type RatingsRecomputer interface {
	Recompute(ctx context.Context, bookID uint) (books.RatingSummary, error)
	RecomputeAll(ctx context.Context) (int, error)
}

// MaintenanceRecorder records maintenance runs in the audit trail.
type MaintenanceRecorder interface {
	LogMaintenance(action, description string, err error)
}

// RecomputeRatingsTask recomputes one book's rating, or every book's when
// BookID is zero.
type RecomputeRatingsTask struct {
	BookID uint `json:"book_id,omitempty"`
}

// Config returns the queue configuration for rating recomputation.
func (t RecomputeRatingsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "recompute_ratings",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     15 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RecomputeRatingsProcessor creates a processor function for RecomputeRatingsTask.
func RecomputeRatingsProcessor(recomputer RatingsRecomputer, recorder MaintenanceRecorder) backlite.QueueProcessor[RecomputeRatingsTask] {
	return func(ctx context.Context, task RecomputeRatingsTask) error {
		if recomputer == nil {
			return errors.New("ratings recomputer not configured")
		}

		var (
			description string
			err         error
		)
		if task.BookID != 0 {
			var summary books.RatingSummary
			summary, err = recomputer.Recompute(ctx, task.BookID)
			description = fmt.Sprintf("book %d: %.2f from %d reviews", task.BookID, summary.Average, summary.Count)
		} else {
			var count int
			count, err = recomputer.RecomputeAll(ctx)
			description = fmt.Sprintf("recomputed %d books", count)
		}

		if recorder != nil {
			recorder.LogMaintenance("recompute_ratings", description, err)
		}
		if err != nil {
			metrics.TasksFailed.Inc()
			return errors.Wrap(err, "recompute ratings")
		}

		log.Info("Ratings recomputed", zap.String("result", description))
		return nil
	}
}

// NewRecomputeRatingsQueue creates a backlite queue for rating recomputation.
func NewRecomputeRatingsQueue(recomputer RatingsRecomputer, recorder MaintenanceRecorder) backlite.Queue {
	return backlite.NewQueue(RecomputeRatingsProcessor(recomputer, recorder))
}
