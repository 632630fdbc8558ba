package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/metrics"
)

// TokenCleaner deletes bearer tokens past their expiry. *auth.Service implements it.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type CleanupExpiredTokensTask struct{}

func (t CleanupExpiredTokensTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_expired_tokens",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func CleanupExpiredTokensProcessor(cleaner TokenCleaner, recorder MaintenanceRecorder) backlite.QueueProcessor[CleanupExpiredTokensTask] {
	return func(ctx context.Context, _ CleanupExpiredTokensTask) error {
		if cleaner == nil {
			return errors.New("token cleaner not configured")
		}

		deleted, err := cleaner.CleanupExpiredTokens(ctx)
		if recorder != nil {
			recorder.LogMaintenance("cleanup_expired_tokens", fmt.Sprintf("deleted %d expired tokens", deleted), err)
		}
		if err != nil {
			metrics.TasksFailed.Inc()
			return errors.Wrap(err, "cleanup expired tokens")
		}

		log.Info("Cleaned up expired tokens", zap.Int64("deleted", deleted))
		return nil
	}
}

func NewCleanupExpiredTokensQueue(cleaner TokenCleaner, recorder MaintenanceRecorder) backlite.Queue {
	return backlite.NewQueue(CleanupExpiredTokensProcessor(cleaner, recorder))
}
