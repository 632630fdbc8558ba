package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/tasks"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []backlite.Task
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return "task-id", nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("30 3 * * *"))
	assert.NoError(t, ValidateSchedule("0 */6 * * 1-5"))
	assert.Error(t, ValidateSchedule("every night"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestMaintenance_Start(t *testing.T) {
	t.Run("disabled schedules nothing", func(t *testing.T) {
		m := NewMaintenance(&fakeEnqueuer{}, config.Maintenance{Enabled: false, RatingsSchedule: "30 3 * * *"})
		require.NoError(t, m.Start(context.Background()))
		assert.Empty(t, m.NextRuns())
	})

	t.Run("registers configured jobs", func(t *testing.T) {
		m := NewMaintenance(&fakeEnqueuer{}, config.Maintenance{
			Enabled:              true,
			RatingsSchedule:      "30 3 * * *",
			AuditCleanupSchedule: "0 4 * * 0",
			TokenCleanupSchedule: "15 * * * *",
		})
		require.NoError(t, m.Start(context.Background()))
		defer m.Stop()

		assert.Len(t, m.NextRuns(), 3)
		// A second start is a no-op
		require.NoError(t, m.Start(context.Background()))
		assert.Len(t, m.NextRuns(), 3)
	})

	t.Run("empty schedule skips the job", func(t *testing.T) {
		m := NewMaintenance(&fakeEnqueuer{}, config.Maintenance{Enabled: true, RatingsSchedule: "30 3 * * *"})
		require.NoError(t, m.Start(context.Background()))
		defer m.Stop()
		assert.Len(t, m.NextRuns(), 1)
	})

	t.Run("invalid schedule fails", func(t *testing.T) {
		m := NewMaintenance(&fakeEnqueuer{}, config.Maintenance{Enabled: true, RatingsSchedule: "nightly"})
		assert.Error(t, m.Start(context.Background()))
	})
}

func TestMaintenance_RunNow(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	m := NewMaintenance(enqueuer, config.Maintenance{AuditRetentionDays: 30})

	m.RunNow()

	require.Len(t, enqueuer.tasks, 3)
	assert.Equal(t, tasks.RecomputeRatingsTask{}, enqueuer.tasks[0])
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 30}, enqueuer.tasks[1])
	assert.Equal(t, tasks.CleanupExpiredTokensTask{}, enqueuer.tasks[2])
}

func TestMaintenance_StopOnContextCancel(t *testing.T) {
	m := NewMaintenance(&fakeEnqueuer{}, config.Maintenance{Enabled: true, RatingsSchedule: "30 3 * * *"})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return !m.isRunning
	}, time.Second, 10*time.Millisecond)
}
