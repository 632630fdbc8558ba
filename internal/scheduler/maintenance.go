// Package scheduler runs periodic maintenance by enqueueing background tasks
// on cron schedules.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer adds tasks to the background queue. *tasks.Client implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// Maintenance enqueues rating recomputation, audit cleanup and expired token
// cleanup on their configured schedules. An empty schedule disables that job.
type Maintenance struct {
	enqueuer Enqueuer
	config   config.Maintenance

	cron       *cron.Cron
	mu         sync.Mutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMaintenance creates a new scheduler instance.
func NewMaintenance(enqueuer Enqueuer, cfg config.Maintenance) *Maintenance {
	return &Maintenance{
		enqueuer: enqueuer,
		config:   cfg,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return errors.Wrapf(err, "invalid cron schedule %q", schedule)
	}
	return nil
}

// Start registers the jobs and starts the cron loop. It stops when ctx is done.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return nil
	}
	if !m.config.Enabled {
		log.Info("Maintenance scheduler disabled")
		return nil
	}

	jobs := []struct {
		schedule string
		task     backlite.Task
	}{
		{m.config.RatingsSchedule, tasks.RecomputeRatingsTask{}},
		{m.config.AuditCleanupSchedule, tasks.CleanupAuditEventsTask{RetentionDays: m.config.AuditRetentionDays}},
		{m.config.TokenCleanupSchedule, tasks.CleanupExpiredTokensTask{}},
	}
	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		if err := ValidateSchedule(job.schedule); err != nil {
			return err
		}
		task := job.task
		if _, err := m.cron.AddFunc(job.schedule, func() { m.enqueue(task) }); err != nil {
			return errors.Wrapf(err, "schedule %s", task.Config().Name)
		}
		log.Info("Maintenance job scheduled",
			zap.String("queue", task.Config().Name),
			zap.String("schedule", job.schedule))
	}

	var cancelCtx context.Context
	cancelCtx, m.cancelFunc = context.WithCancel(ctx)

	m.cron.Start()
	m.isRunning = true

	go func() {
		<-cancelCtx.Done()
		m.Stop()
	}()
	return nil
}

// Stop stops the cron loop and waits for a running enqueue to finish.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}

	<-m.cron.Stop().Done()
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.isRunning = false
	m.cancelFunc = nil

	log.Info("Maintenance scheduler stopped")
}

// NextRuns returns the next activation of every scheduled job.
func (m *Maintenance) NextRuns() []time.Time {
	entries := m.cron.Entries()
	runs := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		runs = append(runs, e.Next)
	}
	return runs
}

// RunNow enqueues every maintenance task immediately.
func (m *Maintenance) RunNow() {
	m.enqueue(tasks.RecomputeRatingsTask{})
	m.enqueue(tasks.CleanupAuditEventsTask{RetentionDays: m.config.AuditRetentionDays})
	m.enqueue(tasks.CleanupExpiredTokensTask{})
}

func (m *Maintenance) enqueue(task backlite.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := m.enqueuer.Enqueue(ctx, task)
	if err != nil {
		log.Error("Failed to enqueue maintenance task", zap.String("queue", task.Config().Name), zap.Error(err))
		return
	}
	log.Debug("Maintenance task enqueued", zap.String("queue", task.Config().Name), zap.String("task_id", id))
}
