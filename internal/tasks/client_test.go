package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/database/books"
	"github.com/mrlokans/booklook/internal/importers"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	path := DatabasePath(filepath.Join(t.TempDir(), "test.db"), "")
	client, err := NewClient(path, config.Tasks{Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDatabasePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "booklook-tasks.db"), DatabasePath(filepath.Join("data", "booklook.db"), ""))
	assert.Equal(t, filepath.Join("data", "plain-tasks.db"), DatabasePath(filepath.Join("data", "plain"), ""))
	assert.Equal(t, "/var/queue.db", DatabasePath("booklook.db", "/var/queue.db"))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	path := DatabasePath(filepath.Join(tmpDir, "test.db"), "")

	client, err := NewClient(path, config.Tasks{})
	require.NoError(t, err)
	assert.Equal(t, 2, client.config.Workers)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")
	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestClientStop_NotStarted(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

// TestTask is a simple task for testing
type TestTask struct {
	Value string `json:"value"`
}

func (t TestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "test_task",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestTaskEnqueue(t *testing.T) {
	client := newTestClient(t)

	executed := make(chan string, 1)
	client.Register(backlite.NewQueue(func(ctx context.Context, task TestTask) error {
		executed <- task.Value
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	id, err := client.Enqueue(ctx, TestTask{Value: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

type fakeImporter struct {
	result importers.Result
	err    error
	path   string
}

func (f *fakeImporter) ImportFile(_ context.Context, path string) (importers.Result, error) {
	f.path = path
	return f.result, f.err
}

type recorded struct {
	action      string
	description string
	imported    int
	err         error
}

type fakeRecorder struct {
	events []recorded
}

func (f *fakeRecorder) LogImport(_ uint, source string, imported, _, _ int, err error) {
	f.events = append(f.events, recorded{action: "import", description: source, imported: imported, err: err})
}

func (f *fakeRecorder) LogMaintenance(action, description string, err error) {
	f.events = append(f.events, recorded{action: action, description: description, err: err})
}

func TestImportCatalogProcessor(t *testing.T) {
	t.Run("records the result", func(t *testing.T) {
		importer := &fakeImporter{result: importers.Result{Imported: 3, Failed: 1}}
		recorder := &fakeRecorder{}

		err := ImportCatalogProcessor(importer, recorder)(context.Background(), ImportCatalogTask{Path: "/data/catalog.jsonl", ActorID: 1})
		require.NoError(t, err)
		assert.Equal(t, "/data/catalog.jsonl", importer.path)
		require.Len(t, recorder.events, 1)
		assert.Equal(t, 3, recorder.events[0].imported)
	})

	t.Run("fails on file errors", func(t *testing.T) {
		recorder := &fakeRecorder{}
		err := ImportCatalogProcessor(&fakeImporter{err: errors.New("no such file")}, recorder)(context.Background(), ImportCatalogTask{Path: "x"})
		assert.Error(t, err)
		require.Len(t, recorder.events, 1)
		assert.Error(t, recorder.events[0].err)
	})

	t.Run("requires an importer", func(t *testing.T) {
		err := ImportCatalogProcessor(nil, nil)(context.Background(), ImportCatalogTask{})
		assert.Error(t, err)
	})
}

type fakeRecomputer struct {
	single []uint
	all    int
}

func (f *fakeRecomputer) Recompute(_ context.Context, bookID uint) (books.RatingSummary, error) {
	f.single = append(f.single, bookID)
	return books.RatingSummary{Count: 2, Average: 4.5}, nil
}

func (f *fakeRecomputer) RecomputeAll(context.Context) (int, error) {
	f.all++
	return 7, nil
}

func TestRecomputeRatingsProcessor(t *testing.T) {
	recomputer := &fakeRecomputer{}
	recorder := &fakeRecorder{}
	process := RecomputeRatingsProcessor(recomputer, recorder)

	require.NoError(t, process(context.Background(), RecomputeRatingsTask{BookID: 4}))
	require.NoError(t, process(context.Background(), RecomputeRatingsTask{}))

	assert.Equal(t, []uint{4}, recomputer.single)
	assert.Equal(t, 1, recomputer.all)
	require.Len(t, recorder.events, 2)
	assert.Equal(t, "book 4: 4.50 from 2 reviews", recorder.events[0].description)
	assert.Equal(t, "recomputed 7 books", recorder.events[1].description)
}

type fakeCleaner struct {
	retention time.Duration
}

func (f *fakeCleaner) DeleteOldEvents(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 5, nil
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	cleaner := &fakeCleaner{}
	process := CleanupAuditEventsProcessor(cleaner, nil)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{}))
	assert.Equal(t, DefaultAuditRetentionDays*24*time.Hour, cleaner.retention)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 7}))
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)
}

type fakeTokenCleaner struct {
	err error
}

func (f fakeTokenCleaner) CleanupExpiredTokens(context.Context) (int64, error) {
	return 3, f.err
}

func TestCleanupExpiredTokensProcessor(t *testing.T) {
	recorder := &fakeRecorder{}
	process := CleanupExpiredTokensProcessor(fakeTokenCleaner{}, recorder)

	require.NoError(t, process(context.Background(), CleanupExpiredTokensTask{}))
	require.Len(t, recorder.events, 1)
	assert.Equal(t, "deleted 3 expired tokens", recorder.events[0].description)

	failing := CleanupExpiredTokensProcessor(fakeTokenCleaner{err: errors.New("locked")}, nil)
	assert.Error(t, failing(context.Background(), CleanupExpiredTokensTask{}))

	assert.Error(t, CleanupExpiredTokensProcessor(nil, nil)(context.Background(), CleanupExpiredTokensTask{}))
}

func TestTaskConfigs(t *testing.T) {
	tests := []struct {
		task backlite.Task
		name string
	}{
		{ImportCatalogTask{}, "import_catalog"},
		{RecomputeRatingsTask{}, "recompute_ratings"},
		{CleanupAuditEventsTask{}, "cleanup_audit_events"},
		{CleanupExpiredTokensTask{}, "cleanup_expired_tokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.task.Config()
			assert.Equal(t, tt.name, cfg.Name)
			assert.Positive(t, cfg.MaxAttempts)
			assert.NotNil(t, cfg.Retention)
		})
	}
}
