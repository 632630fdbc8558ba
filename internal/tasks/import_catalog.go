package tasks

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/importers"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/metrics"
)

// CatalogImporter loads a JSONL catalog file. *importers.Pipeline implements it.
type CatalogImporter interface {
	ImportFile(ctx context.Context, path string) (importers.Result, error)
}

// ImportRecorder records the outcome of an import in the audit trail.
type ImportRecorder interface {
	LogImport(actorID uint, source string, imported, skipped, failed int, err error)
}

// ImportCatalogTask imports a catalog file from the server's filesystem.
type ImportCatalogTask struct {
	Path    string `json:"path"`
	ActorID uint   `json:"actor_id,omitempty"`
}

// Config returns the queue configuration for catalog imports.
func (t ImportCatalogTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_catalog",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportCatalogProcessor creates a processor function for ImportCatalogTask.
// Per-record failures are part of a successful run; only file errors fail the task.
func ImportCatalogProcessor(importer CatalogImporter, recorder ImportRecorder) backlite.QueueProcessor[ImportCatalogTask] {
	return func(ctx context.Context, task ImportCatalogTask) error {
		if importer == nil {
			return errors.New("catalog importer not configured")
		}

		result, err := importer.ImportFile(ctx, task.Path)
		if recorder != nil {
			recorder.LogImport(task.ActorID, task.Path, result.Imported, result.Skipped, result.Failed, err)
		}
		if err != nil {
			metrics.TasksFailed.Inc()
			return errors.Wrap(err, "import catalog")
		}

		log.Info("Catalog import task complete",
			zap.String("path", task.Path),
			zap.Int("imported", result.Imported),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
		return nil
	}
}

// NewImportCatalogQueue creates a backlite queue for catalog imports.
func NewImportCatalogQueue(importer CatalogImporter, recorder ImportRecorder) backlite.Queue {
	return backlite.NewQueue(ImportCatalogProcessor(importer, recorder))
}
