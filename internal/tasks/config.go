package tasks

import (
	"path/filepath"
	"time"

	"github.com/mrlokans/booklook/internal/config"
)

// withDefaults fills unset queue settings.
func withDefaults(cfg config.Tasks) config.Tasks {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.ReleaseAfter <= 0 {
		cfg.ReleaseAfter = 15 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return cfg
}

// DatabasePath returns where the queue database lives: override when set,
// otherwise "<name>-tasks<ext>" next to the main sqlite file.
func DatabasePath(mainDBPath, override string) string {
	if override != "" {
		return override
	}
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	if ext == "" {
		ext = ".db"
	}
	return filepath.Join(dir, name+"-tasks"+ext)
}
