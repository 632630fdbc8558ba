package content

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/config"
)

// NewStore builds the store selected by CONTENT_BACKEND.
func NewStore(ctx context.Context, cfg config.Content, db *gorm.DB) (Store, error) {
	if cfg.Backend == config.ContentBackendS3 {
		return NewS3Store(ctx, cfg)
	}
	return NewDatabaseStore(db), nil
}
