package entrypoint

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/admin"
	"github.com/mrlokans/booklook/internal/audit"
	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/cache"
	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/content"
	"github.com/mrlokans/booklook/internal/database"
	dbaudit "github.com/mrlokans/booklook/internal/database/audit"
	"github.com/mrlokans/booklook/internal/database/books"
	"github.com/mrlokans/booklook/internal/database/favourites"
	dbprogress "github.com/mrlokans/booklook/internal/database/progress"
	"github.com/mrlokans/booklook/internal/importers"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/pagination"
	"github.com/mrlokans/booklook/internal/progress"
	"github.com/mrlokans/booklook/internal/reviews"
)

// App holds the services shared by the HTTP server and the CLI commands.
type App struct {
	Config     *config.Config
	Database   *database.Database
	Cache      cache.Cache
	Content    content.Store
	Pager      *pagination.Engine
	Catalog    *catalog.Service
	Reviews    *reviews.Service
	Progress   *progress.Service
	Favourites *favourites.Repository
	Auth       *auth.Service
	Audit      *audit.Service
	Admin      *admin.Service
	Importer   *importers.Pipeline
}

// NewApp connects to the database, migrates it and builds every service.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	store, err := content.NewStore(ctx, cfg.Content, db.DB)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "content store")
	}

	c := cache.New(cfg.Cache)
	bookRepo := books.NewRepository(db.DB)
	engine := pagination.NewEngine(bookRepo, store, c, cfg.Content)
	catalogService := catalog.NewService(bookRepo, store, engine, c, cfg.Catalog)
	reviewService := reviews.NewService(db.DB, c, cfg.Catalog)
	authService := auth.NewService(db.DB, c, cfg.Auth)
	auditService := audit.NewService(dbaudit.NewRepository(db.DB))

	log.Info("Services initialized",
		zap.String("cache", c.Name()),
		zap.String("content", store.Backend()))

	return &App{
		Config:     cfg,
		Database:   db,
		Cache:      c,
		Content:    store,
		Pager:      engine,
		Catalog:    catalogService,
		Reviews:    reviewService,
		Progress:   progress.NewService(dbprogress.NewRepository(db.DB), engine),
		Favourites: favourites.NewRepository(db.DB),
		Auth:       authService,
		Audit:      auditService,
		Admin:      admin.NewService(db.DB, authService, reviewService, catalogService, auditService, cfg.Catalog),
		Importer:   importers.NewPipeline(catalogService),
	}, nil
}

// Close waits for pending audit writes and releases the database.
func (a *App) Close() {
	a.Audit.Wait()
	a.Auth.Close()
	if closer, ok := a.Cache.(io.Closer); ok {
		closer.Close()
	}
	if err := a.Database.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
}
