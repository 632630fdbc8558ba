package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/config"
	http_controllers "github.com/mrlokans/booklook/internal/http"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/scheduler"
	"github.com/mrlokans/booklook/internal/tasks"
)

const hstsMaxAge = 365 * 24 * 60 * 60

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case listenErr = <-serveErr:
	case <-ctx.Done():
	}

	log.Info("Shutting down server", zap.Duration("timeout", cfg.Global.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Global.ShutdownTimeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}
	if listenErr != nil {
		return errors.Wrap(listenErr, "listen")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	log.Info("Server exiting")
	return nil
}

// Run builds the application and serves it until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	log.Info("Starting BookLook", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// Workers get their own context so Stop can drain them after the signal
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()
	taskClient, err := startTasks(taskCtx, app)
	if err != nil {
		return err
	}

	var maintenance *scheduler.Maintenance
	if taskClient != nil && cfg.Maintenance.Enabled {
		maintenance = scheduler.NewMaintenance(taskClient, cfg.Maintenance)
		if err := maintenance.Start(ctx); err != nil {
			taskClient.Close()
			return errors.Wrap(err, "start maintenance scheduler")
		}
	}

	routerCfg, err := routerConfig(app, version)
	if err != nil {
		return err
	}
	// A nil *tasks.Client must not become a non-nil interface
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}

	if hasUsers, err := app.Auth.HasUsers(ctx); err == nil && !hasUsers {
		log.Warn("No users found. Run 'booklook create-admin' to create an administrator account.")
	}

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil {
			if !taskClient.Stop(ctx) {
				log.Warn("Task workers did not finish before the shutdown deadline")
			}
			cancelTasks()
			if err := taskClient.Close(); err != nil {
				log.Error("Error closing task client", zap.Error(err))
			}
		}
	}

	return Serve(ctx, http_controllers.NewRouter(routerCfg), cfg, onShutdown)
}

// startTasks opens the background queue and starts its workers. It returns
// nil when tasks are disabled.
func startTasks(ctx context.Context, app *App) (*tasks.Client, error) {
	cfg := app.Config
	if !cfg.Tasks.Enabled {
		log.Info("Background tasks disabled")
		return nil, nil
	}

	client, err := tasks.NewClient(tasks.DatabasePath(cfg.Database.Path, cfg.Tasks.DatabasePath), cfg.Tasks)
	if err != nil {
		return nil, errors.Wrap(err, "initialize task queue")
	}

	client.Register(
		tasks.NewImportCatalogQueue(app.Importer, app.Audit),
		tasks.NewRecomputeRatingsQueue(app.Reviews, app.Audit),
		tasks.NewCleanupAuditEventsQueue(app.Audit, app.Audit),
		tasks.NewCleanupExpiredTokensQueue(app.Auth, app.Audit),
	)
	go client.Start(ctx)
	return client, nil
}

func routerConfig(app *App, version string) (http_controllers.RouterConfig, error) {
	cfg := app.Config
	routerCfg := http_controllers.RouterConfig{
		Database:       app.Database,
		Catalog:        app.Catalog,
		Pager:          app.Pager,
		Reviews:        app.Reviews,
		Progress:       app.Progress,
		Favourites:     app.Favourites,
		Admin:          app.Admin,
		Audit:          app.Audit,
		AuthService:    app.Auth,
		AuthRecorder:   app.Audit,
		SecureCookies:  cfg.Auth.SecureCookies,
		Paging:         cfg.Catalog,
		Version:        version,
		CacheBackend:   app.Cache.Name(),
		ContentBackend: app.Content.Backend(),
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if cfg.Auth.SecureCookies {
		routerCfg.HSTSMaxAge = hstsMaxAge
	}

	sqlDB, err := app.Database.DB.DB()
	if err != nil {
		return routerCfg, errors.Wrap(err, "get SQL DB for sessions")
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, app.Database.Driver, cfg.Auth)
	if err != nil {
		return routerCfg, errors.Wrap(err, "initialize session manager")
	}
	routerCfg.SessionManager = sessionManager
	routerCfg.AuthMiddleware = auth.NewMiddleware(app.Auth, sessionManager)

	if cfg.Auth.CSRFEnabled {
		secret, err := csrfSecret(cfg.Auth.SessionSecret)
		if err != nil {
			return routerCfg, err
		}
		routerCfg.CSRFSecret = secret
	}
	return routerCfg, nil
}

// csrfSecret decodes a configured hex secret, falls back to the raw bytes,
// and generates one when nothing is configured.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, errors.Wrap(err, "generate CSRF secret")
	}
	log.Info("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}
