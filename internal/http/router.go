package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/log"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Panic while serving request",
			zap.String("request_id", c.GetString(ContextKeyRequestID)),
			zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"})
	}))

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.HSTSMaxAge > 0 {
		router.Use(auth.StrictTransportSecurityMiddleware(cfg.HSTSMaxAge))
	}

	// Session data must be loaded before the auth middleware reads it
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.LoadSession())
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}
	// CSRF needs the auth type, so it runs after authentication
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	requireAuth := auth.RequireAuth()
	requireAdmin := auth.RequireAdmin()

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version, cfg.CacheBackend, cfg.ContentBackend)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	if cfg.MetricsPath != "" {
		router.GET(cfg.MetricsPath, Metrics)
	}

	// Auth endpoints
	if cfg.AuthService != nil {
		authController := NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthRecorder)
		router.POST("/auth/register", authController.Register)
		router.POST("/auth/login", authController.Login)
		router.POST("/auth/logout", requireAuth, authController.Logout)
		router.GET("/auth/me", requireAuth, authController.Me)
		router.PUT("/auth/password", requireAuth, authController.ChangePassword)
	}

	// Catalog endpoints
	if cfg.Catalog != nil {
		booksController := NewBooksController(cfg.Catalog, cfg.Pager)
		router.GET("/books", booksController.ListBooks)
		router.GET("/books/popular", booksController.Popular)
		router.GET("/books/genres", booksController.Genres)
		router.GET("/books/authors", booksController.Authors)
		router.GET("/books/:id", booksController.GetBook)
		if cfg.Pager != nil {
			router.GET("/books/:id/content/page/:page", booksController.ContentPage)
			router.GET("/books/:id/content/range/:start/:end", booksController.ContentRange)
			router.GET("/books/:id/content/stats", booksController.ContentStats)
			router.GET("/books/:id/search", booksController.SearchContent)
		}
	}

	// Review endpoints
	if cfg.Reviews != nil {
		reviewsController := NewReviewsController(cfg.Reviews)
		router.GET("/books/:id/reviews", reviewsController.ListForBook)
		router.GET("/books/:id/reviews/distribution", reviewsController.Distribution)
		router.GET("/reviews/recent", reviewsController.Recent)
		router.POST("/books/:id/reviews", requireAuth, reviewsController.Create)
		router.PUT("/reviews/:id", requireAuth, reviewsController.Update)
		router.DELETE("/reviews/:id", requireAuth, reviewsController.Delete)
		router.GET("/user/reviews", requireAuth, reviewsController.ListMine)
	}

	// Reading progress endpoints
	if cfg.Progress != nil && cfg.Catalog != nil {
		progressController := NewProgressController(cfg.Progress, cfg.Catalog)
		readingProgress := router.Group("/user/reading-progress", requireAuth)
		readingProgress.GET("", progressController.CurrentlyReading)
		readingProgress.GET("/history", progressController.History)
		readingProgress.GET("/finished", progressController.Finished)
		readingProgress.GET("/stats", progressController.Stats)
		readingProgress.GET("/:book_id", progressController.Get)
		readingProgress.PUT("/:book_id", progressController.Update)
		readingProgress.DELETE("/:book_id", progressController.Delete)
		readingProgress.POST("/:book_id/finish", progressController.Finish)
	}

	// Favourites endpoints
	if cfg.Favourites != nil && cfg.Catalog != nil {
		favouritesController := NewFavouritesController(cfg.Favourites, cfg.Catalog, cfg.Paging)
		favourites := router.Group("/user/favorites", requireAuth)
		favourites.GET("", favouritesController.ListFavourites)
		favourites.GET("/:book_id", favouritesController.IsFavourite)
		favourites.POST("/:book_id", favouritesController.AddFavourite)
		favourites.DELETE("/:book_id", favouritesController.RemoveFavourite)
	}

	// Admin endpoints
	if cfg.Admin != nil {
		adminController := NewAdminController(cfg.Admin, cfg.Audit, cfg.TaskClient, cfg.Paging)
		admin := router.Group("/admin", requireAdmin)

		admin.GET("/users", adminController.ListUsers)
		admin.GET("/users/export", adminController.ExportUsers)
		admin.POST("/users/import-csv", adminController.ImportUsersCSV)
		admin.GET("/users/:id", adminController.GetUser)
		admin.PUT("/users/:id/suspend", adminController.SuspendUser)
		admin.PUT("/users/:id/activate", adminController.ActivateUser)
		admin.PUT("/users/:id/promote", adminController.PromoteUser)
		admin.PUT("/users/:id/revoke-admin", adminController.RevokeAdmin)
		admin.PUT("/users/:id/password", adminController.ResetPassword)
		admin.DELETE("/users/:id", adminController.DeleteUser)

		admin.GET("/reviews", adminController.ListReviews)
		admin.GET("/reviews/flagged", adminController.FlaggedReviews)
		admin.GET("/reviews/export", adminController.ExportReviews)
		admin.POST("/reviews/import-csv", adminController.ImportReviewsCSV)
		admin.PUT("/reviews/:id/flag", adminController.FlagReview)
		admin.PUT("/reviews/:id/approve", adminController.ApproveReview)
		admin.DELETE("/reviews/:id", adminController.DeleteReview)
		admin.POST("/reviews/bulk-delete", adminController.BulkDeleteReviews)
		admin.POST("/reviews/bulk-flag", adminController.BulkFlagReviews)
		admin.POST("/reviews/bulk-approve", adminController.BulkApproveReviews)

		admin.POST("/books", adminController.CreateBook)
		admin.POST("/books/import", adminController.ImportCatalog)
		admin.POST("/books/import-csv", adminController.ImportBooksCSV)
		admin.POST("/books/bulk-update", adminController.BulkUpdateBooks)
		admin.GET("/books/export", adminController.ExportBooks)
		admin.PUT("/books/:id", adminController.UpdateBook)
		admin.DELETE("/books/:id", adminController.DeleteBook)
		admin.PUT("/books/:id/content", adminController.SetBookContent)
		admin.POST("/maintenance/recompute-ratings", adminController.RecomputeRatings)

		admin.GET("/analytics/overview", adminController.AnalyticsOverview)
		admin.GET("/analytics/users", adminController.AnalyticsUsers)
		admin.GET("/analytics/books", adminController.AnalyticsBooks)
		admin.GET("/analytics/reviews", adminController.AnalyticsReviews)
		if cfg.Audit != nil {
			admin.GET("/audit", adminController.AuditLog)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "ROUTE_NOT_FOUND"})
	})

	return router
}
