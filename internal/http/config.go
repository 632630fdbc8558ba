package http

import (
	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/config"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database   Pinger
	Catalog    BookCatalog
	Pager      ContentPager
	Reviews    ReviewService
	Progress   ProgressService
	Favourites FavouritesStore
	Admin      AdminService
	Audit      AuditReader

	// Authentication
	AuthService    AuthService
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager // optional, enables cookie sessions
	AuthRecorder   AuthRecorder         // optional
	CSRFSecret     []byte               // empty disables CSRF checks
	SecureCookies  bool
	HSTSMaxAge     int // seconds, 0 disables the header

	// Task queue client (optional)
	TaskClient TaskEnqueuer

	// List paging limits
	Paging config.Catalog

	// Application info
	Version        string
	CacheBackend   string
	ContentBackend string
	MetricsPath    string // empty disables the metrics endpoint
}
