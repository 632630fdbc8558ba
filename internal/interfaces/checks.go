package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/booklook/internal/admin"
	"github.com/mrlokans/booklook/internal/audit"
	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/cache"
	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/content"
	"github.com/mrlokans/booklook/internal/database"
	"github.com/mrlokans/booklook/internal/database/books"
	"github.com/mrlokans/booklook/internal/database/favourites"
	"github.com/mrlokans/booklook/internal/http"
	"github.com/mrlokans/booklook/internal/importers"
	"github.com/mrlokans/booklook/internal/pagination"
	"github.com/mrlokans/booklook/internal/progress"
	"github.com/mrlokans/booklook/internal/reviews"
	"github.com/mrlokans/booklook/internal/scheduler"
	"github.com/mrlokans/booklook/internal/tasks"
)

// =============================================================================
// Storage
// =============================================================================

var _ content.Store = (*content.DatabaseStore)(nil)
var _ content.Store = (*content.S3Store)(nil)

var _ cache.Cache = (*cache.Memory)(nil)
var _ cache.Cache = (*cache.Metered)(nil)
var _ cache.Cache = cache.Noop{}

var _ pagination.BookSource = (*books.Repository)(nil)

// =============================================================================
// HTTP Layer
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.BookCatalog = (*catalog.Service)(nil)
var _ http.BookGetter = (*catalog.Service)(nil)
var _ http.ContentPager = (*pagination.Engine)(nil)
var _ http.ReviewService = (*reviews.Service)(nil)
var _ http.ProgressService = (*progress.Service)(nil)
var _ http.FavouritesStore = (*favourites.Repository)(nil)
var _ http.AdminService = (*admin.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ http.AuthService = (*auth.Service)(nil)
var _ http.AuthRecorder = (*audit.Service)(nil)
var _ http.TaskEnqueuer = (*tasks.Client)(nil)

var _ auth.Authenticator = (*auth.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ importers.Catalog = (*catalog.Service)(nil)
var _ tasks.CatalogImporter = (*importers.Pipeline)(nil)
var _ tasks.ImportRecorder = (*audit.Service)(nil)
var _ tasks.RatingsRecomputer = (*reviews.Service)(nil)
var _ tasks.MaintenanceRecorder = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.TokenCleaner = (*auth.Service)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
