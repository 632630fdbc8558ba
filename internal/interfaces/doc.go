// Package interfaces holds compile-time checks tying the concrete services to
// the interfaces their consumers declare.
//
// # Interface Categories
//
// ## Storage
//
//   - content.Store: book text persistence (internal/content/content.go)
//   - cache.Cache: read-through cache for books, pages and principals (internal/cache/cache.go)
//   - pagination.BookSource: book lookup for the page engine (internal/pagination/pagination.go)
//
// ## HTTP Layer
//
// Controllers in internal/http declare the narrow interfaces they need
// (BookCatalog, ContentPager, ReviewService, ProgressService, FavouritesStore,
// AdminService, AuditReader, AuthService, TaskEnqueuer) and the services in
// their own packages satisfy them.
//
// ## Background Work
//
//   - tasks.CatalogImporter, tasks.RatingsRecomputer, tasks.AuditEventCleaner:
//     work performed by queue processors (internal/tasks/)
//   - scheduler.Enqueuer: cron jobs push tasks through it (internal/scheduler/)
//
// # Adding a New Content Backend
//
//  1. Implement content.Store in internal/content/
//
//     type GCSStore struct {
//         client *storage.Client
//         bucket string
//     }
//
//     func (s *GCSStore) Save(ctx context.Context, bookID uint, text string) (string, error)
//     func (s *GCSStore) Load(ctx context.Context, key string) (string, error)
//     func (s *GCSStore) Delete(ctx context.Context, key string) error
//     func (s *GCSStore) Backend() string
//
//  2. Select it in content.NewStore from CONTENT_BACKEND
//
//  3. Add a check to checks.go:
//
//     var _ content.Store = (*content.GCSStore)(nil)
//
// # Adding a New Background Task
//
//  1. Define the task type and its Config in internal/tasks/
//
//  2. Write a processor that depends on a small interface, not a service
//
//  3. Register the queue in entrypoint.startTasks and, for periodic work,
//     schedule it from internal/scheduler
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
