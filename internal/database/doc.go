// Package database provides the data access layer for BookLook.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup for sqlite, postgres and mysql, migrations
//	├── books/           # Catalog queries, author/genre links, rating recompute
//	├── reviews/         # Reviews and rating distribution
//	├── progress/        # Reading progress upserts and history
//	├── favourites/      # Favourite books
//	├── users/           # Users and cascading delete
//	├── tokens/          # Hashed bearer tokens
//	├── audit/           # Audit events
//	└── analytics/       # Admin overview counters
//
// # Using Sub-packages
//
//	db, err := database.Connect(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB)
//	book, err := booksRepo.GetByID(ctx, 123)
//
// Repositories return gorm errors unchanged. The service packages translate them
// into apperr values.
//
// # Transactions
//
// Repositories that take part in multi-table writes expose WithTx, which binds a
// copy of the repository to an open transaction:
//
//	err := db.DB.Transaction(func(tx *gorm.DB) error {
//		return reviews.NewRepository(tx).Delete(ctx, id)
//	})
package database
