package config

const (
	// DefaultDatabasePath is the default path for the sqlite catalog database
	DefaultDatabasePath = "./booklook.db"

	// DefaultWordsPerPage is the page size used for stored page counts and reading progress
	DefaultWordsPerPage = 300

	// MaxWordsPerPage bounds the words_per_page query parameter
	MaxWordsPerPage = 2000

	// MaxCatalogPageSize bounds every paginated listing
	MaxCatalogPageSize = 100
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Supported content backends
const (
	ContentBackendDatabase = "database"
	ContentBackendS3       = "s3"
)
