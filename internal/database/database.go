package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
)

// Models lists every table managed by AutoMigrate, parents first.
var Models = []any{
	&entities.User{},
	&entities.Author{},
	&entities.Genre{},
	&entities.Book{},
	&entities.BookContent{},
	&entities.Review{},
	&entities.ReadingProgress{},
	&entities.Favourite{},
	&entities.APIToken{},
	&entities.AuditEvent{},
}

type Database struct {
	DB     *gorm.DB
	Driver string
}

// NewDatabase opens (or creates) a sqlite database at dbPath and migrates it.
func NewDatabase(dbPath string) (*Database, error) {
	return Connect(config.Database{
		Driver: config.DriverSQLite,
		Path:   dbPath,
	})
}

// Connect opens the database described by cfg and migrates the schema.
func Connect(cfg config.Database) (*Database, error) {
	database, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Open connects without migrating.
func Open(cfg config.Database) (*Database, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite, "":
		path := cfg.DSN
		if path == "" {
			path = cfg.Path
		}
		dialector = sqlite.Open(sqliteDSN(path))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.LogQueries {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.PrintfWriter{Component: "gorm"}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}
	log.Info("Connected to database", zap.String("driver", driver))

	return &Database{DB: db, Driver: driver}, nil
}

// sqliteDSN enables WAL and a busy timeout unless the caller passed options.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") || path == ":memory:" {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Like returns "expr LIKE ?" with backslash as the escape character. Postgres and
// MySQL use backslash by default, sqlite needs it spelled out.
func Like(db *gorm.DB, expr string) string {
	if db.Dialector.Name() == "sqlite" {
		return expr + ` LIKE ? ESCAPE '\'`
	}
	return expr + " LIKE ?"
}

// EscapeLike escapes LIKE wildcards in user input for use with Like.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
