package db

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to DATABASE_URL. postgres:// and postgresql:// URLs go to
// lib/pq; anything else is treated as a SQLite file path, optionally
// prefixed with sqlite://.
func Open(databaseURL string) (*sqlx.DB, error) {
	driver, dsn, err := resolve(databaseURL)
	if err != nil {
		return nil, err
	}
	if driver == DriverPostgres {
		return NewPostgresDB(dsn)
	}
	return NewSQLiteDB(dsn)
}

// NewSQLiteDB opens dsn (as produced by resolve) with a single connection.
func NewSQLiteDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

func NewPostgresDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// RunMigrations applies the embedded migrations on a dedicated connection.
func RunMigrations(databaseURL string) error {
	driverName, dsn, err := resolve(databaseURL)
	if err != nil {
		return err
	}

	conn, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect for migrations: %w", err)
	}

	var driver database.Driver
	switch driverName {
	case DriverPostgres:
		driver, err = postgres.WithInstance(conn.DB, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(conn.DB, &sqlite.Config{})
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// DriverName reports which driver Open would use for databaseURL.
func DriverName(databaseURL string) string {
	if isPostgres(databaseURL) {
		return DriverPostgres
	}
	return DriverSQLite
}

func resolve(databaseURL string) (driver, dsn string, err error) {
	if strings.TrimSpace(databaseURL) == "" {
		return "", "", fmt.Errorf("database url is empty")
	}
	if isPostgres(databaseURL) {
		return DriverPostgres, databaseURL, nil
	}

	path := strings.TrimPrefix(databaseURL, "sqlite://")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to get absolute database path: %w", err)
	}

	if err := ensureDir(absPath); err != nil {
		return "", "", fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn = "file:" + absPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	return DriverSQLite, dsn, nil
}

func isPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

// ensureDir ensures the parent directory of the DB file exists
func ensureDir(dbFile string) error {
	dir := filepath.Dir(dbFile)
	return os.MkdirAll(dir, 0755)
}
