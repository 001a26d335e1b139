// Package sqlite persists local drafts in a SQLite database.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/depositform/internal/draft"
	"github.com/zjrosen/depositform/internal/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// pragmas are applied to every pooled connection through the DSN.
const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"

// DB owns the connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (creating if needed) the database at path and migrates it to
// the latest schema. An existing file is copied to path+".bak" first.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	conn, err := sql.Open("sqlite3", "file:"+path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if existed {
		if err := backup(conn, path+".bak"); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if err := migrateUp(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info(log.CatDraft, "Draft database ready", "path", path)
	return &DB{conn: conn, path: path}, nil
}

func backup(conn *sql.DB, dest string) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old backup: %w", err)
	}
	if _, err := conn.Exec("VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	return nil
}

func migrateUp(conn *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// m.Close would close conn through the driver.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Connection returns the underlying pool.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// DraftRepository returns a draft.Store over this database.
func (db *DB) DraftRepository() draft.Store {
	return newDraftRepository(db.conn)
}
