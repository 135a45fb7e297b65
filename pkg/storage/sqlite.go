// Package storage persists output slot panel ids in SQLite so a parent
// panel reopened under the same id gets its output panels back.
package storage

import (
	"database/sql"
	_ "embed"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/odvcencio/panelsync/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Store is an open slot database.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// ErrStoreClosed is returned by operations on a closed or zero Store.
var ErrStoreClosed = errors.New(errors.ErrCodeClosed, "slot store closed")

const (
	busyRetries    = 5
	busyBackoff    = 10 * time.Millisecond
	busyTimeoutMS  = 5000
	maxDiskConns   = 4
	privateDirMode = 0o700
)

// New opens the database at dbPath, creating it when needed. ":memory:"
// keeps everything in process.
func New(dbPath string) (*Store, error) {
	filePath, onDisk := sqliteFilePathFromDSN(dbPath)
	if onDisk {
		if dir := filepath.Dir(filePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, privateDirMode); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "create slot database directory").WithContext("path", dir)
			}
		}
		if err := ensurePrivateSQLiteFile(filePath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "open slot database").WithContext("path", dbPath)
	}

	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS)}
	if onDisk {
		db.SetMaxOpenConns(maxDiskConns)
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	} else {
		// Every connection to ":memory:" is its own database.
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxLifetime(0)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "configure slot database").WithContext("pragma", pragma)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "migrate slot database").WithContext("path", dbPath)
	}

	return &Store{db: db}, nil
}

func sqliteFilePathFromDSN(dsn string) (string, bool) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || dsn == ":memory:" {
		return "", false
	}
	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil || !strings.EqualFold(strings.TrimSpace(u.Scheme), "file") {
			return "", false
		}
		path := strings.TrimSpace(u.Path)
		if path == "" {
			path = strings.TrimSpace(u.Opaque)
		}
		if path == "" || path == ":memory:" {
			return "", false
		}
		return path, true
	}
	if strings.Contains(dsn, "://") {
		return "", false
	}
	return dsn, true
}

// ensurePrivateSQLiteFile creates path owner-only when it does not exist
// yet. Existing files keep their mode.
func ensurePrivateSQLiteFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	switch {
	case err == nil:
		return f.Close()
	case os.IsExist(err):
		return nil
	default:
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "create slot database file").WithContext("path", path)
	}
}

// Close releases the database.
func (s *Store) Close() error {
	if !s.usable() || s.closed.Swap(true) {
		return ErrStoreClosed
	}
	return s.db.Close()
}

func (s *Store) usable() bool {
	return s != nil && s.db != nil && !s.closed.Load()
}

type migration struct {
	Version int
	Name    string
	Apply   func(*sql.DB) error
}

// migrations run in order after the base schema. The base schema is
// version 1.
var migrations = []migration{
	{Version: 1, Name: "output_slots", Apply: func(*sql.DB) error { return nil }},
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	applied, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= applied {
			continue
		}
		err := withRetry(func() error {
			if err := m.Apply(db); err != nil {
				return err
			}
			_, err := db.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d %s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// SchemaVersion returns the current schema version.
func (s *Store) SchemaVersion() (int, error) {
	return getSchemaVersion(s.db)
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if stderrors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

// withRetry runs fn again with doubling backoff while SQLite reports the
// database busy or locked.
func withRetry(fn func() error) error {
	delay := busyBackoff
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isBusyError(err) || attempt == busyRetries {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
}
