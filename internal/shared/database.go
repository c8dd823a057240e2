package shared

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath is the path that selects an in-memory database.
const MemoryPath = ":memory:"

// DSNOptions controls the connection parameters passed to the sqlite3 driver.
type DSNOptions struct {
	BusyTimeout time.Duration
	WAL         bool
	ReadOnly    bool
	// ImmediateTx makes BEGIN take the write lock up front so writers queue on busy_timeout
	// instead of failing on lock upgrade.
	ImmediateTx bool
}

// uriPath escapes the characters SQLite's URI parser would read as the start of a
// query or fragment. SQLite decodes %HH escapes in the path before opening the file.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// DSN builds a go-sqlite3 connection string for path.
//
// Foreign-key enforcement is always requested so every pooled connection enforces it.
// A plain filesystem path is escaped into a file: URI; a path already starting with
// file: is taken as a URI as given.
func DSN(path string, opts DSNOptions) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	if opts.BusyTimeout > 0 {
		q.Set("_busy_timeout", fmt.Sprintf("%d", opts.BusyTimeout.Milliseconds()))
	}
	if opts.ReadOnly {
		q.Set("mode", "ro")
	} else if opts.WAL {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	if opts.ImmediateTx {
		q.Set("_txlock", "immediate")
	}

	if path == MemoryPath {
		return MemoryPath + "?" + q.Encode()
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + uriPath.Replace(path)
	}
	return path + "?" + q.Encode()
}

// NewDatabase opens a connection to a SQLite database using the given DSN.
// Returns an open database connection or an error if connection fails.
func NewDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
//
// A zero maxLifetime keeps connections open indefinitely, which an in-memory database requires.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int, maxLifetime time.Duration) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(maxLifetime)
}
