// Package sqlite opens SQLite databases through the pure Go
// modernc.org/sqlite driver, so binaries build with CGO_ENABLED=0.
//
// Use Open instead of sql.Open to get the driver name and connection
// pragmas right.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	driverName    = "sqlite"
	driverPackage = "modernc.org/sqlite"
)

// DefaultPragmas are applied to every connection opened with OpenFile.
var DefaultPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// Open opens a SQLite database from a raw data source name.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenFile opens the database file at path with DefaultPragmas and checks
// that it is reachable.
func OpenFile(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}
	db, err := Open(DSN(path, DefaultPragmas...))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	return db, nil
}

// OpenReadOnly opens a SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open("file:" + path + "?mode=ro")
}

// DSN builds a data source name for path with the given pragmas.
func DSN(path string, pragmas ...string) string {
	if len(pragmas) == 0 {
		return path
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// MustOpen opens a SQLite database and panics on error.
// Use Open instead if you need to handle errors gracefully.
func MustOpen(dataSourceName string) *sql.DB {
	db, err := Open(dataSourceName)
	if err != nil {
		panic(fmt.Sprintf("sqlite: failed to open %s: %v", dataSourceName, err))
	}
	return db
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	Package    string `json:"package"`
	Version    string `json:"version,omitempty"`
}

// GetInfo returns the driver configuration. When db is non-nil the SQLite
// library version is queried from it.
func GetInfo(db *sql.DB) Info {
	info := Info{DriverName: driverName, Package: driverPackage}
	if db != nil {
		var v string
		if err := db.QueryRow(`SELECT sqlite_version()`).Scan(&v); err == nil {
			info.Version = v
		}
	}
	return info
}
