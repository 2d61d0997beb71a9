package storage

import (
	"errors"
	"fmt"

	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var sqliteDialect = dialect{
	name:   "sqlite",
	serial: "INTEGER PRIMARY KEY AUTOINCREMENT",
	bigint: "INTEGER",
	float:  "REAL",
	table:  func(name string) string { return name },
	prelude: []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	},
	misconfigured: sqliteMisconfigured,
}

// sqliteMisconfigured matches a database file that cannot be opened or written.
func sqliteMisconfigured(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY,
		sqlite3.SQLITE_AUTH, sqlite3.SQLITE_NOTADB:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// NewSQLiteStore opens the database file lazily; nothing touches disk until
// the first query.
func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) (*SQLStore, error) {
	dsn := cfg.Storage.DBPath
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}

	// SQLite has one writer; a single connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	log.Info("SQLite store at %s", dsn)
	return newSQLStore(cfg, db, sqliteDialect, log), nil
}
