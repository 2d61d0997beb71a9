package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------

func postgresDialect(schema string) dialect {
	return dialect{
		name:   "postgres",
		serial: "BIGSERIAL PRIMARY KEY",
		bigint: "BIGINT",
		float:  "DOUBLE PRECISION",
		table: func(name string) string {
			return fmt.Sprintf(`"%s"."%s"`, schema, name)
		},
		prelude: []string{
			fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, schema),
		},
		misconfigured: postgresMisconfigured,
	}
}

// postgresMisconfigured matches rejected credentials, a missing database and
// missing privileges.
func postgresMisconfigured(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code.Class() {
	case "28", "3D", "3F":
		return true
	}
	return pqErr.Code == "42501"
}

// -----------------------------------------------------------------------------

// NewPostgresStore prepares a pool without connecting. Tables live in
// storage.schema, or in a schema named after the executable when unset.
func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*SQLStore, error) {
	schema := cfg.Storage.Schema
	if schema == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		schema = strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	}
	if strings.ContainsRune(schema, '"') {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("invalid postgres schema name %q", schema), nil)
	}

	db, err := sqlx.Open("postgres", cfg.Storage.DBConnectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	log.Info("Postgres store (schema: %s)", schema)
	return newSQLStore(cfg, db, postgresDialect(schema), log), nil
}
