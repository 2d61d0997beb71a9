package storage

import (
	"fmt"

	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
)

// NewStorage builds the backend named by storage.db_type.
func NewStorage(cfg *models.MConfig, log *logger.Logger) (interfaces.IStorage, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresStore(cfg, log)
	case "memory":
		return NewMemoryStore(cfg, log), nil
	case "sqlite", "":
		return NewSQLiteStore(cfg, log)
	default:
		return nil, helpers.NewConfigurationError(fmt.Sprintf("unknown database type '%s'", cfg.Storage.DBType), nil)
	}
}

var (
	_ interfaces.IStorage = (*SQLStore)(nil)
	_ interfaces.IStorage = (*MemoryStore)(nil)
)
