package main

import (
	"errors"
	"fmt"
	"io/fs"

	"oi-signal-engine/src/config"
	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/storage"

	"github.com/spf13/cobra"
)

// app carries what every subcommand needs: config, logger and, once
// opened, the storage backend.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store interfaces.IStorage
}

// -----------------------------------------------------------------------------

// load reads the config file. A missing file at the default path falls back to
// built-in defaults plus OI_* environment overrides.
func (a *app) load(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.NewConfig(path)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = defaultsFromEnv()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	a.cfg = cfg
	a.log = logger.NewLogger(cfg.MConfig, cfg.Name)
	return nil
}

func defaultsFromEnv() (*config.Config, error) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------

func (a *app) openStorage() (interfaces.IStorage, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := storage.NewStorage(a.cfg.MConfig, a.log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	a.store = store
	return store, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warning("Failed to close storage: %v", err)
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
