// Package backend wires a ledger store from configuration.
package backend

import (
	"fmt"

	"moneycal/internal/config"
	"moneycal/internal/ledger"
	"moneycal/internal/ledger/memory"
	"moneycal/internal/log"
	"moneycal/internal/storage"
)

// Open returns the store selected by cfg.DataBackend. Callers own Close.
func Open(cfg *config.Config, logger *log.Logger) (ledger.Store, error) {
	switch cfg.DataBackend {
	case "sqlite":
		store, err := storage.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return store, nil
	case "memory":
		logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
