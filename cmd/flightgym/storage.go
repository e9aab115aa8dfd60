package main

import (
	"fmt"
	"log/slog"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/internal/storage"
	"github.com/rs/zerolog"
)

func initStorage(storageCfg config.StorageConfig, storageLog zerolog.Logger, logger *slog.Logger) (storage.Backend, error) {
	backend, err := storage.NewBackend(storageCfg, storageLog)
	if err != nil {
		logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return nil, fmt.Errorf("initializing %s storage: %w", storageCfg.Type, err)
	}
	logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend, nil
}
