// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/internal/storage/influx"
	"github.com/flightgym/flightgym/internal/storage/memory"
	"github.com/flightgym/flightgym/internal/storage/postgres"
	sqlitestorage "github.com/flightgym/flightgym/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	log = log.With().Str("storage", cfg.Type).Logger()

	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, cfg.BatchSize, log), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:      cfg.SQLite.Path,
			DumpPath:  cfg.SQLite.DumpPath,
			BatchSize: cfg.BatchSize,
		}, log), nil
	case "influx":
		return influx.New(cfg.Influx, log), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
