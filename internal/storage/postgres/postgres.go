// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend.
package postgres

import (
	"fmt"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/internal/database"
	gormstorage "github.com/flightgym/flightgym/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend with a postgres connection.
type Backend struct {
	*gormstorage.Backend
	db        *gorm.DB
	cfg       config.PostgresConfig
	batchSize int
	log       zerolog.Logger
}

// New creates a new postgres storage backend. The connection is opened by Init.
func New(cfg config.PostgresConfig, batchSize int, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:       cfg,
		batchSize: batchSize,
		log:       log,
	}
}

// Init connects to the database and initializes the embedded GORM backend.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg.DSN(), b.log)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.db = db
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:        db,
		Logger:    b.log,
		BatchSize: b.batchSize,
	})
	return b.Backend.Init()
}

// Close flushes the GORM backend and closes the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	b.Backend = nil
	return database.Close(b.db)
}
