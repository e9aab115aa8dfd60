// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend via composition. The SQLite-specific concerns are
// opening a file or in-memory DB and dumping the in-memory DB to disk via
// VACUUM INTO when the backend closes.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flightgym/flightgym/internal/database"
	gormstorage "github.com/flightgym/flightgym/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path      string // database file; empty uses an in-memory DB
	DumpPath  string // VACUUM INTO target for the in-memory DB
	BatchSize int
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log zerolog.Logger
}

// New creates a new SQLite storage backend. The database is opened by Init.
func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{
		cfg: cfg,
		log: log,
	}
}

// Init opens the database and initializes the embedded GORM backend.
func (b *Backend) Init() error {
	db, err := database.OpenSqlite(b.cfg.Path, b.log)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	b.db = db
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:        db,
		Logger:    b.log,
		BatchSize: b.cfg.BatchSize,
	})
	return b.Backend.Init()
}

// Close flushes the GORM backend, dumps an in-memory DB to disk and closes the connection.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()

	if b.cfg.Path == "" && b.cfg.DumpPath != "" {
		if mkErr := os.MkdirAll(filepath.Dir(b.cfg.DumpPath), 0755); mkErr != nil {
			err = errors.Join(err, mkErr)
		} else if dumpErr := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath, b.log); dumpErr != nil {
			b.log.Error().Err(dumpErr).Msg("Error dumping to disk")
			err = errors.Join(err, dumpErr)
		}
	}

	err = errors.Join(err, database.Close(b.db))
	b.Backend = nil
	return err
}
