// Package gormstorage implements the storage.Backend interface on top of GORM.
// Episodes are written synchronously so their IDs are known; steps go through
// a queue and are flushed in batches by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/internal/queue"
	"github.com/flightgym/flightgym/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Defaults for Dependencies left at zero.
const (
	DefaultBatchSize     = 500
	DefaultFlushInterval = 2 * time.Second
)

// ErrNotInitialized is returned when the backend is used before Init.
var ErrNotInitialized = errors.New("gorm storage not initialized")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	BatchSize     int
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps  Dependencies
	steps *queue.Queue[Step]

	// craft positions per open episode
	tracks  map[uint][]core.Position3D
	trackMu sync.Mutex

	flushMu  sync.Mutex
	stopChan chan struct{}
	writer   sync.WaitGroup
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		tracks: make(map[uint][]core.Position3D),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the background step writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNotInitialized
	}
	b.steps = queue.New[Step]()
	b.stopChan = make(chan struct{})

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.startDBWriter()
	return nil
}

// setupDB migrates tables.
func (b *Backend) setupDB() error {
	log := b.deps.Logger

	log.Info().Msg("Migrating schema")
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info().Msg("Database setup complete")
	return nil
}

// Close stops the writer goroutine and flushes any queued steps.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
		close(b.stopChan)
	}
	b.writer.Wait()
	return b.Flush()
}

// StartEpisode inserts the episode row and assigns the DB-generated ID.
func (b *Backend) StartEpisode(e *core.Episode) error {
	if b.steps == nil {
		return ErrNotInitialized
	}

	row, err := coreToEpisode(*e)
	if err != nil {
		return fmt.Errorf("failed to convert episode: %w", err)
	}
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new episode: %w", err)
	}
	e.ID = row.ID

	b.trackMu.Lock()
	b.tracks[row.ID] = nil
	b.trackMu.Unlock()
	return nil
}

// RecordStep converts and queues a step. A full batch is flushed immediately.
func (b *Backend) RecordStep(s *core.StepRecord) error {
	if b.steps == nil {
		return ErrNotInitialized
	}

	row, err := coreToStep(*s)
	if err != nil {
		return fmt.Errorf("failed to convert step: %w", err)
	}

	b.trackMu.Lock()
	track, ok := b.tracks[s.EpisodeID]
	if !ok {
		b.trackMu.Unlock()
		return fmt.Errorf("episode %d not started", s.EpisodeID)
	}
	b.tracks[s.EpisodeID] = append(track, s.Observation.Position())
	b.trackMu.Unlock()

	b.steps.Push(row)
	if b.steps.Len() >= b.deps.BatchSize {
		return b.Flush()
	}
	return nil
}

// EndEpisode flushes the episode's steps and writes the final summary and track.
func (b *Backend) EndEpisode(e *core.Episode) error {
	if b.steps == nil {
		return ErrNotInitialized
	}
	if err := b.Flush(); err != nil {
		return err
	}

	b.trackMu.Lock()
	track := b.tracks[e.ID]
	delete(b.tracks, e.ID)
	b.trackMu.Unlock()

	// an invalid track is stored empty
	ls, err := geo.TrackLineString(track)
	if err != nil {
		b.deps.Logger.Warn().Err(err).Uint("episode", e.ID).Msg("Dropping episode track")
		ls = geom.LineString{}
	}

	err = b.deps.DB.Model(&Episode{}).Where("id = ?", e.ID).Updates(map[string]any{
		"end_time":     e.EndTime,
		"steps":        e.Steps,
		"total_reward": e.TotalReward,
		"reason":       string(e.Reason),
		"track":        ls,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update episode %d: %w", e.ID, err)
	}
	return nil
}

// Flush writes every queued step in batches. On failure the unwritten steps
// stay queued in order.
func (b *Backend) Flush() error {
	if b.steps == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	for !b.steps.Empty() {
		batch := b.steps.PopN(b.deps.BatchSize)
		if err := b.deps.DB.Omit(clause.Associations).CreateInBatches(&batch, b.deps.BatchSize).Error; err != nil {
			b.steps.Requeue(batch...)
			b.deps.Logger.Error().Err(err).Int("count", len(batch)).Msg("Error creating steps")
			return fmt.Errorf("failed to write steps: %w", err)
		}
		b.deps.Logger.Trace().Int("count", len(batch)).Msg("Wrote steps")
	}
	return nil
}

// Pending returns the number of queued steps.
func (b *Backend) Pending() int {
	if b.steps == nil {
		return 0
	}
	return b.steps.Len()
}

// Episode loads an episode by ID.
func (b *Backend) Episode(id uint) (core.Episode, []core.Position3D, error) {
	var row Episode
	if err := b.deps.DB.First(&row, id).Error; err != nil {
		return core.Episode{}, nil, err
	}
	return episodeToCore(row), geo.Track(row.Track), nil
}

// Steps loads the recorded steps of an episode in step order.
func (b *Backend) Steps(episodeID uint) ([]core.StepRecord, error) {
	var rows []Step
	if err := b.deps.DB.Where("episode_id = ?", episodeID).Order("step asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.StepRecord, len(rows))
	for i, r := range rows {
		out[i] = stepToCore(r)
	}
	return out, nil
}

// startDBWriter starts the background goroutine that periodically drains the step queue.
func (b *Backend) startDBWriter() {
	b.writer.Add(1)
	go func() {
		defer b.writer.Done()
		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				// errors are logged by Flush and the batch stays queued
				_ = b.Flush()
			}
		}
	}()
}
