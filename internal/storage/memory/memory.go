// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/pkg/core"
)

// EpisodeRecord groups an episode with all its recorded steps
type EpisodeRecord struct {
	Episode core.Episode      `json:"episode" msgpack:"episode"`
	Steps   []core.StepRecord `json:"steps" msgpack:"steps"`
}

// Backend keeps episodes in memory and exports each finished one to a file.
// An exported episode is dropped. Without export, at most MaxEpisodes finished
// episodes are kept and the oldest is evicted first.
type Backend struct {
	cfg      config.MemoryConfig
	episodes map[uint]*EpisodeRecord
	finished []uint

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		episodes: make(map[uint]*EpisodeRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartEpisode registers a new episode and assigns its ID
func (b *Backend) StartEpisode(e *core.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	e.ID = b.idCounter

	b.episodes[e.ID] = &EpisodeRecord{Episode: *e}
	return nil
}

// RecordStep appends a step to its episode
func (b *Backend) RecordStep(s *core.StepRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.episodes[s.EpisodeID]
	if !ok {
		return fmt.Errorf("episode %d not started", s.EpisodeID)
	}
	record.Steps = append(record.Steps, *s)
	return nil
}

// EndEpisode stores the final episode summary and exports the episode
func (b *Backend) EndEpisode(e *core.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.episodes[e.ID]
	if !ok {
		return fmt.Errorf("episode %d not started", e.ID)
	}
	record.Episode = *e

	if b.cfg.Format == "" {
		b.retain(e.ID)
		return nil
	}
	if err := b.export(record); err != nil {
		// still readable, subject to the cap
		b.retain(e.ID)
		return err
	}
	delete(b.episodes, e.ID)
	return nil
}

// retain marks an episode finished and evicts the oldest finished episodes
// beyond MaxEpisodes. Caller holds mu.
func (b *Backend) retain(id uint) {
	if b.cfg.MaxEpisodes <= 0 {
		return
	}
	b.finished = append(b.finished, id)
	for len(b.finished) > b.cfg.MaxEpisodes {
		delete(b.episodes, b.finished[0])
		b.finished = b.finished[1:]
	}
}

// Episode returns a copy of the recorded episode.
func (b *Backend) Episode(id uint) (EpisodeRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.episodes[id]
	if !ok {
		return EpisodeRecord{}, false
	}
	out := EpisodeRecord{Episode: record.Episode}
	out.Episode.Waypoints = append([]core.Position3D(nil), record.Episode.Waypoints...)
	out.Steps = append(out.Steps, record.Steps...)
	return out, true
}

// EpisodeIDs returns the IDs of all recorded episodes in ascending order.
func (b *Backend) EpisodeIDs() []uint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint, 0, len(b.episodes))
	for id := range b.episodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ExportedFilePath returns the path of the most recent export.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
