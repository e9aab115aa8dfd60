// internal/storage/storage.go
package storage

import "github.com/flightgym/flightgym/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Episode management (StartEpisode assigns the ID to the passed pointer)
	StartEpisode(e *core.Episode) error
	EndEpisode(e *core.Episode) error

	// Step recording
	RecordStep(s *core.StepRecord) error
}

// Exporter is an optional interface for backends that write one file per
// finished episode.
type Exporter interface {
	ExportedFilePath() string
}
