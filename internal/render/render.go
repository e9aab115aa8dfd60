// Package render defines the viewer boundary used by the environment.
package render

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/flightgym/flightgym/pkg/core"
)

// ErrClosed is returned when rendering to a closed viewer.
var ErrClosed = errors.New("viewer closed")

// Frame is a snapshot of the scene to draw.
type Frame struct {
	Step        int
	Observation core.Observation
	Goal        core.Position3D
	Progress    *core.Progress
}

// Viewer draws frames. A Viewer holds external resources until closed.
type Viewer interface {
	Render(f Frame) error
	Close() error
}

// Factory builds a Viewer on demand.
type Factory func() (Viewer, error)

// LogViewer renders frames as structured log lines.
type LogViewer struct {
	mu     sync.Mutex
	log    *slog.Logger
	frames int
	closed bool
}

// NewLogViewer creates a LogViewer writing to log.
func NewLogViewer(log *slog.Logger) *LogViewer {
	if log == nil {
		log = slog.Default()
	}
	return &LogViewer{log: log.With("component", "viewer")}
}

// LogFactory returns a Factory producing LogViewers.
func LogFactory(log *slog.Logger) Factory {
	return func() (Viewer, error) {
		return NewLogViewer(log), nil
	}
}

// Render implements Viewer.
func (v *LogViewer) Render(f Frame) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.frames++

	pos := f.Observation.Position()
	phi, theta, psi := f.Observation.Attitude()
	attrs := []any{
		"step", f.Step,
		"north", pos.X,
		"east", pos.Y,
		"alt", pos.Z,
		"phi", phi,
		"theta", theta,
		"psi", psi,
		"goal", f.Goal,
		"distance", core.Distance(pos, f.Goal),
	}
	if f.Progress != nil {
		attrs = append(attrs, "waypoint", f.Progress.Current, "of", f.Progress.GoalIndex)
	}
	v.log.Info("frame", attrs...)
	return nil
}

// Frames returns the number of frames rendered.
func (v *LogViewer) Frames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

// Close implements Viewer.
func (v *LogViewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}
