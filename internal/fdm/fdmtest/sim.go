// Package fdmtest provides an in-memory fdm.Simulator for tests.
package fdmtest

import (
	"errors"

	"github.com/flightgym/flightgym/internal/fdm"
	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/pkg/core"
)

// ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("simulator closed")

// Write is one recorded SetProperty call.
type Write struct {
	Property fdm.Property
	Value    float64
}

// Sim is a scripted property store. Physics is whatever the OnRun hook does.
type Sim struct {
	Props  map[fdm.Property]float64
	Writes []Write

	RunICCalls int
	RunCalls   int
	Closed     bool

	// Initial is restored by RunIC. Nil leaves properties untouched.
	Initial map[fdm.Property]float64

	// OnRun is called after every tick.
	OnRun func(s *Sim)

	// Errors injected into the matching calls.
	GetErr error
	SetErr error
	RunErr error
}

// New creates a Sim with all properties zeroed.
func New() *Sim {
	return &Sim{Props: make(map[fdm.Property]float64)}
}

// GetProperty implements fdm.PropertyStore.
func (s *Sim) GetProperty(p fdm.Property) (float64, error) {
	if s.Closed {
		return 0, ErrClosed
	}
	if s.GetErr != nil {
		return 0, s.GetErr
	}
	return s.Props[p], nil
}

// SetProperty implements fdm.PropertyStore.
func (s *Sim) SetProperty(p fdm.Property, v float64) error {
	if s.Closed {
		return ErrClosed
	}
	if s.SetErr != nil {
		return s.SetErr
	}
	s.Props[p] = v
	s.Writes = append(s.Writes, Write{Property: p, Value: v})
	return nil
}

// RunIC implements fdm.Simulator.
func (s *Sim) RunIC() error {
	if s.Closed {
		return ErrClosed
	}
	s.RunICCalls++
	for p, v := range s.Initial {
		s.Props[p] = v
	}
	return nil
}

// Run implements fdm.Simulator.
func (s *Sim) Run() error {
	if s.Closed {
		return ErrClosed
	}
	if s.RunErr != nil {
		return s.RunErr
	}
	s.RunCalls++
	if s.OnRun != nil {
		s.OnRun(s)
	}
	return nil
}

// Close implements fdm.Simulator.
func (s *Sim) Close() error {
	s.Closed = true
	return nil
}

// Place sets the craft position from local-frame coordinates.
func (s *Sim) Place(p core.Position3D) {
	s.Props[fdm.LatGCRad] = geo.LinearToRadians(p.X)
	s.Props[fdm.LongGCRad] = geo.LinearToRadians(p.Y)
	s.Props[fdm.HSLMeters] = p.Z
}

// Position returns the craft position in local-frame coordinates.
func (s *Sim) Position() core.Position3D {
	return core.Position3D{
		X: geo.RadiansToLinear(s.Props[fdm.LatGCRad]),
		Y: geo.RadiansToLinear(s.Props[fdm.LongGCRad]),
		Z: s.Props[fdm.HSLMeters],
	}
}

// WritesTo returns the recorded values written to p, in order.
func (s *Sim) WritesTo(p fdm.Property) []float64 {
	var out []float64
	for _, w := range s.Writes {
		if w.Property == p {
			out = append(out, w.Value)
		}
	}
	return out
}

// ResetWrites clears the write log.
func (s *Sim) ResetWrites() {
	s.Writes = nil
}

// Script returns an OnRun hook that moves the craft through the given
// positions, one per tick, holding the last one.
func Script(track ...core.Position3D) func(*Sim) {
	i := 0
	return func(s *Sim) {
		if len(track) == 0 {
			return
		}
		if i >= len(track) {
			i = len(track) - 1
		}
		s.Place(track[i])
		i++
	}
}
