// Package env exposes episodes through a reset/step/render/close interface
// and composes them with reward and time-limit decorators.
package env

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/flightgym/flightgym/internal/episode"
	"github.com/flightgym/flightgym/internal/fdm"
	"github.com/flightgym/flightgym/internal/goal"
	"github.com/flightgym/flightgym/internal/render"
	"github.com/flightgym/flightgym/pkg/core"
)

// ErrInvalidAction is returned for an action of the wrong size.
var ErrInvalidAction = errors.New("invalid action")

// ResetOptions are passed to Reset.
type ResetOptions struct {
	// Seed reseeds goal generation. Nil continues the current sequence.
	Seed *uint64
	// Goal overrides the generated goal where the environment accepts one.
	Goal []float64
	// Absolute marks Goal as geodetic (lat°, lon°, alt m) instead of polar.
	Absolute bool
}

// Env is a navigation environment.
type Env interface {
	// Reset starts a new episode and returns the observation followed by the goal.
	Reset(opts ResetOptions) ([]float64, error)
	// Step applies a 4-element action [roll, pitch, yaw, throttle].
	Step(action []float64) (core.Transition, error)
	Render() error
	Close() error
}

// Dependencies holds the collaborators of a Facade.
type Dependencies struct {
	Simulator fdm.Simulator
	Goals     goal.Manager
	Viewers   render.Factory
	Logger    *slog.Logger
}

// Facade is the base Env over one episode machine.
type Facade struct {
	machine *episode.Machine
	sim     fdm.Simulator
	viewers render.Factory
	viewer  render.Viewer
	log     *slog.Logger
	closed  bool
}

var _ Env = (*Facade)(nil)

// NewFacade builds the episode machine and wraps it.
func NewFacade(deps Dependencies, cfg episode.Config) (*Facade, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	m, err := episode.New(episode.Dependencies{
		Simulator: deps.Simulator,
		Goals:     deps.Goals,
		Logger:    log,
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating episode machine: %w", err)
	}

	viewers := deps.Viewers
	if viewers == nil {
		viewers = render.LogFactory(log)
	}

	return &Facade{
		machine: m,
		sim:     deps.Simulator,
		viewers: viewers,
		log:     log,
	}, nil
}

// Machine exposes the underlying episode machine.
func (f *Facade) Machine() *episode.Machine {
	return f.machine
}

// Reset implements Env.
func (f *Facade) Reset(opts ResetOptions) ([]float64, error) {
	return f.machine.Reset(goal.Request{
		Seed:     opts.Seed,
		Goal:     opts.Goal,
		Absolute: opts.Absolute,
	})
}

// Step implements Env.
func (f *Facade) Step(action []float64) (core.Transition, error) {
	a, err := core.ActionFromSlice(action)
	if err != nil {
		return core.Transition{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return f.machine.Step(a)
}

// Render draws the current state, creating the viewer on first use.
func (f *Facade) Render() error {
	if f.viewer == nil {
		v, err := f.viewers()
		if err != nil {
			return fmt.Errorf("creating viewer: %w", err)
		}
		f.viewer = v
	}

	frame := render.Frame{
		Step:        f.machine.Steps(),
		Observation: f.machine.Observation(),
		Goal:        f.machine.Goal(),
	}
	if p, ok := f.machine.Progress(); ok {
		frame.Progress = &p
	}
	return f.viewer.Render(frame)
}

// Close releases the viewer and the simulator. It is safe to call more than once.
func (f *Facade) Close() error {
	var errs []error
	if f.viewer != nil {
		if err := f.viewer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing viewer: %w", err))
		}
		f.viewer = nil
	}
	if !f.closed {
		f.closed = true
		if err := f.sim.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing simulator: %w", err))
		}
	}
	return errors.Join(errs...)
}
