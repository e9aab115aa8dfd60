package env

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/flightgym/flightgym/internal/episode"
	"github.com/flightgym/flightgym/internal/fdm"
	"github.com/flightgym/flightgym/internal/goal"
	"github.com/flightgym/flightgym/internal/render"
	"github.com/flightgym/flightgym/pkg/core"
)

// Registered environment ids.
const (
	IDRandomGoal = "JSBSim-v0"
	IDCommanded  = "JSBSimCC-v0"
	IDWaypoints  = "JSBSimEnvPoints-v0"
)

// ErrUnknownEnv is returned by Make for an unregistered id.
var ErrUnknownEnv = errors.New("unknown environment")

// Options configure an environment built by the registry.
type Options struct {
	Simulator fdm.Simulator
	Viewers   render.Factory
	Logger    *slog.Logger

	// Seed seeds the goal generator. Nil draws from system entropy.
	Seed *uint64
	// DownSample and GoalThreshold override the episode rules when non-zero.
	DownSample    int
	GoalThreshold float64

	RewardMode        RewardMode
	RewardCoefficient float64
	MaxEpisodeSteps   int

	// Waypoints replaces the default route of the waypoint environment.
	Waypoints []core.Position3D
}

// Builder creates an environment from options.
type Builder func(opts Options) (Env, error)

// Registry maps environment ids to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// NewDefaultRegistry returns a registry holding the three navigation environments.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(IDRandomGoal, buildRandomGoal)
	r.MustRegister(IDCommanded, buildCommanded)
	r.MustRegister(IDWaypoints, buildWaypoints)
	return r
}

// Register adds a builder. Ids may only be registered once.
func (r *Registry) Register(id string, b Builder) error {
	if id == "" || b == nil {
		return errors.New("id and builder are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[id]; ok {
		return fmt.Errorf("environment %q already registered", id)
	}
	r.builders[id] = b
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(id string, b Builder) {
	if err := r.Register(id, b); err != nil {
		panic(err)
	}
}

// Make builds the environment registered under id.
func (r *Registry) Make(id string, opts Options) (Env, error) {
	r.mu.RLock()
	b, ok := r.builders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnv, id)
	}
	if opts.Simulator == nil {
		return nil, errors.New("simulator is required")
	}
	return b(opts)
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.builders))
	for id := range r.builders {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func buildRandomGoal(opts Options) (Env, error) {
	g := goal.NewRandom(goal.DefaultRandomConfig(), goal.NewSource(opts.Seed))
	return wrap(opts, g, episode.DefaultConfig())
}

func buildCommanded(opts Options) (Env, error) {
	g := goal.NewCommanded(goal.DefaultCommandedConfig(), goal.NewSource(opts.Seed))
	cfg := episode.DefaultConfig()
	cfg.RetractGearOnReset = false
	return wrap(opts, g, cfg)
}

func buildWaypoints(opts Options) (Env, error) {
	wcfg := goal.DefaultWaypointsConfig()
	if len(opts.Waypoints) > 0 {
		wcfg.Points = opts.Waypoints
	}
	g, err := goal.NewWaypoints(wcfg)
	if err != nil {
		return nil, err
	}
	cfg := episode.DefaultConfig()
	cfg.ForceGearUp = true
	return wrap(opts, g, cfg)
}

// wrap builds the facade and applies the standard decorators.
func wrap(opts Options, g goal.Manager, cfg episode.Config) (Env, error) {
	if opts.DownSample > 0 {
		cfg.DownSample = opts.DownSample
	}
	if opts.GoalThreshold > 0 {
		cfg.GoalThreshold = opts.GoalThreshold
	}
	base, err := NewFacade(Dependencies{
		Simulator: opts.Simulator,
		Goals:     g,
		Viewers:   opts.Viewers,
		Logger:    opts.Logger,
	}, cfg)
	if err != nil {
		return nil, err
	}

	coef := opts.RewardCoefficient
	if coef == 0 {
		coef = DefaultRewardCoefficient
	}
	shaped, err := NewPositionReward(base, opts.RewardMode, coef)
	if err != nil {
		return nil, err
	}

	steps := opts.MaxEpisodeSteps
	if steps == 0 {
		steps = DefaultMaxEpisodeSteps
	}
	return NewTimeLimit(shaped, steps), nil
}
