package goal

import (
	"fmt"
	"math"
	mrand "math/rand/v2"

	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/pkg/core"
)

// CommandedConfig configures the Commanded manager.
type CommandedConfig struct {
	// MaxOffset bounds each axis of a commanded goal's offset from the craft.
	MaxOffset float64
	Random    RandomConfig
}

// DefaultCommandedConfig returns the default bounds.
func DefaultCommandedConfig() CommandedConfig {
	return CommandedConfig{MaxOffset: 5000, Random: DefaultRandomConfig()}
}

// Commanded uses the goal supplied with the reset request, falling back to a
// random draw when none is given.
type Commanded struct {
	cfg    CommandedConfig
	random *Random
	goal   core.Position3D
}

var _ Manager = (*Commanded)(nil)

// NewCommanded creates a Commanded manager. src feeds the random fallback.
func NewCommanded(cfg CommandedConfig, src mrand.Source) *Commanded {
	return &Commanded{cfg: cfg, random: NewRandom(cfg.Random, src)}
}

// Reset implements Manager.
func (m *Commanded) Reset(c Craft, req Request) (core.Position3D, error) {
	if req.Goal == nil {
		g, err := m.random.Reset(c, req)
		if err != nil {
			return core.Position3D{}, err
		}
		m.goal = g
		return g, nil
	}

	if len(req.Goal) != 3 {
		return core.Position3D{}, fmt.Errorf("%w: need 3 elements, got %d", ErrInvalidGoal, len(req.Goal))
	}

	var g core.Position3D
	if req.Absolute {
		var err error
		g, err = m.absolute(c, geo.Geodetic{Lat: req.Goal[0], Lon: req.Goal[1], Alt: req.Goal[2]})
		if err != nil {
			return core.Position3D{}, err
		}
	} else {
		var err error
		g, err = m.polar(c, req.Goal[0], req.Goal[1], req.Goal[2])
		if err != nil {
			return core.Position3D{}, err
		}
	}

	m.goal = g
	return g, nil
}

// polar resolves a distance, bearing and altitude goal. The horizontal
// components and the climb from the craft's altitude are each held to
// MaxOffset.
func (m *Commanded) polar(c Craft, distance, bearing, altitude float64) (core.Position3D, error) {
	g := core.Position3D{
		X: math.Cos(bearing) * distance,
		Y: math.Sin(bearing) * distance,
		Z: altitude,
	}

	obs, err := c.Observe()
	if err != nil {
		return core.Position3D{}, err
	}
	d := altitude - obs.Position().Z

	limit := m.cfg.MaxOffset
	if math.Abs(g.X) > limit || math.Abs(g.Y) > limit || math.Abs(d) > limit {
		return core.Position3D{}, fmt.Errorf("%w: offset (%.0f, %.0f, %.0f), limit %.0f",
			ErrGoalOutOfRange, g.X, g.Y, d, limit)
	}
	return g, nil
}

// absolute resolves a geodetic goal to an offset relative to the craft.
func (m *Commanded) absolute(c Craft, target geo.Geodetic) (core.Position3D, error) {
	craft, err := c.Geodetic()
	if err != nil {
		return core.Position3D{}, err
	}

	// craft relative to goal, negated below to get goal relative to craft
	ned := geo.GeodeticToNED(craft, target)
	n, e, d := -ned.North, -ned.East, ned.Down

	limit := m.cfg.MaxOffset
	if math.Abs(n) > limit || math.Abs(e) > limit || math.Abs(d) > limit {
		return core.Position3D{}, fmt.Errorf("%w: offset (%.0f, %.0f, %.0f), limit %.0f",
			ErrGoalOutOfRange, n, e, d, limit)
	}

	return core.Position3D{X: n, Y: e, Z: target.Alt}, nil
}

// Reached implements Manager. A single goal ends the episode.
func (m *Commanded) Reached(Craft) (core.Position3D, bool, error) {
	return m.goal, true, nil
}
