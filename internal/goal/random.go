package goal

import (
	"fmt"
	"math"
	mrand "math/rand/v2"

	"github.com/flightgym/flightgym/pkg/core"
)

// RandomConfig bounds the random goal draw.
type RandomConfig struct {
	MinDistance float64
	MaxDistance float64
	MaxAltitude float64
	// MaxRadius rejects goals farther than this from the craft horizontally.
	MaxRadius float64
}

// DefaultRandomConfig matches the original environment's draw.
func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		MinDistance: 1000,
		MaxDistance: 10000,
		MaxAltitude: 3000,
		MaxRadius:   15000,
	}
}

// Random draws a goal at a random distance and bearing from the frame origin.
type Random struct {
	cfg  RandomConfig
	rng  *mrand.Rand
	goal core.Position3D
}

var _ Manager = (*Random)(nil)

// NewRandom creates a Random manager owning its own generator.
func NewRandom(cfg RandomConfig, src mrand.Source) *Random {
	return &Random{cfg: cfg, rng: mrand.New(src)}
}

// Reset implements Manager.
func (r *Random) Reset(c Craft, req Request) (core.Position3D, error) {
	if req.Seed != nil {
		r.rng = mrand.New(NewSource(req.Seed))
	}

	distance := r.rng.Float64()*(r.cfg.MaxDistance-r.cfg.MinDistance) + r.cfg.MinDistance
	bearing := r.rng.Float64() * 2 * math.Pi
	altitude := r.rng.Float64() * r.cfg.MaxAltitude

	g := core.Position3D{
		X: math.Cos(bearing) * distance,
		Y: math.Sin(bearing) * distance,
		Z: altitude,
	}

	obs, err := c.Observe()
	if err != nil {
		return core.Position3D{}, err
	}
	if d := core.HorizontalDistance(obs.Position(), g); d > r.cfg.MaxRadius {
		return core.Position3D{}, fmt.Errorf("%w: %.0f from craft, limit %.0f", ErrGoalOutOfRange, d, r.cfg.MaxRadius)
	}

	r.goal = g
	return g, nil
}

// Reached implements Manager. A single goal ends the episode.
func (r *Random) Reached(Craft) (core.Position3D, bool, error) {
	return r.goal, true, nil
}
