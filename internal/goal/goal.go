// Package goal produces and advances navigation goals for an episode.
// Three strategies share the Manager interface: Random, Commanded and Waypoints.
package goal

import (
	"crypto/rand"
	"errors"
	mrand "math/rand/v2"

	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/pkg/core"
)

var (
	// ErrInvalidGoal is returned for a malformed goal request.
	ErrInvalidGoal = errors.New("invalid goal")
	// ErrGoalOutOfRange is returned when a goal violates its variant's distance bound.
	ErrGoalOutOfRange = errors.New("goal out of range")
)

// Craft is the view of the simulated aircraft a Manager may use.
type Craft interface {
	// Observe reads the current observation.
	Observe() (core.Observation, error)
	// Geodetic reads the raw geodetic position.
	Geodetic() (geo.Geodetic, error)
	// Teleport places the craft at a local-frame position.
	Teleport(p core.Position3D) error
}

// Request carries per-reset goal options.
type Request struct {
	// Seed reseeds the random source when set.
	Seed *uint64
	// Goal overrides the generated goal. Polar (distance, bearing, altitude)
	// unless Absolute is set, in which case it is geodetic (lat°, lon°, alt m).
	Goal     []float64
	Absolute bool
}

// Manager produces the goal for a new episode and advances it when reached.
type Manager interface {
	// Reset returns the goal for a new episode.
	Reset(c Craft, req Request) (core.Position3D, error)
	// Reached is called when the craft reaches the current goal. It returns the
	// next goal, or done=true when there is nothing left to reach.
	Reached(c Craft) (next core.Position3D, done bool, err error)
}

// Progresser is implemented by managers that track waypoint progression.
type Progresser interface {
	Progress() core.Progress
}

// NewSource returns a PCG source for seed, or one seeded from system entropy
// when seed is nil.
func NewSource(seed *uint64) mrand.Source {
	if seed != nil {
		return mrand.NewPCG(*seed, *seed)
	}
	var b [32]byte
	_, _ = rand.Read(b[:])
	return mrand.NewChaCha8(b)
}

// Seed is a convenience for building a Request seed.
func Seed(v uint64) *uint64 {
	return &v
}
