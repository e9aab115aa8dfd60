package goal

import (
	"fmt"
	"math"

	"github.com/flightgym/flightgym/pkg/core"
)

// DefaultWaypoints is the built-in tracking route.
var DefaultWaypoints = []core.Position3D{
	{X: 0, Y: 0, Z: 3000},
	{X: 5000, Y: 0, Z: 3000},
	{X: 4000, Y: 4000, Z: 3000},
	{X: 6000, Y: 6000, Z: 3000},
	{X: 8000, Y: 8000, Z: 3000},
}

// WaypointsConfig configures the Waypoints manager.
type WaypointsConfig struct {
	Points              []core.Position3D
	MaxHorizontalOffset float64
	MaxVerticalOffset   float64
}

// DefaultWaypointsConfig returns the built-in route with its bounds.
func DefaultWaypointsConfig() WaypointsConfig {
	return WaypointsConfig{
		Points:              DefaultWaypoints,
		MaxHorizontalOffset: 50000,
		MaxVerticalOffset:   5000,
	}
}

// Waypoints steers the craft through an ordered, fixed sequence of points.
type Waypoints struct {
	cfg       WaypointsConfig
	current   int
	next      int
	goalIndex int
	goal      core.Position3D
}

var (
	_ Manager    = (*Waypoints)(nil)
	_ Progresser = (*Waypoints)(nil)
)

// NewWaypoints validates the sequence and creates a manager positioned at its start.
func NewWaypoints(cfg WaypointsConfig) (*Waypoints, error) {
	if len(cfg.Points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 waypoints, got %d", ErrInvalidGoal, len(cfg.Points))
	}
	points := make([]core.Position3D, len(cfg.Points))
	copy(points, cfg.Points)
	cfg.Points = points

	return &Waypoints{
		cfg:       cfg,
		current:   0,
		next:      1,
		goalIndex: len(points) - 1,
	}, nil
}

// Progress implements Progresser.
func (w *Waypoints) Progress() core.Progress {
	return core.Progress{Current: w.current, Next: w.next, GoalIndex: w.goalIndex}
}

// Points returns a copy of the route.
func (w *Waypoints) Points() []core.Position3D {
	out := make([]core.Position3D, len(w.cfg.Points))
	copy(out, w.cfg.Points)
	return out
}

// Reset implements Manager. A finished route starts over, otherwise the
// craft resumes from the last waypoint it reached.
func (w *Waypoints) Reset(c Craft, req Request) (core.Position3D, error) {
	if req.Goal != nil {
		return core.Position3D{}, fmt.Errorf("%w: waypoint route does not accept a goal override", ErrInvalidGoal)
	}

	if w.current >= w.goalIndex {
		w.current, w.next = 0, 1
	}

	if err := c.Teleport(w.cfg.Points[w.current]); err != nil {
		return core.Position3D{}, fmt.Errorf("placing craft at waypoint %d: %w", w.current, err)
	}

	g, err := w.target(c, w.next)
	if err != nil {
		return core.Position3D{}, err
	}
	w.goal = g
	return w.goal, nil
}

// Reached implements Manager. Progress only advances once the following
// waypoint has been validated; on error the indices and goal are unchanged.
func (w *Waypoints) Reached(c Craft) (core.Position3D, bool, error) {
	if w.current+1 >= w.goalIndex {
		w.current++
		w.next++
		return w.goal, true, nil
	}

	g, err := w.target(c, w.next+1)
	if err != nil {
		return w.goal, false, err
	}
	w.current++
	w.next++
	w.goal = g
	return w.goal, false, nil
}

// target returns waypoint i after checking its offset from the craft.
func (w *Waypoints) target(c Craft, i int) (core.Position3D, error) {
	obs, err := c.Observe()
	if err != nil {
		return core.Position3D{}, err
	}

	target := w.cfg.Points[i]
	offset := target.Sub(obs.Position())
	if math.Abs(offset.X) > w.cfg.MaxHorizontalOffset ||
		math.Abs(offset.Y) > w.cfg.MaxHorizontalOffset ||
		math.Abs(offset.Z) > w.cfg.MaxVerticalOffset {
		return core.Position3D{}, fmt.Errorf("%w: waypoint %d offset (%.0f, %.0f, %.0f)",
			ErrGoalOutOfRange, i, offset.X, offset.Y, offset.Z)
	}
	return target, nil
}
