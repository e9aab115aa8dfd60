package fdm

import (
	"fmt"

	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/pkg/core"
)

// PropertyStore reads and writes simulator properties.
type PropertyStore interface {
	GetProperty(p Property) (float64, error)
	SetProperty(p Property, v float64) error
}

// Simulator is the external flight-dynamics engine. Implementations are not
// safe for concurrent use; each environment owns exactly one.
type Simulator interface {
	PropertyStore

	// RunIC resets the simulation to its configured initial conditions.
	RunIC() error
	// Run advances the simulation by one fixed timestep.
	Run() error
	Close() error
}

// ReadState reads the observation vector from the simulator. Latitude and
// longitude are scaled from radians to metres; the rest pass through.
func ReadState(s PropertyStore) (core.Observation, error) {
	var obs core.Observation
	for i, p := range StateFormat {
		v, err := s.GetProperty(p)
		if err != nil {
			return core.Observation{}, fmt.Errorf("reading %s: %w", p, err)
		}
		obs[i] = v
	}

	obs[core.IdxLat] = geo.RadiansToLinear(obs[core.IdxLat])
	obs[core.IdxLon] = geo.RadiansToLinear(obs[core.IdxLon])
	return obs, nil
}

// SetPosition places the craft at a local-frame position. This is the inverse
// of the position scaling in ReadState.
func SetPosition(s PropertyStore, p core.Position3D) error {
	if err := s.SetProperty(LatGCRad, geo.LinearToRadians(p.X)); err != nil {
		return fmt.Errorf("setting latitude: %w", err)
	}
	if err := s.SetProperty(LongGCRad, geo.LinearToRadians(p.Y)); err != nil {
		return fmt.Errorf("setting longitude: %w", err)
	}
	if err := s.SetProperty(HSLMeters, p.Z); err != nil {
		return fmt.Errorf("setting altitude: %w", err)
	}
	return nil
}

// SetControls writes the four control commands.
func SetControls(s PropertyStore, a core.Action) error {
	writes := [...]struct {
		p Property
		v float64
	}{
		{AileronCmdNorm, a.Roll},
		{ElevatorCmdNorm, a.Pitch},
		{RudderCmdNorm, a.Yaw},
		{ThrottleCmdNorm, a.Throttle},
	}
	for _, w := range writes {
		if err := s.SetProperty(w.p, w.v); err != nil {
			return fmt.Errorf("setting %s: %w", w.p, err)
		}
	}
	return nil
}

// Geodetic reads the craft's raw geodetic position (degrees, metres).
func Geodetic(s PropertyStore) (geo.Geodetic, error) {
	lat, err := s.GetProperty(LatGCRad)
	if err != nil {
		return geo.Geodetic{}, fmt.Errorf("reading %s: %w", LatGCRad, err)
	}
	lon, err := s.GetProperty(LongGCRad)
	if err != nil {
		return geo.Geodetic{}, fmt.Errorf("reading %s: %w", LongGCRad, err)
	}
	alt, err := s.GetProperty(HSLMeters)
	if err != nil {
		return geo.Geodetic{}, fmt.Errorf("reading %s: %w", HSLMeters, err)
	}
	return geo.GeodeticFromRadians(lat, lon, alt), nil
}
