// pkg/core/observation.go
package core

// Observation sizes
const (
	ObservationSize = 12
	GoalSize        = 3
	PayloadSize     = ObservationSize + GoalSize
)

// Observation field indices, in the fixed order the state is read from the simulator.
const (
	IdxLat = iota
	IdxLon
	IdxAlt
	IdxMach
	IdxAlpha
	IdxBeta
	IdxP
	IdxQ
	IdxR
	IdxPhi
	IdxTheta
	IdxPsi
)

// Observation is the 12-field projection of the simulator state:
// [lat, lon, alt, mach, alpha, beta, p, q, r, phi, theta, psi].
// Lat and Lon are already scaled to metres (small-angle approximation).
type Observation [ObservationSize]float64

// Position returns the craft position (north, east, altitude) in the local frame.
func (o Observation) Position() Position3D {
	return Position3D{X: o[IdxLat], Y: o[IdxLon], Z: o[IdxAlt]}
}

// Attitude returns roll, pitch and heading in radians.
func (o Observation) Attitude() (phi, theta, psi float64) {
	return o[IdxPhi], o[IdxTheta], o[IdxPsi]
}

// Position3D is a point in the local linear frame.
// X is north (scaled latitude), Y is east (scaled longitude), Z is altitude in metres.
type Position3D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Slice returns the position as a 3-element slice.
func (p Position3D) Slice() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// Payload concatenates the observation and the goal into the 15-float vector
// returned to callers of Reset and Step.
func Payload(obs Observation, goal Position3D) []float64 {
	out := make([]float64, 0, PayloadSize)
	out = append(out, obs[:]...)
	return append(out, goal.X, goal.Y, goal.Z)
}

// SplitPayload is the inverse of Payload. ok is false when the slice has the wrong length.
func SplitPayload(payload []float64) (obs Observation, goal Position3D, ok bool) {
	if len(payload) != PayloadSize {
		return obs, goal, false
	}
	copy(obs[:], payload[:ObservationSize])
	goal = Position3D{
		X: payload[ObservationSize],
		Y: payload[ObservationSize+1],
		Z: payload[ObservationSize+2],
	}
	return obs, goal, true
}
