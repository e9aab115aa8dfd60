// Package fdm is the typed boundary to the external flight-dynamics simulator.
// Only the enumerated properties below can be read or written.
package fdm

import "fmt"

// Property is a simulator property the environment reads or writes.
type Property int

const (
	LatGCRad Property = iota
	LongGCRad
	HSLMeters
	Mach
	AlphaRad
	BetaRad
	PRadSec
	QRadSec
	RRadSec
	PhiRad
	ThetaRad
	PsiRad

	AileronCmdNorm
	ElevatorCmdNorm
	RudderCmdNorm
	ThrottleCmdNorm
	Tank0ContentsLbs
	Tank1ContentsLbs
	GearCmdNorm
	GearPosNorm
	SetRunning
	ICUFps
	ICHSLFt

	numProperties
)

var propertyNames = [numProperties]string{
	LatGCRad:         "position/lat-gc-rad",
	LongGCRad:        "position/long-gc-rad",
	HSLMeters:        "position/h-sl-meters",
	Mach:             "velocities/mach",
	AlphaRad:         "aero/alpha-rad",
	BetaRad:          "aero/beta-rad",
	PRadSec:          "velocities/p-rad_sec",
	QRadSec:          "velocities/q-rad_sec",
	RRadSec:          "velocities/r-rad_sec",
	PhiRad:           "attitude/phi-rad",
	ThetaRad:         "attitude/theta-rad",
	PsiRad:           "attitude/psi-rad",
	AileronCmdNorm:   "fcs/aileron-cmd-norm",
	ElevatorCmdNorm:  "fcs/elevator-cmd-norm",
	RudderCmdNorm:    "fcs/rudder-cmd-norm",
	ThrottleCmdNorm:  "fcs/throttle-cmd-norm",
	Tank0ContentsLbs: "propulsion/tank/contents-lbs",
	Tank1ContentsLbs: "propulsion/tank[1]/contents-lbs",
	GearCmdNorm:      "gear/gear-cmd-norm",
	GearPosNorm:      "gear/gear-pos-norm",
	SetRunning:       "propulsion/set-running",
	ICUFps:           "ic/u-fps",
	ICHSLFt:          "ic/h-sl-ft",
}

// StateFormat is the ordered list of properties that make up an observation.
var StateFormat = [...]Property{
	LatGCRad,
	LongGCRad,
	HSLMeters,
	Mach,
	AlphaRad,
	BetaRad,
	PRadSec,
	QRadSec,
	RRadSec,
	PhiRad,
	ThetaRad,
	PsiRad,
}

// String returns the simulator property path.
func (p Property) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Property(%d)", int(p))
	}
	return propertyNames[p]
}

// Valid reports whether p is one of the enumerated properties.
func (p Property) Valid() bool {
	return p >= 0 && p < numProperties
}

// Properties returns every enumerated property.
func Properties() []Property {
	out := make([]Property, numProperties)
	for i := range out {
		out[i] = Property(i)
	}
	return out
}
