package episode

// Config holds the episode rules and simulator pins.
type Config struct {
	// DownSample is the number of simulator ticks per Step.
	DownSample int
	// GoalThreshold applies separately to horizontal and vertical distance.
	GoalThreshold float64
	// CollisionAltitude is the altitude in metres below which the craft has crashed.
	CollisionAltitude float64

	CollisionReward float64
	GoalReward      float64

	// FreezeFuel pins both tanks to FuelLbs on every tick.
	FreezeFuel bool
	FuelLbs    float64
	// ForceGearUp pins gear command and position to retracted on every tick.
	ForceGearUp bool
	// RetractGearOnReset retracts the gear once when an episode starts.
	RetractGearOnReset bool

	InitialSpeedFps   float64
	InitialAltitudeFt float64
}

// DefaultConfig returns the standard navigation task rules.
func DefaultConfig() Config {
	return Config{
		DownSample:         4,
		GoalThreshold:      100,
		CollisionAltitude:  10,
		CollisionReward:    -10,
		GoalReward:         10,
		FreezeFuel:         true,
		FuelLbs:            1000,
		ForceGearUp:        false,
		RetractGearOnReset: true,
		InitialSpeedFps:    900,
		InitialAltitudeFt:  5000,
	}
}
