package rollout

// DemoAction is the fixed action of the demo rollout: slight right roll,
// nose down, no rudder, half throttle.
var DemoAction = []float64{0.05, -0.2, 0, 0.5}

// Policy picks the next action from the latest observation-plus-goal payload.
type Policy interface {
	Act(payload []float64) []float64
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(payload []float64) []float64

// Act implements Policy.
func (f PolicyFunc) Act(payload []float64) []float64 {
	return f(payload)
}

// ConstantPolicy always returns the same action.
type ConstantPolicy []float64

// Act implements Policy.
func (p ConstantPolicy) Act([]float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
