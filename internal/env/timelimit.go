package env

import "github.com/flightgym/flightgym/pkg/core"

// DefaultMaxEpisodeSteps is the step budget of the registered environments.
const DefaultMaxEpisodeSteps = 1200

// TimeLimit ends an episode after a fixed number of steps.
type TimeLimit struct {
	Env
	maxSteps int
	elapsed  int
}

// NewTimeLimit wraps inner. A non-positive maxSteps disables the limit.
func NewTimeLimit(inner Env, maxSteps int) *TimeLimit {
	return &TimeLimit{Env: inner, maxSteps: maxSteps}
}

// Reset implements Env.
func (t *TimeLimit) Reset(opts ResetOptions) ([]float64, error) {
	t.elapsed = 0
	return t.Env.Reset(opts)
}

// Step implements Env. When the budget runs out on a non-terminal step the
// transition is marked done and truncated.
func (t *TimeLimit) Step(action []float64) (core.Transition, error) {
	tr, err := t.Env.Step(action)
	if err != nil {
		return tr, err
	}
	t.elapsed++

	if t.maxSteps > 0 && t.elapsed >= t.maxSteps && !tr.Done {
		if tr.Info == nil {
			tr.Info = core.Info{}
		}
		tr.Done = true
		tr.Info[core.InfoTruncated] = true
		tr.Info[core.InfoReason] = core.ReasonTruncated
	}
	return tr, nil
}

// Elapsed returns the steps taken since the last Reset.
func (t *TimeLimit) Elapsed() int {
	return t.elapsed
}
