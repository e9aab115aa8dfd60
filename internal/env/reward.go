package env

import (
	"fmt"

	"github.com/flightgym/flightgym/pkg/core"
)

// RewardMode selects how PositionReward shapes the reward.
type RewardMode string

const (
	// RewardPenalty subtracts coefficient × distance to goal every step.
	RewardPenalty RewardMode = "penalty"
	// RewardProgress adds coefficient × the distance closed since the last step.
	RewardProgress RewardMode = "progress"
)

// DefaultRewardCoefficient is the shaping weight used by the registered environments.
const DefaultRewardCoefficient = 1e-2

// PositionReward adds a distance-based term to the wrapped environment's reward.
type PositionReward struct {
	Env
	mode         RewardMode
	coefficient  float64
	lastDistance float64
}

// NewPositionReward wraps inner.
func NewPositionReward(inner Env, mode RewardMode, coefficient float64) (*PositionReward, error) {
	switch mode {
	case RewardPenalty, RewardProgress:
	case "":
		mode = RewardPenalty
	default:
		return nil, fmt.Errorf("unknown reward mode %q", mode)
	}
	return &PositionReward{Env: inner, mode: mode, coefficient: coefficient}, nil
}

// Reset implements Env.
func (r *PositionReward) Reset(opts ResetOptions) ([]float64, error) {
	payload, err := r.Env.Reset(opts)
	if err != nil {
		return nil, err
	}
	if d, ok := payloadDistance(payload); ok {
		r.lastDistance = d
	}
	return payload, nil
}

// Step implements Env. The shaping term is applied on terminal steps too.
func (r *PositionReward) Step(action []float64) (core.Transition, error) {
	tr, err := r.Env.Step(action)
	if err != nil {
		return tr, err
	}

	d, ok := payloadDistance(tr.Observation)
	if !ok {
		return tr, nil
	}

	switch r.mode {
	case RewardProgress:
		tr.Reward += r.coefficient * (r.lastDistance - d)
	default:
		tr.Reward -= r.coefficient * d
	}
	r.lastDistance = d
	return tr, nil
}

func payloadDistance(payload []float64) (float64, bool) {
	obs, g, ok := core.SplitPayload(payload)
	if !ok {
		return 0, false
	}
	return core.Distance(obs.Position(), g), true
}
