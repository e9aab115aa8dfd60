// Package metrics records rollout counters through OpenTelemetry.
package metrics

import (
	"context"
	"fmt"

	"github.com/flightgym/flightgym/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/flightgym/flightgym/internal/metrics"

// Instrument names
const (
	EpisodesStarted  = "episodes.started"
	EpisodesFinished = "episodes.finished"
	EpisodeSteps     = "episode.steps"
	GoalsReached     = "goals.reached"
	EpisodeReward    = "episode.reward"
)

// Recorder holds the rollout instruments.
type Recorder struct {
	started  metric.Int64Counter
	finished metric.Int64Counter
	steps    metric.Int64Counter
	goals    metric.Int64Counter
	reward   metric.Float64Histogram
}

// NewGlobal creates a Recorder on the global meter provider.
func NewGlobal() (*Recorder, error) {
	return New(otel.Meter(instrumentationName))
}

// New creates a Recorder on the given meter.
func New(m metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	r.started, err = m.Int64Counter(EpisodesStarted,
		metric.WithDescription("Episodes reset and started"))
	if err != nil {
		return nil, fmt.Errorf("creating started counter: %w", err)
	}

	r.finished, err = m.Int64Counter(EpisodesFinished,
		metric.WithDescription("Episodes finished, by reason"))
	if err != nil {
		return nil, fmt.Errorf("creating finished counter: %w", err)
	}

	r.steps, err = m.Int64Counter(EpisodeSteps,
		metric.WithDescription("Outer steps taken"))
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	r.goals, err = m.Int64Counter(GoalsReached,
		metric.WithDescription("Goals and intermediate waypoints reached"))
	if err != nil {
		return nil, fmt.Errorf("creating goals counter: %w", err)
	}

	r.reward, err = m.Float64Histogram(EpisodeReward,
		metric.WithDescription("Total reward per finished episode"))
	if err != nil {
		return nil, fmt.Errorf("creating reward histogram: %w", err)
	}

	return r, nil
}

// EpisodeStarted counts a started episode.
func (r *Recorder) EpisodeStarted(ctx context.Context, envID string) {
	r.started.Add(ctx, 1, metric.WithAttributes(attribute.String("env", envID)))
}

// Step counts one step and, when the step reached a goal or waypoint, the goal.
func (r *Recorder) Step(ctx context.Context, envID string, reason core.Reason) {
	env := metric.WithAttributes(attribute.String("env", envID))
	r.steps.Add(ctx, 1, env)
	if reason == core.ReasonGoalReached || reason == core.ReasonWaypointReached {
		r.goals.Add(ctx, 1, env)
	}
}

// EpisodeFinished counts a finished episode and records its total reward.
func (r *Recorder) EpisodeFinished(ctx context.Context, envID string, reason core.Reason, totalReward float64) {
	attrs := metric.WithAttributes(
		attribute.String("env", envID),
		attribute.String("reason", string(reason)),
	)
	r.finished.Add(ctx, 1, attrs)
	r.reward.Record(ctx, totalReward, attrs)
}
