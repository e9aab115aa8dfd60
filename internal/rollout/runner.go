// Package rollout drives environments with a policy and records the episodes.
package rollout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flightgym/flightgym/internal/dispatcher"
	"github.com/flightgym/flightgym/internal/env"
	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/internal/logging"
	"github.com/flightgym/flightgym/internal/metrics"
	"github.com/flightgym/flightgym/pkg/core"
)

// ErrMalformedPayload is returned when the env returns a payload of the wrong size.
var ErrMalformedPayload = errors.New("malformed observation payload")

// Dependencies holds the collaborators of a Runner. Env and Policy are required.
type Dependencies struct {
	Env        env.Env
	Policy     Policy
	Dispatcher *dispatcher.Dispatcher
	Metrics    *metrics.Recorder
	Tracker    *logging.EpisodeTracker
	Logger     *slog.Logger
}

// Config holds rollout settings.
type Config struct {
	EnvID  string
	Render bool
	// Seed reseeds goal generation on the first episode only; later episodes
	// continue the sequence.
	Seed *uint64
	// Waypoints is recorded with every episode.
	Waypoints []core.Position3D
	// Goal, when set, is passed as an absolute goal on every reset.
	Goal *geo.Geodetic
}

// Runner runs episodes one after another.
type Runner struct {
	deps Dependencies
	cfg  Config
	log  *slog.Logger
	now  func() time.Time
	runs int
}

// New validates the dependencies and creates a Runner.
func New(deps Dependencies, cfg Config) (*Runner, error) {
	if deps.Env == nil {
		return nil, errors.New("env is required")
	}
	if deps.Policy == nil {
		return nil, errors.New("policy is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		deps: deps,
		cfg:  cfg,
		log:  log.With("component", "rollout"),
		now:  time.Now,
	}, nil
}

// Run runs up to episodes episodes and returns their summaries. Cancelling ctx
// finishes the current episode with the interrupted reason and stops.
func (r *Runner) Run(ctx context.Context, episodes int) ([]core.Episode, error) {
	var out []core.Episode
	for i := 0; i < episodes; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ep, err := r.RunEpisode(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, ep)
	}
	return out, ctx.Err()
}

// RunEpisode resets the env and steps it until the episode is done.
func (r *Runner) RunEpisode(ctx context.Context) (core.Episode, error) {
	var seed *uint64
	if r.runs == 0 {
		seed = r.cfg.Seed
	}
	r.runs++

	opts := env.ResetOptions{Seed: seed}
	if g := r.cfg.Goal; g != nil {
		opts.Goal = []float64{g.Lat, g.Lon, g.Alt}
		opts.Absolute = true
	}
	payload, err := r.deps.Env.Reset(opts)
	if err != nil {
		return core.Episode{}, fmt.Errorf("resetting env: %w", err)
	}
	_, goal, ok := core.SplitPayload(payload)
	if !ok {
		return core.Episode{}, fmt.Errorf("%w: %d values", ErrMalformedPayload, len(payload))
	}

	ep := &core.Episode{
		EnvID:       r.cfg.EnvID,
		StartTime:   r.now(),
		InitialGoal: goal,
		Waypoints:   r.cfg.Waypoints,
	}
	if seed != nil {
		ep.Seed = *seed
	}
	if err := r.dispatch(dispatcher.Event{Kind: dispatcher.EpisodeStart, Episode: ep}); err != nil {
		return *ep, fmt.Errorf("recording episode start: %w", err)
	}
	if r.deps.Tracker != nil {
		r.deps.Tracker.Begin(ep.EnvID, ep.ID)
		defer r.deps.Tracker.End()
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.EpisodeStarted(ctx, ep.EnvID)
	}
	r.log.Info("Episode started", "episode", ep.ID, "goal", goal.Slice())

	for {
		if ctx.Err() != nil {
			ep.Reason = core.ReasonInterrupted
			break
		}

		action := r.deps.Policy.Act(payload)
		tr, err := r.deps.Env.Step(action)
		if err != nil {
			return *ep, fmt.Errorf("step %d: %w", ep.Steps+1, err)
		}
		obs, goal, ok := core.SplitPayload(tr.Observation)
		if !ok {
			return *ep, fmt.Errorf("%w: %d values", ErrMalformedPayload, len(tr.Observation))
		}
		act, _ := core.ActionFromSlice(action)

		ep.Steps++
		ep.TotalReward += tr.Reward
		rec := &core.StepRecord{
			EpisodeID:   ep.ID,
			Step:        ep.Steps,
			Time:        r.now(),
			Observation: obs,
			Goal:        goal,
			Action:      act,
			Reward:      tr.Reward,
			Done:        tr.Done,
			Reason:      tr.Reason(),
		}
		if err := r.dispatch(dispatcher.Event{Kind: dispatcher.StepRecorded, Step: rec}); err != nil {
			return *ep, fmt.Errorf("recording step %d: %w", ep.Steps, err)
		}
		if r.deps.Tracker != nil {
			r.deps.Tracker.Step(int(ep.Steps))
		}
		if r.deps.Metrics != nil {
			r.deps.Metrics.Step(ctx, ep.EnvID, rec.Reason)
		}
		if rec.Reason == core.ReasonWaypointReached {
			r.log.Info("Waypoint reached", "step", ep.Steps, "next", goal.Slice())
		}

		if r.cfg.Render {
			if err := r.deps.Env.Render(); err != nil {
				return *ep, fmt.Errorf("rendering: %w", err)
			}
		}

		payload = tr.Observation
		if tr.Done {
			ep.Reason = rec.Reason
			break
		}
	}

	ep.EndTime = r.now()
	if err := r.dispatch(dispatcher.Event{Kind: dispatcher.EpisodeEnd, Episode: ep}); err != nil {
		return *ep, fmt.Errorf("recording episode end: %w", err)
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.EpisodeFinished(ctx, ep.EnvID, ep.Reason, ep.TotalReward)
	}
	r.log.Info("Episode finished",
		"episode", ep.ID,
		"steps", ep.Steps,
		"reward", ep.TotalReward,
		"reason", string(ep.Reason),
		"duration", ep.EndTime.Sub(ep.StartTime),
	)
	return *ep, nil
}

func (r *Runner) dispatch(e dispatcher.Event) error {
	d := r.deps.Dispatcher
	if d == nil || !d.HasHandler(e.Kind) {
		return nil
	}
	_, err := d.Dispatch(e)
	return err
}
