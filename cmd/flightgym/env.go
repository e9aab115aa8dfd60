package main

import (
	"fmt"
	"log/slog"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/internal/env"
	"github.com/flightgym/flightgym/internal/fdm"
	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/internal/render"
	"github.com/flightgym/flightgym/pkg/core"
)

// buildEnv makes the configured environment. The returned waypoints are the
// configured route, nil when the built-in one is used.
func buildEnv(sim fdm.Simulator, envCfg config.EnvConfig, renderSteps bool, logger *slog.Logger) (env.Env, []core.Position3D, error) {
	var waypoints []core.Position3D
	if envCfg.Waypoints != "" {
		var err error
		waypoints, err = geo.ParseWaypoints(envCfg.Waypoints)
		if err != nil {
			return nil, nil, err
		}
	}

	episodeCfg := config.GetEpisodeConfig()
	rewardCfg := config.GetRewardConfig()
	opts := env.Options{
		Simulator:         sim,
		Logger:            logger,
		DownSample:        episodeCfg.DownSample,
		GoalThreshold:     episodeCfg.GoalThreshold,
		RewardMode:        env.RewardMode(rewardCfg.Mode),
		RewardCoefficient: rewardCfg.Coefficient,
		MaxEpisodeSteps:   envCfg.MaxEpisodeSteps,
		Waypoints:         waypoints,
	}
	if renderSteps {
		opts.Viewers = render.LogFactory(logger.With("component", "viewer"))
	}

	e, err := env.NewDefaultRegistry().Make(envCfg.ID, opts)
	if err != nil {
		return nil, nil, err
	}
	return e, waypoints, nil
}

// parseGoal parses the configured "lat,lon,alt" goal. Empty means none.
func parseGoal(s string) (*geo.Geodetic, error) {
	if s == "" {
		return nil, nil
	}
	g, err := geo.GeodeticFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parsing goal %q: %w", s, err)
	}
	return &g, nil
}
