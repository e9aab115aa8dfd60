// Package episode runs the goal-tracking episode loop over a simulator.
package episode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/flightgym/flightgym/internal/fdm"
	"github.com/flightgym/flightgym/internal/goal"
	"github.com/flightgym/flightgym/pkg/core"
)

// ErrNotRunning is returned by Step outside of a running episode.
var ErrNotRunning = errors.New("episode not running")

// Dependencies holds the collaborators of a Machine.
type Dependencies struct {
	Simulator fdm.Simulator
	Goals     goal.Manager
	Logger    *slog.Logger
}

// Machine owns one simulator and steps it through episodes. It is not safe
// for concurrent use.
type Machine struct {
	sim   fdm.Simulator
	goals goal.Manager
	craft goal.Craft
	log   *slog.Logger
	cfg   Config

	state  State
	obs    core.Observation
	goal   core.Position3D
	steps  int
	reason core.Reason
}

// New applies the initial conditions and runs them once.
func New(deps Dependencies, cfg Config) (*Machine, error) {
	if deps.Simulator == nil {
		return nil, errors.New("simulator is required")
	}
	if deps.Goals == nil {
		return nil, errors.New("goal manager is required")
	}
	if cfg.DownSample < 1 {
		return nil, fmt.Errorf("down sample must be positive, got %d", cfg.DownSample)
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	m := &Machine{
		sim:   deps.Simulator,
		goals: deps.Goals,
		craft: goal.SimCraft(deps.Simulator),
		log:   log,
		cfg:   cfg,
		state: Initialized,
	}

	ics := [...]struct {
		p fdm.Property
		v float64
	}{
		{fdm.SetRunning, -1},
		{fdm.ICUFps, cfg.InitialSpeedFps},
		{fdm.ICHSLFt, cfg.InitialAltitudeFt},
	}
	for _, ic := range ics {
		if err := m.sim.SetProperty(ic.p, ic.v); err != nil {
			return nil, fmt.Errorf("setting initial condition %s: %w", ic.p, err)
		}
	}
	if err := m.sim.RunIC(); err != nil {
		return nil, fmt.Errorf("running initial conditions: %w", err)
	}

	return m, nil
}

// State returns the lifecycle state.
func (m *Machine) State() State { return m.state }

// Observation returns the last observation read.
func (m *Machine) Observation() core.Observation { return m.obs }

// Goal returns the active goal.
func (m *Machine) Goal() core.Position3D { return m.goal }

// Steps returns the number of steps taken in the current episode.
func (m *Machine) Steps() int { return m.steps }

// Reason returns the reason recorded by the last step.
func (m *Machine) Reason() core.Reason { return m.reason }

// Progress returns the waypoint progression when the goal manager tracks one.
func (m *Machine) Progress() (core.Progress, bool) {
	p, ok := m.goals.(goal.Progresser)
	if !ok {
		return core.Progress{}, false
	}
	return p.Progress(), true
}

// Reset starts a new episode and returns the initial payload. On failure
// the machine is left Initialized.
func (m *Machine) Reset(req goal.Request) ([]float64, error) {
	if err := m.reset(req); err != nil {
		m.state = Initialized
		return nil, fmt.Errorf("resetting episode: %w", err)
	}

	m.state = Running
	m.steps = 0
	m.reason = core.ReasonNone
	m.log.Debug("episode reset",
		"goal", m.goal,
		"position", m.obs.Position())

	return core.Payload(m.obs, m.goal), nil
}

func (m *Machine) reset(req goal.Request) error {
	if err := m.sim.RunIC(); err != nil {
		return fmt.Errorf("running initial conditions: %w", err)
	}
	if err := m.sim.SetProperty(fdm.SetRunning, -1); err != nil {
		return fmt.Errorf("starting engines: %w", err)
	}
	if m.cfg.ForceGearUp || m.cfg.RetractGearOnReset {
		if err := m.pinGear(); err != nil {
			return err
		}
	}

	g, err := m.goals.Reset(m.craft, req)
	if err != nil {
		return err
	}
	m.goal = g

	obs, err := fdm.ReadState(m.sim)
	if err != nil {
		return err
	}
	m.obs = obs
	return nil
}

// Step applies the action, advances the simulator DownSample ticks and
// evaluates the episode rules. Any error ends the episode: the machine goes
// back to Initialized and must be reset.
func (m *Machine) Step(a core.Action) (core.Transition, error) {
	if m.state != Running {
		return core.Transition{}, fmt.Errorf("%w: state is %s", ErrNotRunning, m.state)
	}
	tr, err := m.step(a)
	if err != nil {
		m.state = Initialized
		m.log.Warn("episode aborted", "step", m.steps, "error", err)
		return core.Transition{}, err
	}
	return tr, nil
}

func (m *Machine) step(a core.Action) (core.Transition, error) {

	if err := fdm.SetControls(m.sim, a); err != nil {
		return core.Transition{}, err
	}

	for i := 0; i < m.cfg.DownSample; i++ {
		if m.cfg.FreezeFuel {
			if err := m.pinFuel(); err != nil {
				return core.Transition{}, err
			}
		}
		if m.cfg.ForceGearUp {
			if err := m.pinGear(); err != nil {
				return core.Transition{}, err
			}
		}
		if err := m.sim.Run(); err != nil {
			return core.Transition{}, fmt.Errorf("advancing simulator: %w", err)
		}
	}

	obs, err := fdm.ReadState(m.sim)
	if err != nil {
		return core.Transition{}, err
	}
	m.obs = obs
	m.steps++

	reward, done, err := m.evaluate()
	if err != nil {
		return core.Transition{}, err
	}

	info := core.Info{
		core.InfoReason:   m.reason,
		core.InfoStep:     m.steps,
		core.InfoDistance: core.Distance(m.obs.Position(), m.goal),
	}
	if p, ok := m.Progress(); ok {
		info[core.InfoProgress] = p
	}

	return core.Transition{
		Observation: core.Payload(m.obs, m.goal),
		Reward:      reward,
		Done:        done,
		Info:        info,
	}, nil
}

// evaluate applies the rules in precedence order: collision, then goal.
func (m *Machine) evaluate() (float64, bool, error) {
	pos := m.obs.Position()

	if pos.Z < m.cfg.CollisionAltitude {
		m.terminate(core.ReasonCollision)
		return m.cfg.CollisionReward, true, nil
	}

	if core.HorizontalDistance(pos, m.goal) < m.cfg.GoalThreshold &&
		core.VerticalDistance(pos, m.goal) < m.cfg.GoalThreshold {
		next, done, err := m.goals.Reached(m.craft)
		if err != nil {
			return 0, false, fmt.Errorf("advancing goal: %w", err)
		}
		if done {
			m.terminate(core.ReasonGoalReached)
			return m.cfg.GoalReward, true, nil
		}
		m.goal = next
		m.reason = core.ReasonWaypointReached
		m.log.Debug("waypoint reached", "step", m.steps, "next", next)
		return m.cfg.GoalReward, false, nil
	}

	m.reason = core.ReasonNone
	return 0, false, nil
}

func (m *Machine) terminate(reason core.Reason) {
	m.state = Terminated
	m.reason = reason
	m.log.Debug("episode terminated", "reason", reason, "step", m.steps)
}

func (m *Machine) pinFuel() error {
	for _, p := range [...]fdm.Property{fdm.Tank0ContentsLbs, fdm.Tank1ContentsLbs} {
		if err := m.sim.SetProperty(p, m.cfg.FuelLbs); err != nil {
			return fmt.Errorf("pinning fuel: %w", err)
		}
	}
	return nil
}

func (m *Machine) pinGear() error {
	for _, p := range [...]fdm.Property{fdm.GearCmdNorm, fdm.GearPosNorm} {
		if err := m.sim.SetProperty(p, 0); err != nil {
			return fmt.Errorf("retracting gear: %w", err)
		}
	}
	return nil
}
