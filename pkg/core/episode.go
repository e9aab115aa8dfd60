// pkg/core/episode.go
package core

import "time"

// Reason describes why a step ended the way it did.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonCollision       Reason = "collision"
	ReasonGoalReached     Reason = "goal_reached"
	ReasonWaypointReached Reason = "waypoint_reached"
	ReasonTruncated       Reason = "truncated"
	ReasonInterrupted     Reason = "interrupted"
)

// Info keys set by the episode machine and its decorators.
const (
	InfoReason    = "reason"
	InfoStep      = "step"
	InfoProgress  = "progress"
	InfoTruncated = "truncated"
	InfoDistance  = "distance"
)

// Info carries auxiliary per-step data.
type Info map[string]any

// Transition is the result of one outer step.
type Transition struct {
	Observation []float64 // observation followed by goal
	Reward      float64
	Done        bool
	Info        Info
}

// Reason returns the termination/progress reason stored in Info, if any.
func (t Transition) Reason() Reason {
	if t.Info == nil {
		return ReasonNone
	}
	r, _ := t.Info[InfoReason].(Reason)
	return r
}

// Progress is the waypoint progression state.
type Progress struct {
	Current   int `json:"current" msgpack:"current"`
	Next      int `json:"next" msgpack:"next"`
	GoalIndex int `json:"goalIndex" msgpack:"goalIndex"`
}

// Episode is a recorded rollout.
// ID is assigned by the storage backend on StartEpisode.
type Episode struct {
	ID          uint         `json:"id" msgpack:"id"`
	EnvID       string       `json:"envId" msgpack:"envId"`
	Seed        uint64       `json:"seed" msgpack:"seed"`
	StartTime   time.Time    `json:"startTime" msgpack:"startTime"`
	EndTime     time.Time    `json:"endTime" msgpack:"endTime"`
	InitialGoal Position3D   `json:"initialGoal" msgpack:"initialGoal"`
	Waypoints   []Position3D `json:"waypoints,omitempty" msgpack:"waypoints,omitempty"`
	Steps       uint         `json:"steps" msgpack:"steps"`
	TotalReward float64      `json:"totalReward" msgpack:"totalReward"`
	Reason      Reason       `json:"reason" msgpack:"reason"`
}

// StepRecord is one recorded transition.
type StepRecord struct {
	EpisodeID   uint        `json:"episodeId" msgpack:"episodeId"`
	Step        uint        `json:"step" msgpack:"step"`
	Time        time.Time   `json:"time" msgpack:"time"`
	Observation Observation `json:"observation" msgpack:"observation"`
	Goal        Position3D  `json:"goal" msgpack:"goal"`
	Action      Action      `json:"action" msgpack:"action"`
	Reward      float64     `json:"reward" msgpack:"reward"`
	Done        bool        `json:"done" msgpack:"done"`
	Reason      Reason      `json:"reason,omitempty" msgpack:"reason,omitempty"`
}
