package gormstorage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// Models is the list of tables migrated by Init
var Models = []interface{}{
	&Episode{},
	&Step{},
}

// Episode is one recorded rollout
type Episode struct {
	ID          uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	EnvID       string          `json:"envId" gorm:"size:64;index:idx_episode_env_id"`
	Seed        int64           `json:"seed"` // bit pattern of the uint64 seed
	StartTime   time.Time       `json:"startTime"`
	EndTime     time.Time       `json:"endTime"`
	InitialGoal geom.Point      `json:"initialGoal"`
	Waypoints   datatypes.JSON  `json:"waypoints"`
	Track       geom.LineString `json:"-"` // LineStringZ of craft positions, one vertex per step
	Steps       uint            `json:"steps" gorm:"default:0"`
	TotalReward float64         `json:"totalReward" gorm:"default:0"`
	Reason      string          `json:"reason" gorm:"size:32"`
}

// Step is one recorded transition
type Step struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	EpisodeID   uint           `json:"episodeId" gorm:"index:idx_step_episode_id"`
	Episode     Episode        `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:EpisodeID;"`
	Step        uint           `json:"step" gorm:"index:idx_step_step"`
	Time        time.Time      `json:"time"`
	Position    geom.Point     `json:"position"` // craft position as PointZ
	Goal        geom.Point     `json:"goal"`
	Observation datatypes.JSON `json:"observation"`
	Action      datatypes.JSON `json:"action"`
	Reward      float64        `json:"reward"`
	Done        bool           `json:"done" gorm:"default:false"`
	Reason      string         `json:"reason" gorm:"size:32"`
}

func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

// coreToEpisode converts a core.Episode to a GORM Episode.
func coreToEpisode(e core.Episode) (Episode, error) {
	goal, err := geo.PointZ(e.InitialGoal)
	if err != nil {
		return Episode{}, fmt.Errorf("initial goal: %w", err)
	}
	waypoints := datatypes.JSON("[]")
	if len(e.Waypoints) > 0 {
		waypoints = toJSON(e.Waypoints)
	}
	return Episode{
		ID:          e.ID,
		EnvID:       e.EnvID,
		Seed:        int64(e.Seed),
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		InitialGoal: goal,
		Waypoints:   waypoints,
		Track:       geom.LineString{},
		Steps:       e.Steps,
		TotalReward: e.TotalReward,
		Reason:      string(e.Reason),
	}, nil
}

// episodeToCore converts a GORM Episode to a core.Episode.
func episodeToCore(e Episode) core.Episode {
	var waypoints []core.Position3D
	if len(e.Waypoints) > 0 {
		_ = json.Unmarshal(e.Waypoints, &waypoints)
	}
	return core.Episode{
		ID:          e.ID,
		EnvID:       e.EnvID,
		Seed:        uint64(e.Seed),
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		InitialGoal: geo.Position(e.InitialGoal),
		Waypoints:   waypoints,
		Steps:       e.Steps,
		TotalReward: e.TotalReward,
		Reason:      core.Reason(e.Reason),
	}
}

// coreToStep converts a core.StepRecord to a GORM Step.
func coreToStep(s core.StepRecord) (Step, error) {
	pos, err := geo.PointZ(s.Observation.Position())
	if err != nil {
		return Step{}, fmt.Errorf("step %d position: %w", s.Step, err)
	}
	goal, err := geo.PointZ(s.Goal)
	if err != nil {
		return Step{}, fmt.Errorf("step %d goal: %w", s.Step, err)
	}
	return Step{
		EpisodeID:   s.EpisodeID,
		Step:        s.Step,
		Time:        s.Time,
		Position:    pos,
		Goal:        goal,
		Observation: toJSON(s.Observation),
		Action:      toJSON(s.Action),
		Reward:      s.Reward,
		Done:        s.Done,
		Reason:      string(s.Reason),
	}, nil
}

// stepToCore converts a GORM Step to a core.StepRecord.
func stepToCore(s Step) core.StepRecord {
	rec := core.StepRecord{
		EpisodeID: s.EpisodeID,
		Step:      s.Step,
		Time:      s.Time,
		Goal:      geo.Position(s.Goal),
		Reward:    s.Reward,
		Done:      s.Done,
		Reason:    core.Reason(s.Reason),
	}
	_ = json.Unmarshal(s.Observation, &rec.Observation)
	_ = json.Unmarshal(s.Action, &rec.Action)
	return rec
}
