// pkg/core/action.go
package core

import "fmt"

// ActionSize is the number of control values per step.
const ActionSize = 4

// Action holds normalized control commands: roll (aileron), pitch (elevator),
// yaw (rudder) and throttle.
type Action struct {
	Roll     float64 `json:"roll" msgpack:"roll"`
	Pitch    float64 `json:"pitch" msgpack:"pitch"`
	Yaw      float64 `json:"yaw" msgpack:"yaw"`
	Throttle float64 `json:"throttle" msgpack:"throttle"`
}

// ActionFromSlice builds an Action from [roll, pitch, yaw, throttle].
func ActionFromSlice(v []float64) (Action, error) {
	if len(v) != ActionSize {
		return Action{}, fmt.Errorf("action must have %d elements, got %d", ActionSize, len(v))
	}
	return Action{Roll: v[0], Pitch: v[1], Yaw: v[2], Throttle: v[3]}, nil
}

// Slice returns the action as [roll, pitch, yaw, throttle].
func (a Action) Slice() []float64 {
	return []float64{a.Roll, a.Pitch, a.Yaw, a.Throttle}
}
