package geo

import (
	"encoding/json"
	"fmt"

	"github.com/flightgym/flightgym/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParseWaypoints parses a JSON array of local-frame points into waypoints.
// Input format: "[[n1,e1,alt1],[n2,e2,alt2],...]"
func ParseWaypoints(input string) ([]core.Position3D, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse waypoints JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("waypoints must have at least 2 points, got %d", len(coords))
	}

	points := make([]core.Position3D, len(coords))
	for i, coord := range coords {
		if len(coord) != 3 {
			return nil, fmt.Errorf("waypoint %d must have 3 values, got %d", i, len(coord))
		}
		points[i] = core.Position3D{X: coord[0], Y: coord[1], Z: coord[2]}
	}

	return points, nil
}

// PointZ converts a local position to a geom.Point with elevation.
func PointZ(p core.Position3D) (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Z:    p.Z,
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid point %v: %w", p, err)
	}
	return pt, nil
}

// Position converts a geom.Point back to a local position. An empty point
// yields the origin.
func Position(p geom.Point) core.Position3D {
	c, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{X: c.XY.X, Y: c.XY.Y, Z: c.Z}
}

// TrackLineString builds a LineString Z from a sequence of positions.
// Fewer than 2 positions yields an empty LineString. A track that never
// leaves its starting XY is not a valid LineString and returns an error.
func TrackLineString(track []core.Position3D) (geom.LineString, error) {
	if len(track) < 2 {
		return geom.LineString{}, nil
	}
	flat := make([]float64, 0, len(track)*3)
	for _, p := range track {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("invalid track of %d positions: %w", len(track), err)
	}
	return ls, nil
}

// Track converts a LineString back into positions.
func Track(ls geom.LineString) []core.Position3D {
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return nil
	}
	track := make([]core.Position3D, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		c := seq.Get(i)
		track[i] = core.Position3D{X: c.X, Y: c.Y, Z: c.Z}
	}
	return track
}
