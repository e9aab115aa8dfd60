package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec returns p as a gonum vector.
func (p Position3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Sub returns p - q.
func (p Position3D) Sub(q Position3D) Position3D {
	v := r3.Sub(p.Vec(), q.Vec())
	return Position3D{X: v.X, Y: v.Y, Z: v.Z}
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Position3D) float64 {
	return r3.Norm(r3.Sub(a.Vec(), b.Vec()))
}

// HorizontalDistance is the Euclidean distance between a and b ignoring altitude.
func HorizontalDistance(a, b Position3D) float64 {
	d := r3.Sub(a.Vec(), b.Vec())
	d.Z = 0
	return r3.Norm(d)
}

// VerticalDistance is the absolute altitude difference between a and b.
func VerticalDistance(a, b Position3D) float64 {
	return math.Abs(a.Z - b.Z)
}
