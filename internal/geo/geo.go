// Package geo matches placed map points against target points.
//
// Coordinates live in the map image's own normalized space, so distance is
// plain planar Euclidean distance with no spherical correction.
package geo

import "math"

// DefaultTolerance applies when a question carries no usable tolerance.
const DefaultTolerance = 30.0

// Point is a location on a flat map overlay.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the planar distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

// WithinTolerance reports whether user lies within tolerance of target.
// A distance exactly equal to the tolerance counts.
func WithinTolerance(user, target Point, tolerance float64) bool {
	return Distance(user, target) <= EffectiveTolerance(tolerance)
}

// EffectiveTolerance returns tolerance, or DefaultTolerance when tolerance is
// not a positive finite number.
func EffectiveTolerance(tolerance float64) float64 {
	if math.IsNaN(tolerance) || math.IsInf(tolerance, 0) || tolerance <= 0 {
		return DefaultTolerance
	}
	return tolerance
}
