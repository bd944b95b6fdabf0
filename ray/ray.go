package ray

import (
	"math"

	"weekend/vmath/vec3"
)

// Span is a range of ray parameters.
type Span struct {
	Lo, Hi float64
}

// EmptySpan contains nothing.
func EmptySpan() Span {
	return Span{math.Inf(1), math.Inf(-1)}
}

// UniverseSpan contains every real number.
func UniverseSpan() Span {
	return Span{math.Inf(-1), math.Inf(1)}
}

func (s Span) Size() float64 {
	return s.Hi - s.Lo
}

// Contains is the closed membership test, Lo <= x <= Hi.
func (s Span) Contains(x float64) bool {
	return s.Lo <= x && x <= s.Hi
}

// Surrounds is the open membership test, Lo < x < Hi.  Intersection queries
// use it so that a surface a ray is leaving is never counted at the
// endpoints.
func (s Span) Surrounds(x float64) bool {
	return s.Lo < x && x < s.Hi
}

func (s Span) Clamp(x float64) float64 {
	if x < s.Lo {
		return s.Lo
	}
	if x > s.Hi {
		return s.Hi
	}
	return x
}

// Ray is a half-line.  Slope is not required to be unit length.
type Ray struct {
	Point vec3.T
	Slope vec3.T
}

func (r Ray) Eval(t float64) vec3.T {
	return vec3.T{
		r.Point[0] + t*r.Slope[0],
		r.Point[1] + t*r.Slope[1],
		r.Point[2] + t*r.Slope[2],
	}
}
