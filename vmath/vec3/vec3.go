package vec3

import (
	"math"
	"math/rand"
)

// T is used for points, directions, and RGB colors alike.
type T [3]float64

func (v T) X() float64 { return v[0] }
func (v T) Y() float64 { return v[1] }
func (v T) Z() float64 { return v[2] }

func (v T) Norm() float64 {
	return math.Sqrt(v.NormSquared())
}

func (v T) NormSquared() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// NearZero reports whether every component is within 1e-8 of zero.
func (v T) NearZero() bool {
	const s = 1e-8
	return math.Abs(v[0]) < s && math.Abs(v[1]) < s && math.Abs(v[2]) < s
}

func Normalize(v T) T {
	l := v.Norm()
	return T{
		v[0] / l,
		v[1] / l,
		v[2] / l,
	}
}

func AddVV(a, b T) T {
	return T{
		a[0] + b[0],
		a[1] + b[1],
		a[2] + b[2],
	}
}

func SubVV(a, b T) T {
	return T{
		a[0] - b[0],
		a[1] - b[1],
		a[2] - b[2],
	}
}

// MulVV is the component-wise (Hadamard) product, used to attenuate colors.
func MulVV(a, b T) T {
	return T{
		a[0] * b[0],
		a[1] * b[1],
		a[2] * b[2],
	}
}

func MulVS(a T, b float64) T {
	return T{
		a[0] * b,
		a[1] * b,
		a[2] * b,
	}
}

func DivVS(a T, b float64) T {
	return T{
		a[0] / b,
		a[1] / b,
		a[2] / b,
	}
}

func Neg(a T) T {
	return T{-a[0], -a[1], -a[2]}
}

// IProd is the inner (dot) product.
func IProd(a, b T) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// CProd is the cross product.
func CProd(a, b T) T {
	return T{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Lerp blends from a (t=0) to b (t=1).
func Lerp(t float64, a, b T) T {
	return AddVV(MulVS(a, 1-t), MulVS(b, t))
}

func Reflect(a, n T) T {
	return SubVV(a, MulVS(n, 2*IProd(a, n)))
}

// Refract bends the unit vector uv through a surface with unit normal n,
// where etaRatio is eta_incident / eta_transmitted.
func Refract(uv, n T, etaRatio float64) T {
	cosTheta := math.Min(IProd(Neg(uv), n), 1.0)
	perp := MulVS(AddVV(uv, MulVS(n, cosTheta)), etaRatio)
	parallel := MulVS(n, -math.Sqrt(math.Abs(1.0-perp.NormSquared())))
	return AddVV(perp, parallel)
}

// InUnitDisk returns a uniformly distributed point with z=0 and x²+y² < 1.
func InUnitDisk(rng *rand.Rand) T {
	for {
		p := T{2*rng.Float64() - 1, 2*rng.Float64() - 1, 0}
		if p.NormSquared() < 1 {
			return p
		}
	}
}

// InUnitSphere returns a uniformly distributed point strictly inside the unit
// sphere.
func InUnitSphere(rng *rand.Rand) T {
	for {
		p := T{2*rng.Float64() - 1, 2*rng.Float64() - 1, 2*rng.Float64() - 1}
		if p.NormSquared() < 1 {
			return p
		}
	}
}

func UniformUnitDistribution(rng *rand.Rand) T {
	for {
		p := InUnitSphere(rng)
		// Very short candidates lose too much precision when normalized.
		if lensq := p.NormSquared(); lensq > 1e-160 {
			return DivVS(p, math.Sqrt(lensq))
		}
	}
}
