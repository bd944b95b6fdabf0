package geometry

import (
	"math"

	"weekend/contact"
	"weekend/ray"
	"weekend/vmath/vec3"
)

// Geometry is anything a ray can strike.
//
// Hit reports whether r intersects the geometry at a parameter t with
// span.Surrounds(t).  On success, c is overwritten with the contact; on
// failure c is left untouched.
type Geometry interface {
	Hit(r ray.Ray, span ray.Span, c *contact.Contact) bool
}

type Sphere struct {
	Center   vec3.T
	Radius   float64
	Material contact.Material
}

// NewSphere clamps negative radii to zero.
func NewSphere(center vec3.T, radius float64, m contact.Material) *Sphere {
	return &Sphere{
		Center:   center,
		Radius:   math.Max(0, radius),
		Material: m,
	}
}

func (s *Sphere) Hit(r ray.Ray, span ray.Span, c *contact.Contact) bool {
	oc := vec3.SubVV(s.Center, r.Point)
	a := r.Slope.NormSquared()
	if a == 0 || s.Radius <= 0 {
		// A zero slope has no parameterization, and a zero radius has no
		// outward normal.
		return false
	}
	h := vec3.IProd(r.Slope, oc)
	cc := oc.NormSquared() - s.Radius*s.Radius

	discriminant := h*h - a*cc
	if discriminant < 0 {
		return false
	}

	sqrtd := math.Sqrt(discriminant)

	// The near root may be behind the origin or past something closer, while
	// the far root is still valid.
	root := (h - sqrtd) / a
	if !span.Surrounds(root) {
		root = (h + sqrtd) / a
		if !span.Surrounds(root) {
			return false
		}
	}

	c.T = root
	c.P = r.Eval(root)
	c.SetFaceNormal(r, vec3.DivVS(vec3.SubVV(c.P, s.Center), s.Radius))
	c.Material = s.Material
	return true
}

// List is a composite Geometry that reports the nearest hit among its
// members.
type List struct {
	Elements []Geometry
}

func (l *List) Add(g Geometry) {
	l.Elements = append(l.Elements, g)
}

func (l *List) Clear() {
	l.Elements = nil
}

func (l *List) Hit(r ray.Ray, span ray.Span, c *contact.Contact) bool {
	var scratch contact.Contact
	hitAnything := false

	for _, g := range l.Elements {
		if g.Hit(r, span, &scratch) {
			hitAnything = true
			span.Hi = scratch.T
			*c = scratch
		}
	}

	return hitAnything
}
