package contact

import (
	"math/rand"

	"weekend/ray"
	"weekend/vmath/vec3"
)

// Material is the scattering capability attached to a surface.
//
// Scatter either absorbs the incoming ray (ok == false) or returns the
// per-channel attenuation and the outgoing ray.  Implementations must draw
// all randomness from rng.
type Material interface {
	Scatter(in ray.Ray, c *Contact, rng *rand.Rand) (attenuation vec3.T, scattered ray.Ray, ok bool)
}

// Contact records where a ray struck a surface.
type Contact struct {
	T float64
	P vec3.T

	// N is unit length and always points against the incident ray.
	N vec3.T

	// FrontFace is true when the ray arrived from the outward side.
	FrontFace bool

	Material Material
}

// SetFaceNormal orients N against r.  outwardNormal must be unit length.
func (c *Contact) SetFaceNormal(r ray.Ray, outwardNormal vec3.T) {
	c.FrontFace = vec3.IProd(r.Slope, outwardNormal) < 0
	if c.FrontFace {
		c.N = outwardNormal
	} else {
		c.N = vec3.Neg(outwardNormal)
	}
}
