package material

import (
	"math"
	"math/rand"

	"weekend/contact"
	"weekend/ray"
	"weekend/vmath/vec3"
)

// Lambertian is an ideal diffuse reflector.
type Lambertian struct {
	Albedo vec3.T
}

func (l *Lambertian) Scatter(in ray.Ray, c *contact.Contact, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	direction := vec3.AddVV(c.N, vec3.UniformUnitDistribution(rng))

	// The random unit vector can nearly cancel the normal.
	if direction.NearZero() {
		direction = c.N
	}

	return l.Albedo, ray.Ray{Point: c.P, Slope: direction}, true
}

// Metal is a specular reflector.  Fuzz perturbs the reflected direction and
// is clamped to 1.
type Metal struct {
	Albedo vec3.T
	Fuzz   float64
}

func (m *Metal) Scatter(in ray.Ray, c *contact.Contact, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	fuzz := math.Min(m.Fuzz, 1.0)

	reflected := vec3.Normalize(vec3.Reflect(in.Slope, c.N))
	reflected = vec3.AddVV(reflected, vec3.MulVS(vec3.UniformUnitDistribution(rng), fuzz))

	// Fuzz can push the ray below the surface; absorb it.
	if vec3.IProd(reflected, c.N) <= 0 {
		return vec3.T{}, ray.Ray{}, false
	}

	return m.Albedo, ray.Ray{Point: c.P, Slope: reflected}, true
}

// Dielectric is a clear refractive material such as glass or water.
//
// RefractionIndex is the index of the interior relative to the enclosing
// medium.
type Dielectric struct {
	RefractionIndex float64
}

func (d *Dielectric) Scatter(in ray.Ray, c *contact.Contact, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	ri := d.RefractionIndex
	if c.FrontFace {
		ri = 1.0 / d.RefractionIndex
	}

	unitDirection := vec3.Normalize(in.Slope)
	cosTheta := math.Min(vec3.IProd(vec3.Neg(unitDirection), c.N), 1.0)
	sinTheta := math.Sqrt(1.0 - cosTheta*cosTheta)

	var direction vec3.T
	if ri*sinTheta > 1.0 || reflectance(cosTheta, ri) > rng.Float64() {
		direction = vec3.Reflect(unitDirection, c.N)
	} else {
		direction = vec3.Refract(unitDirection, c.N, ri)
	}

	return vec3.T{1, 1, 1}, ray.Ray{Point: c.P, Slope: direction}, true
}

// reflectance is Schlick's approximation.
func reflectance(cosine, ri float64) float64 {
	r0 := (1 - ri) / (1 + ri)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}

// Absorber never scatters.
type Absorber struct{}

func (Absorber) Scatter(in ray.Ray, c *contact.Contact, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	return vec3.T{}, ray.Ray{}, false
}
