package material

import (
	"math"
	"math/rand"
	"testing"

	"weekend/contact"
	"weekend/ray"
	"weekend/vmath/vec3"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func upContact(frontFace bool) *contact.Contact {
	return &contact.Contact{
		T:         1,
		P:         vec3.T{1, 2, 3},
		N:         vec3.T{0, 1, 0},
		FrontFace: frontFace,
	}
}

func TestLambertianScattersIntoHemisphere(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := &Lambertian{Albedo: vec3.T{0.1, 0.2, 0.3}}
	c := upContact(true)
	in := ray.Ray{Point: vec3.T{1, 3, 3}, Slope: vec3.T{0, -1, 0}}

	for i := 0; i < 1000; i++ {
		att, out, ok := m.Scatter(in, c, rng)
		if !ok {
			t.Fatalf("Lambertian absorbed a ray")
		}
		if diff := cmp.Diff(att, m.Albedo); diff != "" {
			t.Fatalf("Bad attenuation; diff (-got +want)\n%s", diff)
		}
		if diff := cmp.Diff(out.Point, c.P); diff != "" {
			t.Fatalf("Scattered ray does not leave from the hit point; diff (-got +want)\n%s", diff)
		}
		if out.Slope.NearZero() {
			t.Fatalf("Degenerate scatter direction %v", out.Slope)
		}
		if vec3.IProd(out.Slope, c.N) < -1e-12 {
			t.Fatalf("Scatter direction %v is below the surface", out.Slope)
		}
	}
}

func TestMetalMirror(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := &Metal{Albedo: vec3.T{0.8, 0.6, 0.2}}
	c := upContact(true)

	in := ray.Ray{Point: vec3.T{0, 3, 3}, Slope: vec3.T{1, -1, 0}}
	att, out, ok := m.Scatter(in, c, rng)
	if !ok {
		t.Fatalf("Mirror absorbed a ray")
	}
	if diff := cmp.Diff(att, m.Albedo); diff != "" {
		t.Errorf("Bad attenuation; diff (-got +want)\n%s", diff)
	}
	want := vec3.Normalize(vec3.T{1, 1, 0})
	if diff := cmp.Diff(out.Slope, want, approx); diff != "" {
		t.Errorf("Bad reflection; diff (-got +want)\n%s", diff)
	}
}

func TestMetalGrazingRayIsAbsorbed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := &Metal{Albedo: vec3.T{1, 1, 1}}

	in := ray.Ray{Slope: vec3.T{1, 0, 0}}
	if _, _, ok := m.Scatter(in, upContact(true), rng); ok {
		t.Errorf("Ray reflected parallel to the surface was not absorbed")
	}
}

func TestMetalFuzzIsClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := &Metal{Albedo: vec3.T{1, 1, 1}, Fuzz: 5}
	c := upContact(true)
	in := ray.Ray{Slope: vec3.T{1, -1, 0}}
	mirror := vec3.Normalize(vec3.T{1, 1, 0})

	scattered := 0
	for i := 0; i < 1000; i++ {
		_, out, ok := m.Scatter(in, c, rng)
		if !ok {
			continue
		}
		scattered++
		if d := vec3.SubVV(out.Slope, mirror).Norm(); d > 1+1e-9 {
			t.Fatalf("Fuzzed direction %v is %v from the mirror direction, want <= 1", out.Slope, d)
		}
		if vec3.IProd(out.Slope, c.N) <= 0 {
			t.Fatalf("Scattered direction %v is below the surface", out.Slope)
		}
	}
	if scattered == 0 {
		t.Errorf("Every fuzzed ray was absorbed")
	}
}

func TestDielectricTotalInternalReflection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := &Dielectric{RefractionIndex: 1.5}

	// Leaving glass at sin(theta) = 0.9 cannot refract.
	cosTheta := math.Sqrt(1 - 0.81)
	in := ray.Ray{Slope: vec3.T{0.9, -cosTheta, 0}}

	for i := 0; i < 100; i++ {
		att, out, ok := m.Scatter(in, upContact(false), rng)
		if !ok {
			t.Fatalf("Dielectric absorbed a ray")
		}
		if diff := cmp.Diff(att, vec3.T{1, 1, 1}); diff != "" {
			t.Fatalf("Bad attenuation; diff (-got +want)\n%s", diff)
		}
		if diff := cmp.Diff(out.Slope, vec3.T{0.9, cosTheta, 0}, approx); diff != "" {
			t.Fatalf("Expected reflection; diff (-got +want)\n%s", diff)
		}
	}
}

func TestDielectricNormalIncidence(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := &Dielectric{RefractionIndex: 1.5}
	in := ray.Ray{Slope: vec3.T{0, -2, 0}}

	const n = 20000
	reflected := 0
	for i := 0; i < n; i++ {
		_, out, ok := m.Scatter(in, upContact(true), rng)
		if !ok {
			t.Fatalf("Dielectric absorbed a ray")
		}
		switch {
		case cmp.Equal(out.Slope, vec3.T{0, 1, 0}, approx):
			reflected++
		case cmp.Equal(out.Slope, vec3.T{0, -1, 0}, approx):
		default:
			t.Fatalf("Unexpected direction %v at normal incidence", out.Slope)
		}
	}

	// Schlick gives R0 = 0.04 for glass in air.
	if frac := float64(reflected) / n; frac < 0.03 || frac > 0.05 {
		t.Errorf("Reflected fraction %v, want about 0.04", frac)
	}
}

func TestReflectance(t *testing.T) {
	testCases := []struct {
		cosine, ri float64
		want       float64
	}{
		{cosine: 1, ri: 1, want: 0},
		{cosine: 0, ri: 1.5, want: 1},
		{cosine: 1, ri: 1.5, want: 0.04},
		{cosine: 1, ri: 1 / 1.5, want: 0.04},
	}

	for _, tc := range testCases {
		if got := reflectance(tc.cosine, tc.ri); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("reflectance(%v, %v) = %v, want %v", tc.cosine, tc.ri, got, tc.want)
		}
	}
}

func TestAbsorber(t *testing.T) {
	var m contact.Material = Absorber{}
	if _, _, ok := m.Scatter(ray.Ray{Slope: vec3.T{0, -1, 0}}, upContact(true), nil); ok {
		t.Errorf("Absorber scattered a ray")
	}
}
