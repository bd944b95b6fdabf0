package demoscene

import (
	"math/rand"
	"testing"

	"weekend/geometry"
	"weekend/material"

	"github.com/google/go-cmp/cmp"
)

func TestNames(t *testing.T) {
	if diff := cmp.Diff(Names(), []string{"final", "simple"}); diff != "" {
		t.Errorf("Bad scene names; diff (-got +want)\n%s", diff)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("cornell"); err == nil {
		t.Errorf("Got no error for an unknown scene")
	}
}

func TestScenesProduceUsableCameras(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			build, err := Lookup(name)
			if err != nil {
				t.Fatalf("Error while looking up scene: %v", err)
			}

			world, cam := build(rand.New(rand.NewSource(1)))
			if len(world.Elements) == 0 {
				t.Errorf("Scene is empty")
			}
			if err := cam.Initialize(); err != nil {
				t.Errorf("Error while initializing scene camera: %v", err)
			}
		})
	}
}

func TestFinalIsDeterministic(t *testing.T) {
	a, _ := Final(rand.New(rand.NewSource(17)))
	b, _ := Final(rand.New(rand.NewSource(17)))

	if len(a.Elements) != len(b.Elements) {
		t.Fatalf("Same seed gave %d and %d spheres", len(a.Elements), len(b.Elements))
	}
	for i := range a.Elements {
		sa := a.Elements[i].(*geometry.Sphere)
		sb := b.Elements[i].(*geometry.Sphere)
		if sa.Center != sb.Center || sa.Radius != sb.Radius {
			t.Fatalf("Sphere %d differs: %+v vs %+v", i, sa, sb)
		}
	}
}

func TestFinalSharesGlass(t *testing.T) {
	world, _ := Final(rand.New(rand.NewSource(1)))

	var glass *material.Dielectric
	for _, g := range world.Elements {
		d, ok := g.(*geometry.Sphere).Material.(*material.Dielectric)
		if !ok {
			continue
		}
		if glass == nil {
			glass = d
		}
		if d != glass {
			t.Fatalf("Found more than one glass material")
		}
	}
	if glass == nil {
		t.Fatalf("No glass spheres in scene")
	}
}
