// Package demoscene builds the scenes known to the renderer binary.
package demoscene

import (
	"fmt"
	"math/rand"
	"sort"

	"weekend/camera"
	"weekend/contact"
	"weekend/geometry"
	"weekend/material"
	"weekend/vmath/vec3"
)

// Builder constructs a world and a camera aimed at it.  Randomized scenes
// draw from rng.
type Builder func(rng *rand.Rand) (*geometry.List, *camera.Camera)

var builders = map[string]Builder{
	"final":  Final,
	"simple": Simple,
}

// Names lists the registered scenes.
func Names() []string {
	names := []string{}
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Builder, error) {
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q (known scenes: %v)", name, Names())
	}
	return b, nil
}

// Simple is a ground plane with a diffuse, a glass (with an air bubble), and a
// metal sphere in a row.
func Simple(rng *rand.Rand) (*geometry.List, *camera.Camera) {
	ground := &material.Lambertian{Albedo: vec3.T{0.8, 0.8, 0.0}}
	center := &material.Lambertian{Albedo: vec3.T{0.1, 0.2, 0.5}}
	left := &material.Dielectric{RefractionIndex: 1.50}
	bubble := &material.Dielectric{RefractionIndex: 1.00 / 1.50}
	right := &material.Metal{Albedo: vec3.T{0.8, 0.6, 0.2}, Fuzz: 1.0}

	world := &geometry.List{}
	world.Add(geometry.NewSphere(vec3.T{0, -100.5, -1}, 100, ground))
	world.Add(geometry.NewSphere(vec3.T{0, 0, -1.2}, 0.5, center))
	world.Add(geometry.NewSphere(vec3.T{-1, 0, -1}, 0.5, left))
	world.Add(geometry.NewSphere(vec3.T{-1, 0, -1}, 0.4, bubble))
	world.Add(geometry.NewSphere(vec3.T{1, 0, -1}, 0.5, right))

	cam := camera.New()
	cam.AspectRatio = 16.0 / 9.0
	cam.ImageWidth = 400
	cam.SamplesPerPixel = 100
	cam.MaxDepth = 50
	cam.VFOV = 20
	cam.LookFrom = vec3.T{-2, 2, 1}
	cam.LookAt = vec3.T{0, 0, -1}
	cam.VUp = vec3.T{0, 1, 0}
	cam.DefocusAngle = 10.0
	cam.FocusDist = 3.4

	return world, cam
}

// Final is a field of small random spheres around three large ones.
func Final(rng *rand.Rand) (*geometry.List, *camera.Camera) {
	world := &geometry.List{}

	ground := &material.Lambertian{Albedo: vec3.T{0.5, 0.5, 0.5}}
	world.Add(geometry.NewSphere(vec3.T{0, -1000, 0}, 1000, ground))

	// Every small glass sphere shares one material.
	glass := &material.Dielectric{RefractionIndex: 1.5}

	for a := -11; a < 11; a++ {
		for b := -11; b < 11; b++ {
			chooseMat := rng.Float64()
			center := vec3.T{float64(a) + 0.9*rng.Float64(), 0.2, float64(b) + 0.9*rng.Float64()}

			if vec3.SubVV(center, vec3.T{4, 0.2, 0}).Norm() <= 0.9 {
				continue
			}

			var m contact.Material
			switch {
			case chooseMat < 0.8:
				albedo := vec3.MulVV(randomColor(rng, 0, 1), randomColor(rng, 0, 1))
				m = &material.Lambertian{Albedo: albedo}
			case chooseMat < 0.95:
				albedo := randomColor(rng, 0.5, 1)
				m = &material.Metal{Albedo: albedo, Fuzz: 0.5 * rng.Float64()}
			default:
				m = glass
			}
			world.Add(geometry.NewSphere(center, 0.2, m))
		}
	}

	world.Add(geometry.NewSphere(vec3.T{0, 1, 0}, 1.0, glass))
	world.Add(geometry.NewSphere(vec3.T{-4, 1, 0}, 1.0, &material.Lambertian{Albedo: vec3.T{0.4, 0.2, 0.1}}))
	world.Add(geometry.NewSphere(vec3.T{4, 1, 0}, 1.0, &material.Metal{Albedo: vec3.T{0.7, 0.6, 0.5}, Fuzz: 0.0}))

	cam := camera.New()
	cam.AspectRatio = 16.0 / 9.0
	cam.ImageWidth = 1200
	cam.SamplesPerPixel = 500
	cam.MaxDepth = 50
	cam.VFOV = 20
	cam.LookFrom = vec3.T{13, 2, 3}
	cam.LookAt = vec3.T{0, 0, 0}
	cam.VUp = vec3.T{0, 1, 0}
	cam.DefocusAngle = 0.6
	cam.FocusDist = 10.0

	return world, cam
}

func randomColor(rng *rand.Rand, lo, hi float64) vec3.T {
	return vec3.T{
		lo + (hi-lo)*rng.Float64(),
		lo + (hi-lo)*rng.Float64(),
		lo + (hi-lo)*rng.Float64(),
	}
}
