// Package camera turns a scene into an image: it generates jittered primary
// rays through a thin-lens camera, follows them through the scene, and
// averages the results per pixel.
package camera

import (
	"fmt"
	"math"
	"math/rand"

	"weekend/contact"
	"weekend/geometry"
	"weekend/ray"
	"weekend/vmath/mat33"
	"weekend/vmath/vec3"

	"golang.org/x/xerrors"
)

// ShadowAcneEpsilon is the smallest ray parameter accepted for a scene hit.
// Rays leaving a surface would otherwise re-hit it because of rounding.
const ShadowAcneEpsilon = 0.001

var (
	white   = vec3.T{1.0, 1.0, 1.0}
	skyBlue = vec3.T{0.5, 0.7, 1.0}
)

// Camera holds its configuration in exported fields.  Initialize (called by
// Render) derives everything else; call it again after changing any field.
type Camera struct {
	AspectRatio     float64
	ImageWidth      int
	SamplesPerPixel int

	// MaxDepth bounds the number of scene queries per sample.
	MaxDepth int

	// VFOV is the vertical field of view, in degrees.
	VFOV     float64
	LookFrom vec3.T
	LookAt   vec3.T
	VUp      vec3.T

	// DefocusAngle is the cone angle, in degrees, of rays through each
	// pixel.  Zero gives a pinhole camera.
	DefocusAngle float64

	// FocusDist is the distance from LookFrom to the plane of perfect focus.
	FocusDist float64

	imageHeight      int
	pixelSampleScale float64
	center           vec3.T

	// frame has the camera basis u, v, w as its columns.  w points away from
	// the view direction.
	frame mat33.T

	pixel00     vec3.T
	pixelDeltaU vec3.T
	pixelDeltaV vec3.T

	// defocusRadius is the radius of the lens disk, which lies in the u-v
	// plane of frame.
	defocusRadius float64

	initialized bool
}

// New returns a camera with the default configuration.
func New() *Camera {
	return &Camera{
		AspectRatio:     1.0,
		ImageWidth:      100,
		SamplesPerPixel: 10,
		MaxDepth:        10,
		VFOV:            90,
		LookFrom:        vec3.T{0, 0, 0},
		LookAt:          vec3.T{0, 0, -1},
		VUp:             vec3.T{0, 1, 0},
		DefocusAngle:    0,
		FocusDist:       10,
	}
}

// ConfigError reports a camera field that cannot produce an image.
type ConfigError struct {
	Field  string
	Reason string

	frame xerrors.Frame
}

func newConfigError(field, reason string) *ConfigError {
	return &ConfigError{
		Field:  field,
		Reason: reason,
		frame:  xerrors.Caller(1),
	}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid camera %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Format(f fmt.State, c rune) { // implements fmt.Formatter
	xerrors.FormatError(e, f, c)
}

func (e *ConfigError) FormatError(p xerrors.Printer) error { // implements xerrors.Formatter
	p.Print(e.Error())
	if p.Detail() {
		e.frame.Format(p)
	}
	return nil
}

func (c *Camera) validate() error {
	switch {
	case c.ImageWidth <= 0:
		return newConfigError("ImageWidth", fmt.Sprintf("got %d, want > 0", c.ImageWidth))
	case !(c.AspectRatio > 0) || math.IsInf(c.AspectRatio, 0):
		return newConfigError("AspectRatio", fmt.Sprintf("got %v, want finite and > 0", c.AspectRatio))
	case float64(c.ImageWidth)/c.AspectRatio > math.MaxInt32:
		return newConfigError("AspectRatio", fmt.Sprintf("got %v, image height would exceed %d", c.AspectRatio, math.MaxInt32))
	case c.SamplesPerPixel <= 0:
		return newConfigError("SamplesPerPixel", fmt.Sprintf("got %d, want > 0", c.SamplesPerPixel))
	case c.MaxDepth < 0:
		return newConfigError("MaxDepth", fmt.Sprintf("got %d, want >= 0", c.MaxDepth))
	case !(c.VFOV > 0 && c.VFOV < 180):
		return newConfigError("VFOV", fmt.Sprintf("got %v, want in (0, 180)", c.VFOV))
	case !(c.FocusDist > 0) || math.IsInf(c.FocusDist, 0):
		return newConfigError("FocusDist", fmt.Sprintf("got %v, want finite and > 0", c.FocusDist))
	case math.IsNaN(c.DefocusAngle) || c.DefocusAngle >= 180:
		return newConfigError("DefocusAngle", fmt.Sprintf("got %v, want < 180", c.DefocusAngle))
	case c.LookFrom == c.LookAt:
		return newConfigError("LookAt", "must differ from LookFrom")
	case vec3.CProd(c.VUp, vec3.SubVV(c.LookFrom, c.LookAt)).NearZero():
		return newConfigError("VUp", "must not be parallel to the view direction")
	}
	return nil
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Initialize validates the configuration and derives the render state.
func (c *Camera) Initialize() error {
	c.initialized = false
	if err := c.validate(); err != nil {
		return err
	}

	c.imageHeight = int(float64(c.ImageWidth) / c.AspectRatio)
	if c.imageHeight < 1 {
		c.imageHeight = 1
	}

	c.pixelSampleScale = 1.0 / float64(c.SamplesPerPixel)

	c.center = c.LookFrom

	// The viewport width uses the realized aspect ratio, which differs from
	// AspectRatio once the height has been truncated.
	h := math.Tan(degreesToRadians(c.VFOV) / 2)
	viewportHeight := 2 * h * c.FocusDist
	viewportWidth := viewportHeight * (float64(c.ImageWidth) / float64(c.imageHeight))

	w := vec3.Normalize(vec3.SubVV(c.LookFrom, c.LookAt))
	u := vec3.Normalize(vec3.CProd(c.VUp, w))
	v := vec3.CProd(w, u)
	c.frame = mat33.FromColumns(u, v, w)

	// Image rows run down the viewport while v points up.
	viewportU := vec3.MulVS(u, viewportWidth)
	viewportV := vec3.MulVS(vec3.Neg(v), viewportHeight)

	c.pixelDeltaU = vec3.DivVS(viewportU, float64(c.ImageWidth))
	c.pixelDeltaV = vec3.DivVS(viewportV, float64(c.imageHeight))

	viewportUpperLeft := vec3.SubVV(
		vec3.SubVV(vec3.SubVV(c.center, vec3.MulVS(w, c.FocusDist)), vec3.DivVS(viewportU, 2)),
		vec3.DivVS(viewportV, 2))
	c.pixel00 = vec3.AddVV(viewportUpperLeft, vec3.MulVS(vec3.AddVV(c.pixelDeltaU, c.pixelDeltaV), 0.5))

	c.defocusRadius = c.FocusDist * math.Tan(degreesToRadians(c.DefocusAngle/2))

	c.initialized = true
	return nil
}

// ImageHeight is valid after Initialize.
func (c *Camera) ImageHeight() int {
	return c.imageHeight
}

// Center is valid after Initialize.
func (c *Camera) Center() vec3.T {
	return c.center
}

// Basis returns the camera frame: u (right), v (up), and w (backwards).
func (c *Camera) Basis() (u, v, w vec3.T) {
	return c.frame.Column(0), c.frame.Column(1), c.frame.Column(2)
}

// PixelCenter is the unjittered sample location of pixel (i, j), where i is
// the column and j the row.
func (c *Camera) PixelCenter(i, j int) vec3.T {
	return vec3.AddVV(c.pixel00, vec3.AddVV(
		vec3.MulVS(c.pixelDeltaU, float64(i)),
		vec3.MulVS(c.pixelDeltaV, float64(j))))
}

// GetRay returns a ray through a random point of pixel (i, j), starting from
// a random point on the defocus disk.  The slope is not normalized.
func (c *Camera) GetRay(i, j int, rng *rand.Rand) ray.Ray {
	ox := rng.Float64() - 0.5
	oy := rng.Float64() - 0.5
	pixelSample := vec3.AddVV(c.pixel00, vec3.AddVV(
		vec3.MulVS(c.pixelDeltaU, float64(i)+ox),
		vec3.MulVS(c.pixelDeltaV, float64(j)+oy)))

	origin := c.center
	if c.DefocusAngle > 0 {
		origin = c.defocusDiskSample(rng)
	}

	return ray.Ray{
		Point: origin,
		Slope: vec3.SubVV(pixelSample, origin),
	}
}

func (c *Camera) defocusDiskSample(rng *rand.Rand) vec3.T {
	p := vec3.MulVS(vec3.InUnitDisk(rng), c.defocusRadius)
	return vec3.AddVV(c.center, mat33.MulMV(c.frame, p))
}

// Background is the sky seen by rays that escape the scene: a vertical blend
// from white (straight down) to sky blue (straight up).
func Background(r ray.Ray) vec3.T {
	unitDirection := vec3.Normalize(r.Slope)
	a := 0.5 * (unitDirection.Y() + 1.0)
	return vec3.Lerp(a, white, skyBlue)
}

// RayColor estimates the radiance arriving along r, following at most depth
// scattering events.
func RayColor(r ray.Ray, depth int, world geometry.Geometry, rng *rand.Rand) vec3.T {
	color, _ := traceRay(r, depth, world, rng)
	return color
}

// traceRay walks the path iteratively, carrying the running attenuation
// product.  It also returns the number of scene queries made.
func traceRay(r ray.Ray, depth int, world geometry.Geometry, rng *rand.Rand) (vec3.T, int) {
	attenuation := white
	curRay := r
	queries := 0

	for ; depth > 0; depth-- {
		queries++

		var hit contact.Contact
		if !world.Hit(curRay, ray.Span{Lo: ShadowAcneEpsilon, Hi: math.Inf(1)}, &hit) {
			return vec3.MulVV(attenuation, Background(curRay)), queries
		}

		if hit.Material == nil {
			return vec3.T{}, queries
		}

		k, scattered, ok := hit.Material.Scatter(curRay, &hit, rng)
		if !ok {
			return vec3.T{}, queries
		}

		attenuation = vec3.MulVV(attenuation, k)
		curRay = scattered
	}

	// Out of bounces.
	return vec3.T{}, queries
}
