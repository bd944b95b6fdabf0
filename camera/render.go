package camera

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"weekend/geometry"
	"weekend/ppm"
	"weekend/rendermetrics"
	"weekend/sampleimage"
	"weekend/vmath/vec3"

	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ProgressFunction is called after each completed image row.  Calls are
// serialized.
type ProgressFunction func(rowsDone, rowsTotal int)

type RenderOptions struct {
	// Seed determines every random choice of the render.  The image is the
	// same for a given seed no matter how many workers are used.
	Seed int64

	// Workers is the number of rows rendered concurrently.  Zero means one;
	// a negative value means one per CPU.
	Workers int

	Progress ProgressFunction

	// Metrics may be nil.
	Metrics *rendermetrics.Recorder
}

func (o *RenderOptions) workers() int {
	switch {
	case o == nil || o.Workers == 0:
		return 1
	case o.Workers < 0:
		return runtime.NumCPU()
	}
	return o.Workers
}

// Render draws world and writes it to w as a P3 pixmap.
func (c *Camera) Render(ctx context.Context, world geometry.Geometry, w io.Writer, opts *RenderOptions) error {
	tracer := otel.Tracer("weekend/camera")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Camera.Render")
	defer span.End()

	if err := c.Initialize(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	img := sampleimage.New(c.imageHeight, c.ImageWidth)
	if err := c.renderSamples(ctx, world, img, opts); err != nil {
		err := fmt.Errorf("while rendering samples: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := c.WriteImage(w, img); err != nil {
		err := fmt.Errorf("while writing image: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RenderSamples tops up every pixel of img to SamplesPerPixel samples.
// Pixels that already have enough samples are left alone, so a partially
// rendered image can be resumed.
func (c *Camera) RenderSamples(ctx context.Context, world geometry.Geometry, img *sampleimage.Image, opts *RenderOptions) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	return c.renderSamples(ctx, world, img, opts)
}

func (c *Camera) renderSamples(ctx context.Context, world geometry.Geometry, img *sampleimage.Image, opts *RenderOptions) error {
	tracer := otel.Tracer("weekend/camera")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Camera.RenderSamples")
	defer span.End()

	if img.RowSize != c.imageHeight || img.ColSize != c.ImageWidth {
		err := fmt.Errorf("sample image is %dx%d, camera wants %dx%d", img.ColSize, img.RowSize, c.ImageWidth, c.imageHeight)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if opts == nil {
		opts = &RenderOptions{}
	}

	// Resumed renders must not repeat the random choices of the earlier
	// passes.
	existingSamples := img.TotalSamples()

	workers := opts.workers()
	span.SetAttributes(
		attribute.Int("width", c.ImageWidth),
		attribute.Int("height", c.imageHeight),
		attribute.Int("samples_per_pixel", c.SamplesPerPixel),
		attribute.Int("workers", workers),
	)

	glog.V(1).Infof("Rendering %dx%d image, %d samples per pixel, max depth %d, %d workers, %d existing samples",
		c.ImageWidth, c.imageHeight, c.SamplesPerPixel, c.MaxDepth, workers, existingSamples)
	start := time.Now()

	// mu guards img and rowsDone.
	var mu sync.Mutex
	rowsDone := 0

	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))

	for row := 0; row < c.imageHeight; row++ {
		row := row // https://golang.org/doc/faq#closures_and_goroutines

		if err := sem.Acquire(egCtx, 1); err != nil {
			eg.Wait()
			err := fmt.Errorf("while acquiring concurrency limiter semaphore: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		eg.Go(func() error {
			defer sem.Release(1)

			if err := egCtx.Err(); err != nil {
				return err
			}

			mu.Lock()
			rowImage := img.Cut(row, row+1, 0, c.ImageWidth)
			mu.Unlock()

			rng := rand.New(rand.NewSource(rowSeed(opts.Seed, existingSamples, row)))
			c.renderRow(egCtx, world, row, rowImage, rng, opts.Metrics)

			mu.Lock()
			defer mu.Unlock()

			img.Paste(rowImage, row, 0)
			rowsDone++
			if opts.Progress != nil {
				opts.Progress(rowsDone, c.imageHeight)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		err := fmt.Errorf("while waiting for row workers: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	glog.V(1).Infof("Rendered %d rows in %v", c.imageHeight, time.Since(start))
	span.SetStatus(codes.Ok, "")
	return nil
}

// renderRow fills in row (an image one row tall, taken from the given row of
// the full image).
func (c *Camera) renderRow(ctx context.Context, world geometry.Geometry, row int, rowImage *sampleimage.Image, rng *rand.Rand, metrics *rendermetrics.Recorder) {
	tracer := otel.Tracer("weekend/camera")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Camera.renderRow")
	defer span.End()

	span.SetAttributes(attribute.Int("row", row))

	var samples, queries int64
	for col := 0; col < rowImage.ColSize; col++ {
		have := int(rowImage.ReadSample(0, col).SampleCount)
		for s := have; s < c.SamplesPerPixel; s++ {
			r := c.GetRay(col, row, rng)
			color, q := traceRay(r, c.MaxDepth, world, rng)
			rowImage.RecordSample(0, col, color)

			samples++
			queries += int64(q)
		}
	}

	metrics.RecordRow(ctx, samples, queries)
}

// rowSeed derives an independent generator seed for one row.
func rowSeed(seed int64, existingSamples, row int) int64 {
	x := uint64(seed)
	x = splitmix64(x ^ uint64(existingSamples))
	x = splitmix64(x ^ uint64(row))
	return int64(x)
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// PixelColor averages the samples of one pixel.  A pixel holding exactly
// SamplesPerPixel samples is scaled by the precomputed 1/SamplesPerPixel.
func (c *Camera) PixelColor(s sampleimage.Sample) vec3.T {
	switch {
	case s.SampleCount == 0:
		return vec3.T{}
	case int(s.SampleCount) == c.SamplesPerPixel:
		return vec3.MulVS(s.ColorSum, c.pixelSampleScale)
	}
	return vec3.DivVS(s.ColorSum, float64(s.SampleCount))
}

// WriteImage emits img as a P3 pixmap.  The camera must be initialized.
func (c *Camera) WriteImage(w io.Writer, img *sampleimage.Image) error {
	if !c.initialized {
		return fmt.Errorf("camera is not initialized")
	}
	return ppm.Write(w, img.ColSize, img.RowSize, func(r, col int) vec3.T {
		return c.PixelColor(img.ReadSample(r, col))
	})
}
