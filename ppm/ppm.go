// Package ppm writes images as plain-text (P3) portable pixmaps.
package ppm

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"weekend/ray"
	"weekend/vmath/vec3"
)

var intensity = ray.Span{Lo: 0.000, Hi: 0.999}

// LinearToGamma applies a gamma-2 transform.  Non-positive values map to 0.
func LinearToGamma(linear float64) float64 {
	if linear > 0 {
		return math.Sqrt(linear)
	}
	return 0
}

// Quantize maps a linear color component to a byte value in [0, 255].
func Quantize(linear float64) int {
	g := LinearToGamma(linear)
	if math.IsNaN(g) {
		g = 0
	}
	return int(256 * intensity.Clamp(g))
}

// PixelSource yields the final linear color of each pixel.
type PixelSource func(row, col int) vec3.T

// Write emits the header and then every pixel, rows top to bottom and columns
// left to right.
func Write(w io.Writer, width, height int, px PixelSource) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "P3\n%d %d\n255\n", width, height); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			color := px(r, c)
			if _, err := fmt.Fprintf(bw, "%d %d %d\n", Quantize(color[0]), Quantize(color[1]), Quantize(color[2])); err != nil {
				return fmt.Errorf("while writing pixel (%d, %d): %w", r, c, err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while flushing: %w", err)
	}
	return nil
}
