// Package sampleimage accumulates per-pixel radiance samples and persists
// them so that renders can be resumed.
package sampleimage

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"weekend/vmath/vec3"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const dataLayoutVersion = 1

// Limits applied when reading, so that a corrupt file cannot trigger a huge
// allocation.
const (
	maxHeaderLength = 1 << 20
	maxPixels       = 1 << 28
)

// Image is indexed row-major, row 0 at the top.
type Image struct {
	RowSize, ColSize int

	// ColorSums holds three channels per pixel.
	ColorSums    []float64
	SampleCounts []uint32
}

type Sample struct {
	ColorSum    vec3.T
	SampleCount uint32
}

func New(rowSize, colSize int) *Image {
	im := &Image{}
	im.Resize(rowSize, colSize)
	return im
}

func (s *Image) Resize(rowSize, colSize int) {
	s.RowSize = rowSize
	s.ColSize = colSize

	s.ColorSums = make([]float64, 3*rowSize*colSize)
	s.SampleCounts = make([]uint32, rowSize*colSize)
}

func (s *Image) RecordSample(r, c int, color vec3.T) {
	idx := r*s.ColSize + c
	s.ColorSums[3*idx+0] += color[0]
	s.ColorSums[3*idx+1] += color[1]
	s.ColorSums[3*idx+2] += color[2]
	s.SampleCounts[idx]++
}

func (s *Image) ReadSample(r, c int) Sample {
	idx := r*s.ColSize + c
	return Sample{
		ColorSum:    vec3.T{s.ColorSums[3*idx+0], s.ColorSums[3*idx+1], s.ColorSums[3*idx+2]},
		SampleCount: s.SampleCounts[idx],
	}
}

// TotalSamples counts every sample recorded in the image.
func (s *Image) TotalSamples() int {
	total := 0
	for _, n := range s.SampleCounts {
		total += int(n)
	}
	return total
}

// Cut copies out the given window as a new image.
func (s *Image) Cut(rowSrc, rowLim, colSrc, colLim int) *Image {
	dst := New(rowLim-rowSrc, colLim-colSrc)

	dstIndex := 0
	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			srcIndex := r*s.ColSize + c

			copy(dst.ColorSums[3*dstIndex:3*dstIndex+3], s.ColorSums[3*srcIndex:3*srcIndex+3])
			dst.SampleCounts[dstIndex] = s.SampleCounts[srcIndex]

			dstIndex++
		}
	}

	return dst
}

// Paste overwrites the window of s starting at (rowSrc, colSrc) with src.
func (s *Image) Paste(src *Image, rowSrc, colSrc int) {
	rowLim := rowSrc + src.RowSize
	colLim := colSrc + src.ColSize

	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			dstIndex := r*s.ColSize + c
			srcIndex := (r-rowSrc)*src.ColSize + (c - colSrc)

			copy(s.ColorSums[3*dstIndex:3*dstIndex+3], src.ColorSums[3*srcIndex:3*srcIndex+3])
			s.SampleCounts[dstIndex] = src.SampleCounts[srcIndex]
		}
	}
}

func Read(in io.Reader) (*Image, error) {
	// Read header length.
	var headerLength uint64
	if err := binary.Read(in, binary.LittleEndian, &headerLength); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}

	if headerLength > maxHeaderLength {
		return nil, fmt.Errorf("header length %d exceeds limit %d", headerLength, maxHeaderLength)
	}

	headerBytes := make([]byte, int(headerLength))
	if _, err := io.ReadFull(in, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header bytes: %w", err)
	}

	hdr := &structpb.Struct{}
	if err := proto.Unmarshal(headerBytes, hdr); err != nil {
		return nil, fmt.Errorf("while unmarshaling header: %w", err)
	}

	fields := hdr.GetFields()
	if v := fields["dataLayoutVersion"].GetNumberValue(); v != dataLayoutVersion {
		return nil, fmt.Errorf("bad data layout version: %v", v)
	}

	rows := fields["rowSize"].GetNumberValue()
	cols := fields["colSize"].GetNumberValue()
	if !validDimension(rows) || !validDimension(cols) || rows*cols > maxPixels {
		return nil, fmt.Errorf("bad image dimensions %vx%v", cols, rows)
	}
	rowSize, colSize := int(rows), int(cols)

	im := New(rowSize, colSize)

	zipReader, err := zlib.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("while opening zip reader: %w", err)
	}
	defer zipReader.Close()

	if err := binary.Read(zipReader, binary.LittleEndian, im.ColorSums); err != nil {
		return nil, fmt.Errorf("while reading color sums: %w", err)
	}

	if err := binary.Read(zipReader, binary.LittleEndian, im.SampleCounts); err != nil {
		return nil, fmt.Errorf("while reading sample counts: %w", err)
	}

	return im, nil
}

func validDimension(d float64) bool {
	return d >= 0 && d <= maxPixels && d == math.Trunc(d)
}

func ReadFile(name string) (*Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func Write(im *Image, w io.Writer) error {
	hdr, err := structpb.NewStruct(map[string]interface{}{
		"rowSize":           im.RowSize,
		"colSize":           im.ColSize,
		"dataLayoutVersion": dataLayoutVersion,
	})
	if err != nil {
		return fmt.Errorf("while building header: %w", err)
	}

	hdrBytes, err := proto.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	headerLengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(headerLengthBytes, uint64(len(hdrBytes)))
	if _, err := w.Write(headerLengthBytes); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(hdrBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	zipWriter := zlib.NewWriter(w)

	if err := binary.Write(zipWriter, binary.LittleEndian, im.ColorSums); err != nil {
		return fmt.Errorf("while writing color sums: %w", err)
	}

	if err := binary.Write(zipWriter, binary.LittleEndian, im.SampleCounts); err != nil {
		return fmt.Errorf("while writing sample counts: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("while closing zip writer: %w", err)
	}

	return nil
}

func WriteFile(im *Image, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("while creating file: %w", err)
	}

	if err := Write(im, f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing file: %w", err)
	}
	return nil
}
