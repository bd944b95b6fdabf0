package sampleimage

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"weekend/vmath/vec3"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func filledImage() *Image {
	im := New(3, 4)
	for r := 0; r < im.RowSize; r++ {
		for c := 0; c < im.ColSize; c++ {
			for s := 0; s <= r+c; s++ {
				im.RecordSample(r, c, vec3.T{float64(r), float64(c), 0.5})
			}
		}
	}
	return im
}

func TestRecordAndRead(t *testing.T) {
	im := New(2, 2)
	im.RecordSample(1, 0, vec3.T{1, 2, 3})
	im.RecordSample(1, 0, vec3.T{0.5, 0.5, 0.5})

	want := Sample{ColorSum: vec3.T{1.5, 2.5, 3.5}, SampleCount: 2}
	if diff := cmp.Diff(im.ReadSample(1, 0), want); diff != "" {
		t.Errorf("Bad sample; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(im.ReadSample(0, 1), Sample{}); diff != "" {
		t.Errorf("Untouched pixel changed; diff (-got +want)\n%s", diff)
	}
	if got := im.TotalSamples(); got != 2 {
		t.Errorf("TotalSamples() = %d, want 2", got)
	}
}

func TestCutPaste(t *testing.T) {
	im := filledImage()

	window := im.Cut(1, 3, 1, 3)
	if window.RowSize != 2 || window.ColSize != 2 {
		t.Fatalf("Cut window is %dx%d, want 2x2", window.RowSize, window.ColSize)
	}
	if diff := cmp.Diff(window.ReadSample(0, 0), im.ReadSample(1, 1)); diff != "" {
		t.Errorf("Bad cut; diff (-got +want)\n%s", diff)
	}

	window.RecordSample(1, 1, vec3.T{10, 10, 10})
	want := im.ReadSample(2, 2)
	want.ColorSum = vec3.AddVV(want.ColorSum, vec3.T{10, 10, 10})
	want.SampleCount++

	im.Paste(window, 1, 1)
	if diff := cmp.Diff(im.ReadSample(2, 2), want); diff != "" {
		t.Errorf("Bad paste; diff (-got +want)\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	im := filledImage()

	var buf bytes.Buffer
	if err := Write(im, &buf); err != nil {
		t.Fatalf("Error while writing: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Error while reading: %v", err)
	}
	if diff := cmp.Diff(got, im); diff != "" {
		t.Errorf("Bad round trip; diff (-got +want)\n%s", diff)
	}
}

func TestFileRoundTrip(t *testing.T) {
	im := filledImage()
	name := filepath.Join(t.TempDir(), "samples")

	if err := WriteFile(im, name); err != nil {
		t.Fatalf("Error while writing file: %v", err)
	}
	got, err := ReadFile(name)
	if err != nil {
		t.Fatalf("Error while reading file: %v", err)
	}
	if diff := cmp.Diff(got, im); diff != "" {
		t.Errorf("Bad round trip; diff (-got +want)\n%s", diff)
	}
}

// headerOnly encodes just the length-prefixed header of a sample file.
func headerOnly(t *testing.T, fields map[string]interface{}) *bytes.Buffer {
	t.Helper()

	hdr, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("Error while building header: %v", err)
	}
	hdrBytes, err := proto.Marshal(hdr)
	if err != nil {
		t.Fatalf("Error while marshaling header: %v", err)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(len(hdrBytes)))
	buf.Write(hdrBytes)
	return &buf
}

func TestReadRejectsBadHeaders(t *testing.T) {
	testCases := []struct {
		name   string
		fields map[string]interface{}
	}{
		{
			name:   "unknown layout",
			fields: map[string]interface{}{"rowSize": 1, "colSize": 1, "dataLayoutVersion": 2},
		},
		{
			name:   "negative rows",
			fields: map[string]interface{}{"rowSize": -1, "colSize": 1, "dataLayoutVersion": 1},
		},
		{
			name:   "fractional columns",
			fields: map[string]interface{}{"rowSize": 1, "colSize": 1.5, "dataLayoutVersion": 1},
		},
		{
			name:   "huge image",
			fields: map[string]interface{}{"rowSize": 1e9, "colSize": 1e9, "dataLayoutVersion": 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(headerOnly(t, tc.fields)); err == nil {
				t.Errorf("Got no error for header %v", tc.fields)
			}
		})
	}
}

func TestReadRejectsHugeHeaderLength(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(1)<<62)

	if _, err := Read(&buf); err == nil {
		t.Errorf("Got no error for a header length of 2^62")
	}
}

func TestReadRejectsTruncatedInput(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(filledImage(), &buf); err != nil {
		t.Fatalf("Error while writing: %v", err)
	}

	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()/2])
	if _, err := Read(truncated); err == nil {
		t.Errorf("Got no error for truncated input")
	}
}
