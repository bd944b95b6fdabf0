// Package imagesink opens render outputs and checkpoints, which may live on
// stdout, in Google Cloud Storage, or on the local filesystem.
package imagesink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const gcsScheme = "gs://"

// Stdout is the name that refers to standard output.
const Stdout = "-"

// ParseGCSPath splits "gs://bucket/object".
func ParseGCSPath(name string) (bucket, object string, ok bool) {
	if !strings.HasPrefix(name, gcsScheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, gcsScheme)
	i := strings.Index(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// IsGCS reports whether name refers to Cloud Storage.
func IsGCS(name string) bool {
	return strings.HasPrefix(name, gcsScheme)
}

type Sink struct {
	// GCS may be nil if no gs:// names are used.
	GCS *storage.Client

	stdout io.Writer
}

func New(gcs *storage.Client) *Sink {
	return &Sink{GCS: gcs, stdout: os.Stdout}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func (s *Sink) object(name string) (*storage.ObjectHandle, error) {
	bucket, object, ok := ParseGCSPath(name)
	if !ok {
		return nil, fmt.Errorf("malformed GCS path %q", name)
	}
	if s.GCS == nil {
		return nil, fmt.Errorf("no GCS client for %q", name)
	}
	return s.GCS.Bucket(bucket).Object(object), nil
}

// Create opens name for writing.  For GCS, the object is committed on Close.
func (s *Sink) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	tracer := otel.Tracer("weekend/imagesink")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Sink.Create")
	defer span.End()

	span.SetAttributes(attribute.String("name", name))

	switch {
	case name == Stdout:
		return nopCloser{s.stdout}, nil
	case IsGCS(name):
		obj, err := s.object(name)
		if err != nil {
			return nil, err
		}
		return obj.NewWriter(ctx), nil
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("while creating file: %w", err)
	}
	return f, nil
}

// Open opens name for reading.
func (s *Sink) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	tracer := otel.Tracer("weekend/imagesink")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Sink.Open")
	defer span.End()

	span.SetAttributes(attribute.String("name", name))

	if IsGCS(name) {
		obj, err := s.object(name)
		if err != nil {
			return nil, err
		}
		r, err := obj.NewReader(ctx)
		if err != nil {
			return nil, fmt.Errorf("while opening reader for object: %w", err)
		}
		return r, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening file: %w", err)
	}
	return f, nil
}

// Exists reports whether name already holds data.  Stdout never does.
func (s *Sink) Exists(ctx context.Context, name string) (bool, error) {
	switch {
	case name == Stdout:
		return false, nil
	case IsGCS(name):
		obj, err := s.object(name)
		if err != nil {
			return false, err
		}
		if _, err := obj.Attrs(ctx); err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				return false, nil
			}
			return false, fmt.Errorf("while reading object attributes: %w", err)
		}
		return true, nil
	}

	if _, err := os.Stat(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("while checking file: %w", err)
	}
	return true, nil
}
