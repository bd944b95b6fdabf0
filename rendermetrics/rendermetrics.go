// Package rendermetrics exports render throughput as OpenCensus metrics.
package rendermetrics

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var sceneKey = tag.MustNewKey("scene")

type Recorder struct {
	samples     *stats.Int64Measure
	samplesView *view.View

	bounces     *stats.Int64Measure
	bouncesView *view.View

	rows     *stats.Int64Measure
	rowsView *view.View

	scene string
}

// New creates a Recorder whose measurements are tagged with the scene name.
func New(scene string) *Recorder {
	r := &Recorder{scene: scene}

	r.samples = stats.Int64("weekend/samples", "Primary ray samples traced", stats.UnitDimensionless)
	r.samplesView = &view.View{
		Name:        "weekend/samples",
		Description: "Sum of primary ray samples traced",
		TagKeys:     []tag.Key{sceneKey},
		Measure:     r.samples,
		Aggregation: view.Sum(),
	}

	r.bounces = stats.Int64("weekend/bounces", "Scene intersection queries, across all bounces", stats.UnitDimensionless)
	r.bouncesView = &view.View{
		Name:        "weekend/bounces",
		Description: "Sum of scene intersection queries",
		TagKeys:     []tag.Key{sceneKey},
		Measure:     r.bounces,
		Aggregation: view.Sum(),
	}

	r.rows = stats.Int64("weekend/rows", "Image rows completed", stats.UnitDimensionless)
	r.rowsView = &view.View{
		Name:        "weekend/rows",
		Description: "Counter of image rows completed",
		TagKeys:     []tag.Key{sceneKey},
		Measure:     r.rows,
		Aggregation: view.Count(),
	}

	return r
}

func (r *Recorder) RegisterMetrics() error {
	return view.Register(r.samplesView, r.bouncesView, r.rowsView)
}

func (r *Recorder) UnregisterMetrics() {
	view.Unregister(r.samplesView, r.bouncesView, r.rowsView)
}

// RecordRow records one completed image row.  A nil Recorder is a no-op.
func (r *Recorder) RecordRow(ctx context.Context, samples, bounces int64) {
	if r == nil {
		return
	}

	stats.RecordWithOptions(
		ctx,
		stats.WithTags(tag.Insert(sceneKey, r.scene)),
		stats.WithMeasurements(
			r.samples.M(samples),
			r.bounces.M(bounces),
			r.rows.M(1),
		))
}
