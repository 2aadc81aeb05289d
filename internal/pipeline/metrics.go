// SPDX-License-Identifier: MIT
package pipeline

import (
	"go.opentelemetry.io/otel/metric"
)

const meterName = "audioled/internal/pipeline"

// Metric names recorded by the pipeline.
const (
	MetricChunksDelivered = "audioled.chunks.delivered"
	MetricChunksDropped   = "audioled.chunks.dropped"
	MetricChunksCoalesced = "audioled.chunks.coalesced"
	MetricFramesRendered  = "audioled.frames.rendered"
	MetricCommitErrors    = "audioled.commit.errors"
	MetricRenderDuration  = "audioled.render.duration"
)

// renderBuckets are histogram boundaries in seconds. A 300 pixel WS2812
// frame takes about 9ms on the wire.
var renderBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1,
}

// Metrics holds the pipeline instruments.
type Metrics struct {
	ChunksDelivered metric.Int64Counter
	ChunksDropped   metric.Int64Counter
	ChunksCoalesced metric.Int64Counter
	FramesRendered  metric.Int64Counter
	CommitErrors    metric.Int64Counter
	RenderDuration  metric.Float64Histogram
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ChunksDelivered, err = m.Int64Counter(MetricChunksDelivered,
		metric.WithDescription("Audio chunks accepted into the handoff slot."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter(MetricChunksDropped,
		metric.WithDescription("Audio chunks discarded because of a stream error or a stopped pipeline."),
	); err != nil {
		return nil, err
	}
	if met.ChunksCoalesced, err = m.Int64Counter(MetricChunksCoalesced,
		metric.WithDescription("Audio chunks overwritten before the renderer consumed them."),
	); err != nil {
		return nil, err
	}
	if met.FramesRendered, err = m.Int64Counter(MetricFramesRendered,
		metric.WithDescription("Frames committed to the strip."),
	); err != nil {
		return nil, err
	}
	if met.CommitErrors, err = m.Int64Counter(MetricCommitErrors,
		metric.WithDescription("Failed strip commits."),
	); err != nil {
		return nil, err
	}
	if met.RenderDuration, err = m.Float64Histogram(MetricRenderDuration,
		metric.WithDescription("Time from taking a chunk to the end of its commit."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(renderBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}
