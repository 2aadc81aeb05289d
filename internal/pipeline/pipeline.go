// SPDX-License-Identifier: MIT
/*
Package pipeline connects an audio capture callback to an LED strip.

Two contexts share a Pipeline. The capture side calls Deliver once per audio
chunk and never blocks on rendering. The render goroutine, started by Start,
turns the most recent chunk into a loudness value, maps it to colors and
commits a frame.

Handoff:
  - One slot holds the newest undelivered chunk. Deliver overwrites it, so
    when the renderer falls behind only the latest chunk is drawn.
  - A capacity-1 channel wakes the renderer. Sends are non-blocking; a
    pending wake already covers the new chunk.
  - Two sample buffers are swapped under the slot mutex, so neither side
    allocates in steady state.

Every run of the render goroutine ends by blanking the strip, whether it
was stopped, its context was cancelled or the audio stream terminated.
*/
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	applog "audioled/internal/log"
	"audioled/internal/loudness"
	"audioled/internal/strip"
	"audioled/internal/visual"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrConfiguration wraps every problem found by New.
	ErrConfiguration = errors.New("pipeline: invalid configuration")
	// ErrAlreadyRunning is returned by Start on a pipeline that has not
	// fully stopped.
	ErrAlreadyRunning = errors.New("pipeline: already running")
	// ErrStreamTerminated is passed to Deliver as the status when the audio
	// source has ended. The pipeline then stops on its own.
	ErrStreamTerminated = errors.New("pipeline: audio stream terminated")
)

// State is the lifecycle phase of a Pipeline.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of the pipeline counters. Counters accumulate across
// runs.
type Stats struct {
	Delivered    uint64 // chunks accepted into the slot
	Dropped      uint64 // chunks ignored or rejected by status
	Coalesced    uint64 // chunks overwritten before rendering
	Rendered     uint64 // successful commits
	CommitErrors uint64
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Pipeline moves loudness from Deliver to a strip.Sink.
type Pipeline struct {
	cfg     Config
	sink    strip.Sink
	metrics *Metrics

	// Render goroutine only.
	extractor *loudness.Extractor
	mapper    visual.Mapper
	pattern   visual.Pattern
	work      []float32 // chunk being rendered
	failing   uint64    // consecutive commit failures

	state atomic.Int32

	// beforePublish, when set, runs in Deliver between the unlocked state
	// check and the slot write. Tests use it to interleave Stop.
	beforePublish func()

	mu       sync.Mutex
	slot     []float32 // newest chunk, valid when pending
	pending  bool
	wake     chan struct{}
	done     chan struct{}
	stopOnce *sync.Once
	blankErr error

	delivered    atomic.Uint64
	dropped      atomic.Uint64
	coalesced    atomic.Uint64
	rendered     atomic.Uint64
	commitErrors atomic.Uint64
}

// New validates cfg against sink and builds a stopped pipeline. Every
// configuration problem is reported here, wrapped in ErrConfiguration, so
// none can surface once audio flows.
func New(cfg Config, sink strip.Sink, opts ...Option) (*Pipeline, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	if err := cfg.validate(sink); err != nil {
		return nil, err
	}
	ex, m, err := cfg.build()
	if err != nil {
		return nil, err
	}
	met, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		sink:      sink,
		metrics:   met,
		extractor: ex,
		mapper:    m,
		pattern:   make(visual.Pattern, cfg.Pixels),
		work:      make([]float32, 0, cfg.ChunkSize),
		slot:      make([]float32, 0, cfg.ChunkSize),
	}, nil
}

// State returns the current lifecycle phase.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Delivered:    p.delivered.Load(),
		Dropped:      p.dropped.Load(),
		Coalesced:    p.coalesced.Load(),
		Rendered:     p.rendered.Load(),
		CommitErrors: p.commitErrors.Load(),
	}
}

// Start launches the render goroutine. The pipeline is Running when Start
// returns. Cancelling ctx stops the run the same way Stop does. A stopped
// pipeline can be started again.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() != StateStopped {
		return ErrAlreadyRunning
	}

	p.pending = false
	p.slot = p.slot[:0]
	p.wake = make(chan struct{}, 1)
	p.done = make(chan struct{})
	p.stopOnce = &sync.Once{}
	p.blankErr = nil
	p.state.Store(int32(StateRunning))

	go p.run(ctx, p.wake, p.done)

	applog.Infof("Pipeline: Started (%d pixels, %s policy, %s loudness, %d frames at %.0f Hz)",
		p.cfg.Pixels, p.cfg.Policy, p.cfg.Scale, p.cfg.ChunkSize, p.cfg.SampleRate)
	return nil
}

// Deliver hands one chunk of mono samples to the renderer. Only
// samples[:frameCount] is read and it is copied before Deliver returns.
//
// A non-nil status drops the chunk; a status wrapping ErrStreamTerminated
// also stops the pipeline. Deliver never blocks on rendering and is ignored
// unless the pipeline is Running.
func (p *Pipeline) Deliver(samples []float32, frameCount int, status error) {
	ctx := context.Background()

	if p.State() != StateRunning {
		p.drop(ctx)
		return
	}
	if status != nil {
		if errors.Is(status, ErrStreamTerminated) {
			applog.Infof("Pipeline: Audio stream ended, stopping")
			p.requestStop()
			return
		}
		p.drop(ctx)
		applog.Debugf("Pipeline: Dropped chunk: %v", status)
		return
	}

	frameCount = min(max(frameCount, 0), len(samples))

	if p.beforePublish != nil {
		p.beforePublish()
	}

	// The state may have changed since the check above. Deciding under the
	// slot lock orders this chunk against Start resetting the slot, so a
	// chunk accepted by a previous run can never surface in the next one.
	p.mu.Lock()
	if p.State() != StateRunning {
		p.mu.Unlock()
		p.drop(ctx)
		return
	}
	overwrote := p.pending
	p.slot = append(p.slot[:0], samples[:frameCount]...)
	p.pending = true
	wake := p.wake
	p.mu.Unlock()

	p.delivered.Add(1)
	p.metrics.ChunksDelivered.Add(ctx, 1)
	if overwrote {
		p.coalesced.Add(1)
		p.metrics.ChunksCoalesced.Add(ctx, 1)
	}

	select {
	case wake <- struct{}{}:
	default:
	}
}

func (p *Pipeline) drop(ctx context.Context) {
	p.dropped.Add(1)
	p.metrics.ChunksDropped.Add(ctx, 1)
}

// requestStop moves a running pipeline to Stopping and wakes the renderer.
// It never blocks, so it is safe from the capture context.
func (p *Pipeline) requestStop() {
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}
	p.mu.Lock()
	wake := p.wake
	p.mu.Unlock()
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Stop ends the current run and waits for the render goroutine, including
// an in-flight commit, to exit. The strip is blank when Stop returns and the
// sink sees no further calls. The returned error is the blank failure, if
// any. Stop is idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	done, once := p.done, p.stopOnce
	p.mu.Unlock()

	if done == nil {
		applog.Debugf("Pipeline: Stop called but never started.")
		return nil
	}

	once.Do(func() {
		applog.Infof("Pipeline: Initiating stop sequence...")
		p.requestStop()
	})
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blankErr
}

// Done returns a channel closed when the current run has fully stopped. Before
// the first Start it returns a closed channel.
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return closedChan
	}
	return p.done
}

func (p *Pipeline) run(ctx context.Context, wake <-chan struct{}, done chan<- struct{}) {
	defer func() {
		err := p.sink.Blank()
		if err != nil {
			applog.Errorf("Pipeline: Failed to blank strip: %v", err)
		}
		p.mu.Lock()
		p.blankErr = err
		p.mu.Unlock()

		p.state.Store(int32(StateStopped))
		close(done)
		applog.Infof("Pipeline: Render goroutine finished.")
	}()

	for {
		select {
		case <-ctx.Done():
			p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
			return
		case <-wake:
		}
		if p.State() != StateRunning {
			return
		}
		if p.take() {
			p.render(ctx)
		}
	}
}

// take swaps the pending chunk into p.work.
func (p *Pipeline) take() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pending {
		return false
	}
	p.work, p.slot = p.slot, p.work[:0]
	p.pending = false
	return true
}

// render runs extract, map and commit for p.work.
func (p *Pipeline) render(ctx context.Context) {
	start := time.Now()

	l := p.extractor.Extract(p.work)
	p.pattern = p.mapper.Map(l, p.pattern)

	f := p.sink.BeginFrame()
	for i, c := range p.pattern {
		f.Set(i, c)
	}

	if err := p.sink.Commit(f); err != nil {
		p.commitErrors.Add(1)
		p.metrics.CommitErrors.Add(ctx, 1)
		p.failing++
		if p.failing == 1 {
			applog.Errorf("Pipeline: Commit failed: %v", err)
		}
		return
	}
	if p.failing > 0 {
		applog.Warnf("Pipeline: Strip recovered after %d failed commits", p.failing)
		p.failing = 0
	}

	p.rendered.Add(1)
	p.metrics.FramesRendered.Add(ctx, 1)
	p.metrics.RenderDuration.Record(ctx, time.Since(start).Seconds())
}
