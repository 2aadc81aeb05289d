// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"audioled/internal/config"
	"audioled/internal/loudness"
	"audioled/internal/pipeline"
	"audioled/internal/strip"
	"audioled/internal/strip/fake"
	"audioled/internal/visual"
	"audioled/pkg/utils"

	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestPipelineConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Strip.Pixels = 60
	cfg.Visual.Policy = "meter"
	cfg.Visual.Hue = "#102030"

	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		t.Fatalf("pipelineConfig() error: %v", err)
	}
	if pcfg.Pixels != 60 || pcfg.ChunkSize != cfg.Audio.FramesPerBuffer {
		t.Errorf("sizes = %d/%d", pcfg.Pixels, pcfg.ChunkSize)
	}
	if pcfg.Policy != visual.PolicyMeter {
		t.Errorf("Policy = %v, want meter", pcfg.Policy)
	}
	if pcfg.Scale != loudness.Linear {
		t.Errorf("meter should default to the linear scale, got %v", pcfg.Scale)
	}
	if want := (strip.Color{R: 0x10, G: 0x20, B: 0x30}); pcfg.Hue != want {
		t.Errorf("Hue = %v, want %v", pcfg.Hue, want)
	}
}

// renderSilence runs the default configuration with policy on a short strip
// and returns the frame drawn for one silent chunk.
func renderSilence(t *testing.T, policy string) []strip.Color {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Visual.Policy = policy
	cfg.Strip.Pixels = 4
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		t.Fatalf("pipelineConfig() error: %v", err)
	}
	sink := fake.New(cfg.Strip.Pixels)
	p, err := pipeline.New(pcfg, sink, pipeline.WithMeterProvider(noop.NewMeterProvider()))
	if err != nil {
		t.Fatalf("pipeline.New() error: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Stop() })

	p.Deliver(utils.SilentChunk(pcfg.ChunkSize), pcfg.ChunkSize, nil)

	deadline := time.Now().Add(2 * time.Second)
	for sink.CommitCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a frame")
		}
		time.Sleep(time.Millisecond)
	}
	return sink.Last()
}

func TestDefaultConfigSilence(t *testing.T) {
	blue := strip.Color{B: 255}
	tests := []struct {
		policy string
		want   strip.Color
	}{
		{config.PolicyBrightness, strip.Black},
		{config.PolicyGradient, blue},
		{config.PolicyMeter, strip.Black},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			for i, c := range renderSilence(t, tt.policy) {
				if c != tt.want {
					t.Errorf("pixel %d = %v, want %v", i, c, tt.want)
				}
			}
		})
	}
}

func TestPipelineConfigFloor(t *testing.T) {
	cfg := config.NewConfig()
	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if pcfg.Floor != config.DefaultFloorDB {
		t.Errorf("brightness floor = %g, want %g dB", pcfg.Floor, float64(config.DefaultFloorDB))
	}

	cfg.Visual.Policy = config.PolicyGradient
	if pcfg, _ = pipelineConfig(cfg); pcfg.Floor != config.DefaultFloorLinear {
		t.Errorf("gradient floor = %g, want %g", pcfg.Floor, float64(config.DefaultFloorLinear))
	}
}

func TestPipelineConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"policy", func(c *config.Config) { c.Visual.Policy = "strobe" }},
		{"scale", func(c *config.Config) { c.Visual.Scale = "sones" }},
		{"hue", func(c *config.Config) { c.Visual.Hue = "chartreuse-ish" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			tt.mutate(cfg)
			if _, err := pipelineConfig(cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	meter := mp.Meter("test")
	counter, _ := meter.Int64Counter("audioled.frames.rendered")
	hist, _ := meter.Float64Histogram("audioled.render.duration")
	counter.Add(context.Background(), 3)
	counter.Add(context.Background(), 4)
	hist.Record(context.Background(), 0.002)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	out := strings.Join(summarize(rm), "\n")
	if !strings.Contains(out, "audioled.frames.rendered = 7") {
		t.Errorf("summary is missing the counter total: %q", out)
	}
	if !strings.Contains(out, "audioled.render.duration count=1 mean=2.000ms") {
		t.Errorf("summary is missing the histogram: %q", out)
	}
}
