// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"audioled/cmd"
	"audioled/internal/audio"
	"audioled/internal/config"
	applog "audioled/internal/log"
	"audioled/internal/loudness"
	"audioled/internal/pipeline"
	"audioled/internal/strip"
	"audioled/internal/visual"
	"audioled/pkg/build"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// main is the entry point for the audio to LED application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Open the strip, build the pipeline, open the audio source
//
// 2. Concurrent Phase (Hot Path):
//   - Audio chunks flow from the capture context into the pipeline
//   - The render goroutine commits frames to the strip
//
// 3. Shutdown Phase (Cold Path):
//   - Triggered by SIGINT/SIGTERM or the end of the audio stream
//   - Stop the source, stop the pipeline (which blanks the strip)
//   - Finish the recording, release the strip and PortAudio
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags; that is not an error.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg.Command == "" {
		return
	}
	configureLogging(cfg)

	switch cfg.Command {
	case cmd.CommandList:
		err = listDevices()
	default:
		err = run(cfg)
	}
	if err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}

func configureLogging(cfg *config.Config) {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		level = applog.LevelInfo
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
}

// listDevices handles the list command, which needs PortAudio but no strip.
func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(os.Stdout)
}

func run(cfg *config.Config) (err error) {
	// Verbose runs keep an in-process metrics reader for the exit summary.
	var reader *sdkmetric.ManualReader
	if cfg.Debug {
		reader = sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		otel.SetMeterProvider(mp)
		defer func() {
			logMetricsSummary(reader)
			_ = mp.Shutdown(context.Background())
		}()
	}

	if cfg.Audio.Source == config.SourceFile {
		rate, err := audio.WAVSampleRate(cfg.Audio.InputFile)
		if err != nil {
			return err
		}
		cfg.Audio.SampleRate = float64(rate)
	}

	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		return err
	}

	sink, err := strip.Open(strip.Options{
		Driver:     cfg.Strip.Driver,
		Pixels:     cfg.Strip.Pixels,
		SPIPort:    cfg.Strip.SPIPort,
		SPISpeedHz: cfg.Strip.SPISpeedHz,
	})
	if err != nil {
		return fmt.Errorf("failed to open strip: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			applog.Warnf("Strip: Close failed: %v", cerr)
		}
	}()

	p, err := pipeline.New(pcfg, sink)
	if err != nil {
		return err
	}

	var consumer audio.Consumer = p
	var recorder *audio.Recorder
	if cfg.Audio.RecordFile != "" {
		recorder, err = audio.StartRecording(cfg.Audio.RecordFile,
			int(cfg.Audio.SampleRate), cfg.Audio.FramesPerBuffer, p)
		if err != nil {
			return err
		}
		consumer = recorder
	}

	if cfg.Audio.Source == config.SourceDevice {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}
	source, err := openSource(cfg, consumer)
	if err != nil {
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return err
	}
	if err := source.Start(ctx); err != nil {
		return errors.Join(err, p.Stop())
	}
	applog.Infof("Listening for audio... Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		applog.Infof("Received signal, shutting down")
	case <-p.Done():
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	var errs []error
	if err := source.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping audio source: %w", err))
	}
	if err := p.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("blanking strip: %w", err))
	}
	if recorder != nil {
		if err := recorder.StopRecording(); err != nil {
			errs = append(errs, fmt.Errorf("saving recording: %w", err))
		} else {
			applog.Infof("Recording saved to: %s", cfg.Audio.RecordFile)
		}
	}

	st := p.Stats()
	applog.Infof("Rendered %d frames from %d chunks (%d coalesced, %d dropped, %d commit errors)",
		st.Rendered, st.Delivered, st.Coalesced, st.Dropped, st.CommitErrors)
	return errors.Join(errs...)
}

// pipelineConfig translates the validated configuration into pipeline terms.
func pipelineConfig(cfg *config.Config) (pipeline.Config, error) {
	policy, err := visual.ParsePolicy(cfg.Visual.Policy)
	if err != nil {
		return pipeline.Config{}, err
	}
	scale, err := loudness.ParseScale(cfg.EffectiveScale())
	if err != nil {
		return pipeline.Config{}, err
	}
	hue, err := visual.ParseHue(cfg.Visual.Hue)
	if err != nil {
		return pipeline.Config{}, err
	}

	return pipeline.Config{
		Pixels:      cfg.Strip.Pixels,
		SampleRate:  cfg.Audio.SampleRate,
		ChunkSize:   cfg.Audio.FramesPerBuffer,
		Scale:       scale,
		Gain:        cfg.Visual.Gain,
		Policy:      policy,
		Floor:       cfg.EffectiveFloor(),
		Ceiling:     cfg.Visual.Ceiling,
		Sensitivity: cfg.Visual.Sensitivity,
		Hue:         hue,
	}, nil
}

func openSource(cfg *config.Config, consumer audio.Consumer) (audio.Source, error) {
	switch cfg.Audio.Source {
	case config.SourceFile:
		return audio.OpenFile(cfg.Audio.InputFile, audio.FileOptions{
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			Loop:            cfg.Audio.Loop,
		}, consumer)
	default:
		return audio.NewCapture(audio.CaptureConfig{
			DeviceID:        cfg.Audio.InputDevice,
			SampleRate:      cfg.Audio.SampleRate,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			LowLatency:      cfg.Audio.LowLatency,
		}, consumer)
	}
}

// logMetricsSummary prints the totals gathered by reader.
func logMetricsSummary(reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		applog.Warnf("Metrics: Collect failed: %v", err)
		return
	}
	for _, line := range summarize(rm) {
		applog.Infof("Metrics: %s", line)
	}
}

func summarize(rm metricdata.ResourceMetrics) []string {
	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				lines = append(lines, fmt.Sprintf("%s = %d", m.Name, total))
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					if dp.Count == 0 {
						continue
					}
					mean := dp.Sum / float64(dp.Count)
					lines = append(lines, fmt.Sprintf("%s count=%d mean=%.3fms", m.Name, dp.Count, mean*1000))
				}
			}
		}
	}
	return lines
}
