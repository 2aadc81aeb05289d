// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audioled/internal/pipeline"
)

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func runToEnd(t *testing.T, path string, opts FileOptions) *collector {
	t.Helper()
	col := newCollector()
	src, err := OpenFile(path, opts, col)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-col.done:
	case <-time.After(5 * time.Second):
		t.Fatal("file source never terminated")
	}
	if err := src.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	return col
}

func assertAll(t *testing.T, samples []float32, want float32) {
	t.Helper()
	for i, s := range samples {
		if math.Abs(float64(s-want)) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, s, want)
		}
	}
}

func TestFileSourceReplaysWholeFile(t *testing.T) {
	path := writeWAV(t, "half.wav", 8000, 16, 1, repeat(16384, 1000))
	col := runToEnd(t, path, FileOptions{FramesPerBuffer: 256, Unpaced: true})

	got := col.samples()
	if len(got) != 1000 {
		t.Fatalf("replayed %d samples, want 1000", len(got))
	}
	assertAll(t, got, 0.5)

	if len(col.statuses) != 1 || !errors.Is(col.statuses[0], pipeline.ErrStreamTerminated) {
		t.Errorf("statuses = %v, want one stream termination", col.statuses)
	}
}

func TestFileSourceMixesChannels(t *testing.T) {
	tests := []struct {
		name  string
		left  int
		right int
		want  float32
	}{
		{"Opposite", 16384, -16384, 0},
		{"Equal", 8192, 8192, 0.25},
		{"OneSided", 16384, 0, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]int, 0, 400)
			for range 200 {
				data = append(data, tt.left, tt.right)
			}
			path := writeWAV(t, "stereo.wav", 8000, 16, 2, data)
			col := runToEnd(t, path, FileOptions{FramesPerBuffer: 64, Unpaced: true})

			got := col.samples()
			if len(got) != 200 {
				t.Fatalf("replayed %d frames, want 200", len(got))
			}
			assertAll(t, got, tt.want)
		})
	}
}

func TestFileSourceUnsigned8Bit(t *testing.T) {
	path := writeWAV(t, "u8.wav", 8000, 8, 1, repeat(192, 300))
	col := runToEnd(t, path, FileOptions{FramesPerBuffer: 128, Unpaced: true})
	assertAll(t, col.samples(), 0.5)
}

func TestFileSourceLoops(t *testing.T) {
	path := writeWAV(t, "loop.wav", 8000, 16, 1, repeat(8192, 100))
	col := newCollector()
	src, err := OpenFile(path, FileOptions{FramesPerBuffer: 64, Loop: true, Unpaced: true}, col)
	if err != nil {
		t.Fatal(err)
	}
	_ = src.Start(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for col.chunkCount() < 10 {
		if time.Now().After(deadline) {
			t.Fatal("looping source stalled")
		}
		time.Sleep(time.Millisecond)
	}
	if err := src.Stop(); err != nil {
		t.Fatal(err)
	}

	if len(col.statuses) != 0 {
		t.Errorf("a looping source must not terminate: %v", col.statuses)
	}
	if got := len(col.samples()); got <= 100 {
		t.Errorf("replayed %d samples, expected more than one pass", got)
	}
}

func TestFileSourceStopsOnCancel(t *testing.T) {
	path := writeWAV(t, "long.wav", 8000, 16, 1, repeat(100, 8000))
	col := newCollector()
	src, err := OpenFile(path, FileOptions{FramesPerBuffer: 80}, col)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := src.Interval(), 10*time.Millisecond; got != want {
		t.Errorf("Interval() = %v, want %v", got, want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	_ = src.Start(ctx)
	time.Sleep(25 * time.Millisecond)
	cancel()
	if err := src.Stop(); err != nil {
		t.Fatal(err)
	}

	n := col.chunkCount()
	if n == 0 || n >= 100 {
		t.Errorf("paced replay delivered %d chunks in 25ms", n)
	}
	if len(col.statuses) != 0 {
		t.Errorf("cancellation is not a stream termination: %v", col.statuses)
	}
}

func TestOpenFileErrors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(garbage, []byte("definitely not RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := writeWAV(t, "good.wav", 8000, 16, 1, repeat(1, 10))

	tests := []struct {
		name string
		path string
		opts FileOptions
		cons Consumer
	}{
		{"Missing", filepath.Join(t.TempDir(), "nope.wav"), FileOptions{FramesPerBuffer: 64}, newCollector()},
		{"NotWAV", garbage, FileOptions{FramesPerBuffer: 64}, newCollector()},
		{"ZeroFrames", good, FileOptions{}, newCollector()},
		{"NilConsumer", good, FileOptions{FramesPerBuffer: 64}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenFile(tt.path, tt.opts, tt.cons); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWAVSampleRate(t *testing.T) {
	path := writeWAV(t, "rate.wav", 22050, 16, 1, repeat(0, 100))
	rate, err := WAVSampleRate(path)
	if err != nil || rate != 22050 {
		t.Errorf("WAVSampleRate() = %d, %v; want 22050", rate, err)
	}
	if _, err := WAVSampleRate(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("missing file should fail")
	}
}
