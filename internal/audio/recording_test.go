// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"audioled/pkg/utils"
)

func TestRecorderRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	next := newCollector()
	rec, err := StartRecording(filename, 8000, 128, next)
	if err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	chunk := utils.SineChunk(128, 8000, 440, 0.5)
	for range 4 {
		rec.Deliver(chunk, len(chunk), nil)
	}
	rec.Deliver(chunk, len(chunk), errors.New("input overflow"))

	if got := next.chunkCount(); got != 4 {
		t.Errorf("next consumer saw %d clean chunks, want 4", got)
	}
	if len(next.statuses) != 1 {
		t.Errorf("faulted chunk should still reach the next consumer")
	}
	if got := rec.Frames(); got != 512 {
		t.Errorf("Frames() = %d, want 512", got)
	}
	if err := rec.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if err := rec.StopRecording(); err != nil {
		t.Errorf("second StopRecording: %v", err)
	}

	// Chunks after stop are forwarded but not written.
	rec.Deliver(chunk, len(chunk), nil)
	if rec.Frames() != 512 || next.chunkCount() != 5 {
		t.Errorf("after stop: %d frames recorded, %d chunks forwarded", rec.Frames(), next.chunkCount())
	}

	col := runToEnd(t, filename, FileOptions{FramesPerBuffer: 100, Unpaced: true})
	got := col.samples()
	if len(got) != 512 {
		t.Fatalf("read back %d samples, want 512", len(got))
	}
	for i, s := range got {
		want := chunk[i%len(chunk)]
		if math.Abs(float64(s-want)) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, s, want)
		}
	}
}

func TestFloatToInt32(t *testing.T) {
	tests := []struct {
		in   float32
		want int
	}{
		{0, 0},
		{1, math.MaxInt32},
		{-1, -math.MaxInt32},
		{2, math.MaxInt32},
		{-2, math.MinInt32},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := floatToInt32(tt.in); got != tt.want {
			t.Errorf("floatToInt32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStartRecordingErrors(t *testing.T) {
	if _, err := StartRecording(filepath.Join(t.TempDir(), "x.wav"), 8000, 64, nil); err == nil {
		t.Error("nil consumer should be rejected")
	}
	if _, err := StartRecording(filepath.Join(t.TempDir(), "missing", "x.wav"), 8000, 64, newCollector()); err == nil {
		t.Error("unwritable path should be rejected")
	}
}
