// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// collector is a Consumer that keeps copies of everything it receives.
type collector struct {
	mu       sync.Mutex
	chunks   [][]float32
	statuses []error
	done     chan struct{}
	once     sync.Once
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) Deliver(samples []float32, frameCount int, status error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status != nil {
		c.statuses = append(c.statuses, status)
		c.once.Do(func() { close(c.done) })
		return
	}
	c.chunks = append(c.chunks, append([]float32(nil), samples[:frameCount]...))
}

func (c *collector) samples() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []float32
	for _, ch := range c.chunks {
		out = append(out, ch...)
	}
	return out
}

func (c *collector) chunkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks)
}

// writeWAV encodes interleaved integer samples into a file under t.TempDir.
func writeWAV(t *testing.T, name string, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}
