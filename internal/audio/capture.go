// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applog "audioled/internal/log"

	"github.com/gordonklaus/portaudio"
)

// CaptureConfig selects the input device and stream shape.
type CaptureConfig struct {
	DeviceID        int // DefaultDeviceID for the system default.
	SampleRate      float64
	FramesPerBuffer int
	LowLatency      bool
}

// Capture streams mono float32 chunks from a PortAudio input device.
// PortAudio must be initialized for the lifetime of the Capture.
type Capture struct {
	cfg      CaptureConfig
	consumer Consumer
	device   *portaudio.DeviceInfo
	latency  time.Duration

	mu     sync.Mutex
	stream *portaudio.Stream
}

// Compile-time check for interface implementation.
var _ Source = (*Capture)(nil)

// NewCapture resolves the input device. The stream is opened by Start.
func NewCapture(cfg CaptureConfig, consumer Consumer) (*Capture, error) {
	if consumer == nil {
		return nil, errors.New("capture: consumer cannot be nil")
	}
	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	c := &Capture{cfg: cfg, consumer: consumer, device: device}
	if cfg.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}
	return c, nil
}

// Device returns the resolved input device.
func (c *Capture) Device() *portaudio.DeviceInfo { return c.device }

// Start opens and starts a one channel input stream. The context is unused:
// PortAudio owns the callback thread until Stop.
func (c *Capture) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return errors.New("capture: already started")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: c.cfg.FramesPerBuffer,
		SampleRate:      c.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.process)
	if err != nil {
		return fmt.Errorf("failed to open input stream on %q: %w", c.device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	c.stream = stream

	applog.Infof("Capture: Listening on %q (%.0f Hz, %d frames, latency %s)",
		c.device.Name, c.cfg.SampleRate, c.cfg.FramesPerBuffer, c.latency)
	return nil
}

// Stop stops and closes the stream. It is safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	applog.Infof("Capture: Input stream closed")
	return nil
}

// process is the PortAudio callback. It runs on the audio thread and must
// not block: the consumer copies the chunk and returns.
func (c *Capture) process(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	c.consumer.Deliver(in, len(in), statusFromFlags(flags))
}
