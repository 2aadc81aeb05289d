// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	applog "audioled/internal/log"
	"audioled/internal/pipeline"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FileOptions configures a FileSource.
type FileOptions struct {
	FramesPerBuffer int
	// Loop restarts the file at its end instead of terminating the stream.
	Loop bool
	// Unpaced delivers chunks as fast as possible instead of at the file's
	// sample rate. Used by tests and offline runs.
	Unpaced bool
}

// FileSource replays a PCM WAV file as mono chunks. Multi-channel files are
// mixed down by averaging. At the end of a non-looping file the consumer
// receives a status wrapping pipeline.ErrStreamTerminated.
type FileSource struct {
	path     string
	opts     FileOptions
	consumer Consumer

	file       *os.File
	dec        *wav.Decoder
	channels   int
	sampleRate int
	scale      float32 // full-scale integer to [-1, 1]
	offset     int     // unsigned 8-bit samples are centered on 128

	raw     *goaudio.IntBuffer
	samples []float32

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Compile-time check for interface implementation.
var _ Source = (*FileSource)(nil)

// OpenFile validates the WAV file at path and prepares it for replay.
func OpenFile(path string, opts FileOptions, consumer Consumer) (*FileSource, error) {
	if consumer == nil {
		return nil, errors.New("file source: consumer cannot be nil")
	}
	if opts.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("file source: invalid frames per buffer %d", opts.FramesPerBuffer)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("file source: %s is not a valid WAV file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("file source: %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	s := &FileSource{
		path:       path,
		opts:       opts,
		consumer:   consumer,
		file:       f,
		dec:        dec,
		channels:   channels,
		sampleRate: int(dec.SampleRate),
		scale:      1 / float32(int64(1)<<(bitDepth-1)),
		raw: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
			Data:   make([]int, opts.FramesPerBuffer*channels),
		},
		samples: make([]float32, opts.FramesPerBuffer),
	}
	if bitDepth == 8 {
		s.offset = 128
	}

	applog.Infof("FileSource: %s (%d Hz, %d bit, %d channels)", path, s.sampleRate, bitDepth, channels)
	return s, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *FileSource) SampleRate() int { return s.sampleRate }

// Interval returns the real time covered by one chunk.
func (s *FileSource) Interval() time.Duration {
	return time.Duration(s.opts.FramesPerBuffer) * time.Second / time.Duration(s.sampleRate)
}

// Start launches the replay goroutine.
func (s *FileSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("file source: already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.replay(ctx)
	}()
	return nil
}

// Stop ends the replay, waits for the goroutine and closes the file.
func (s *FileSource) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
		err = s.file.Close()
	})
	return err
}

func (s *FileSource) replay(ctx context.Context) {
	var tick <-chan time.Time
	if !s.opts.Unpaced {
		ticker := time.NewTicker(s.Interval())
		defer ticker.Stop()
		tick = ticker.C
	}

	rewound := false
	for {
		frames, err := s.next()
		switch {
		case err != nil:
			applog.Errorf("FileSource: Read failed: %v", err)
			s.consumer.Deliver(nil, 0, fmt.Errorf("%s: %v: %w", s.path, err, pipeline.ErrStreamTerminated))
			return
		case frames == 0 && s.opts.Loop && !rewound:
			rewound = true
			if err := s.dec.Rewind(); err != nil {
				s.consumer.Deliver(nil, 0, fmt.Errorf("%s: rewind: %v: %w", s.path, err, pipeline.ErrStreamTerminated))
				return
			}
			applog.Debugf("FileSource: Looping %s", s.path)
			continue
		case frames == 0:
			applog.Infof("FileSource: Reached the end of %s", s.path)
			s.consumer.Deliver(nil, 0, fmt.Errorf("%s: end of file: %w", s.path, pipeline.ErrStreamTerminated))
			return
		}

		rewound = false
		s.consumer.Deliver(s.samples, frames, nil)

		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return
		}
	}
}

// next decodes one chunk into s.samples and returns the number of frames.
func (s *FileSource) next() (int, error) {
	n, err := s.dec.PCMBuffer(s.raw)
	if err != nil {
		return 0, err
	}
	frames := n / s.channels
	for f := 0; f < frames; f++ {
		var sum int
		base := f * s.channels
		for ch := 0; ch < s.channels; ch++ {
			sum += s.raw.Data[base+ch] - s.offset
		}
		s.samples[f] = float32(sum) / float32(s.channels) * s.scale
	}
	return frames, nil
}

// WAVSampleRate reads the sample rate from the header of the WAV file at path.
func WAVSampleRate(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid WAV file", path)
	}
	return int(dec.SampleRate), nil
}
