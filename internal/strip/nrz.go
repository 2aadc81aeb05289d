// SPDX-License-Identifier: MIT
package strip

import (
	"fmt"
	"io"
	"sync"

	applog "audioled/internal/log"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// DefaultSPIFreq is the SPI clock nrzled needs to emit 800 kHz NRZ bits.
const DefaultSPIFreq = 2500 * physic.KiloHertz

// NRZ drives a WS2812-class strip through an SPI port.
type NRZ struct {
	mu     sync.Mutex
	dev    *nrzled.Dev
	port   io.Closer // nil when the caller owns the port
	frame  *Frame
	raw    []byte // packed RGB, reused across commits
	closed bool
}

// Compile-time check for interface implementation.
var _ Sink = (*NRZ)(nil)

// OpenNRZ initializes the host drivers, opens the named SPI port (empty for
// the first one available) and returns a strip of the given length on it.
func OpenNRZ(portName string, pixels int, freq physic.Frequency) (*NRZ, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", portName, err)
	}
	s, err := NewNRZ(port, pixels, freq)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	s.port = port
	applog.Infof("Strip: WS2812 strip with %d pixels on %s", pixels, port)
	return s, nil
}

// NewNRZ returns a strip on an already opened port. The port stays owned by
// the caller.
func NewNRZ(port spi.Port, pixels int, freq physic.Frequency) (*NRZ, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", pixels)
	}
	if freq == 0 {
		freq = DefaultSPIFreq
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create nrzled device: %w", err)
	}
	return &NRZ{
		dev:   dev,
		frame: NewFrame(pixels),
		raw:   make([]byte, 0, 3*pixels),
	}, nil
}

func (s *NRZ) Len() int { return s.frame.Len() }

func (s *NRZ) BeginFrame() *Frame { return s.frame }

// Commit encodes the frame and writes it to the strip. nrzled handles the
// GRB wire order.
func (s *NRZ) Commit(f *Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(f)
}

func (s *NRZ) commitLocked(f *Frame) error {
	if s.closed {
		return ErrClosed
	}
	if f.Len() != s.frame.Len() {
		return fmt.Errorf("frame length %d does not match strip length %d", f.Len(), s.frame.Len())
	}
	s.raw = f.AppendRGB(s.raw[:0])
	if _, err := s.dev.Write(s.raw); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	return nil
}

func (s *NRZ) Blank() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame.Fill(Black)
	return s.commitLocked(s.frame)
}

// Close releases the SPI port when OpenNRZ opened it. It does not blank the
// strip.
func (s *NRZ) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.port != nil {
		if err := s.port.Close(); err != nil {
			return fmt.Errorf("failed to close SPI port: %w", err)
		}
	}
	return nil
}

func (s *NRZ) String() string {
	return fmt.Sprintf("NRZ(%s, %d pixels)", s.dev, s.frame.Len())
}
