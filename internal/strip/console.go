// SPDX-License-Identifier: MIT
package strip

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	applog "audioled/internal/log"

	"periph.io/x/extra/devices/screen"
)

// drawer is the subset of a periph display the console sink uses.
type drawer interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
	String() string
}

// Console renders frames as a row of colored cells on the terminal. It stands
// in for the strip on machines without an SPI port.
type Console struct {
	mu     sync.Mutex
	dev    drawer
	frame  *Frame
	img    *image.NRGBA
	closed bool
}

// Compile-time check for interface implementation.
var _ Sink = (*Console)(nil)

// NewConsole returns a console preview of the given number of pixels.
func NewConsole(pixels int) (*Console, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", pixels)
	}
	applog.Infof("Strip: Console preview with %d pixels", pixels)
	return newConsole(screen.New(pixels), pixels), nil
}

func newConsole(dev drawer, pixels int) *Console {
	return &Console{
		dev:   dev,
		frame: NewFrame(pixels),
		img:   image.NewNRGBA(image.Rect(0, 0, pixels, 1)),
	}
}

func (c *Console) Len() int { return c.frame.Len() }

func (c *Console) BeginFrame() *Frame { return c.frame }

func (c *Console) Commit(f *Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitLocked(f)
}

func (c *Console) commitLocked(f *Frame) error {
	if c.closed {
		return ErrClosed
	}
	if f.Len() != c.frame.Len() {
		return fmt.Errorf("frame length %d does not match strip length %d", f.Len(), c.frame.Len())
	}
	for i, px := range f.Pixels() {
		c.img.SetNRGBA(i, 0, color.NRGBA{R: px.R, G: px.G, B: px.B, A: 0xff})
	}
	if err := c.dev.Draw(c.img.Bounds(), c.img, image.Point{}); err != nil {
		return fmt.Errorf("console draw: %w", err)
	}
	return nil
}

func (c *Console) Blank() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Fill(Black)
	return c.commitLocked(c.frame)
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.dev.Halt()
}

func (c *Console) String() string {
	return fmt.Sprintf("Console(%s, %d pixels)", c.dev, c.frame.Len())
}
