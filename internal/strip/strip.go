// SPDX-License-Identifier: MIT
/*
Package strip is the output boundary of the pipeline: an addressable LED
strip seen as an ordered run of RGB pixels plus a commit.

A render cycle asks the Sink for a Frame, sets every pixel and commits it.
Commit may block for the duration of the physical transmission. Protocol
details such as the GRB byte order of WS2812 parts belong to the Sink
implementation and never leak into Color or Frame.
*/
package strip

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by sinks that were used after Close.
var ErrClosed = errors.New("strip: sink closed")

// Color is one pixel in abstract RGB, 0-255 per channel.
type Color struct {
	R, G, B uint8
}

// Black is the color of an unlit pixel.
var Black = Color{}

// RGB packs c into a 0xRRGGBB value.
func (c Color) RGB() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// String formats c as #rrggbb.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Sink is the contract every LED output implements.
type Sink interface {
	// Len returns the number of pixels on the strip.
	Len() int
	// BeginFrame returns the frame to fill for the next commit. The frame is
	// owned by the sink and is only valid until the next BeginFrame.
	BeginFrame() *Frame
	// Commit pushes f to the hardware.
	Commit(f *Frame) error
	// Blank turns every pixel off and commits.
	Blank() error
	// Close releases the underlying device.
	Close() error
}

// Frame is a full set of pixel colors for one commit.
type Frame struct {
	pixels []Color
}

// NewFrame returns an all-black frame of n pixels.
func NewFrame(n int) *Frame {
	if n < 0 {
		panic(fmt.Sprintf("strip: negative frame length %d", n))
	}
	return &Frame{pixels: make([]Color, n)}
}

// Len returns the number of pixels in the frame.
func (f *Frame) Len() int { return len(f.pixels) }

// Set assigns the color of pixel i. An index outside [0, Len()) is a
// programming error and panics.
func (f *Frame) Set(i int, c Color) {
	if i < 0 || i >= len(f.pixels) {
		panic(fmt.Sprintf("strip: pixel index %d out of range [0,%d)", i, len(f.pixels)))
	}
	f.pixels[i] = c
}

// At returns the color of pixel i.
func (f *Frame) At(i int) Color {
	return f.pixels[i]
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c Color) {
	for i := range f.pixels {
		f.pixels[i] = c
	}
}

// Pixels returns the frame contents. Callers must not retain the slice past
// the next BeginFrame.
func (f *Frame) Pixels() []Color { return f.pixels }

// AppendRGB appends the frame as packed R,G,B bytes to dst.
func (f *Frame) AppendRGB(dst []byte) []byte {
	for _, c := range f.pixels {
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}
