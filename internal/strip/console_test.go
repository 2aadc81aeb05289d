// SPDX-License-Identifier: MIT
package strip

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDrawer struct {
	draws  []*image.NRGBA
	halted int
	err    error
}

func (d *recordingDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d.err != nil {
		return d.err
	}
	img := image.NewNRGBA(r)
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, 0, src.At(sp.X+x, sp.Y))
	}
	d.draws = append(d.draws, img)
	return nil
}

func (d *recordingDrawer) Halt() error {
	d.halted++
	return nil
}

func (d *recordingDrawer) String() string { return "recording" }

func TestConsoleCommitDrawsPixels(t *testing.T) {
	d := &recordingDrawer{}
	c := newConsole(d, 3)

	f := c.BeginFrame()
	f.Set(0, Color{R: 255})
	f.Set(1, Color{G: 255})
	f.Set(2, Color{B: 255})
	require.NoError(t, c.Commit(f))

	require.Len(t, d.draws, 1)
	img := d.draws[0]
	assert.Equal(t, image.Rect(0, 0, 3, 1), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(2, 0))
}

func TestConsoleBlank(t *testing.T) {
	d := &recordingDrawer{}
	c := newConsole(d, 2)

	c.BeginFrame().Fill(Color{R: 1, G: 2, B: 3})
	require.NoError(t, c.Blank())

	require.Len(t, d.draws, 1)
	for x := 0; x < 2; x++ {
		assert.Equal(t, color.NRGBA{A: 255}, d.draws[0].NRGBAAt(x, 0))
	}
}

func TestConsoleDrawError(t *testing.T) {
	boom := errors.New("tty gone")
	c := newConsole(&recordingDrawer{err: boom}, 2)
	assert.ErrorIs(t, c.Commit(c.BeginFrame()), boom)
}

func TestConsoleClose(t *testing.T) {
	d := &recordingDrawer{}
	c := newConsole(d, 2)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, d.halted)
	assert.ErrorIs(t, c.Commit(c.BeginFrame()), ErrClosed)
}
