// SPDX-License-Identifier: MIT
package visual

import (
	"fmt"
	"math"

	"audioled/internal/strip"
)

// Brightness lights every pixel with one hue whose intensity follows the
// loudness between floor and ceiling.
type Brightness struct {
	floor, ceiling float64
	hue            strip.Color
}

// NewBrightness returns a Brightness mapper. A zero hue means Green.
func NewBrightness(floor, ceiling float64, hue strip.Color) (*Brightness, error) {
	if math.IsNaN(floor) || math.IsNaN(ceiling) || math.IsInf(floor, 0) || math.IsInf(ceiling, 0) {
		return nil, fmt.Errorf("%w: floor %v and ceiling %v must be finite", ErrInvalidRange, floor, ceiling)
	}
	if floor >= ceiling {
		return nil, fmt.Errorf("%w: floor %v must be below ceiling %v", ErrInvalidRange, floor, ceiling)
	}
	if hue == (strip.Color{}) {
		hue = Green
	}
	return &Brightness{floor: floor, ceiling: ceiling, hue: hue}, nil
}

// Level returns the 0-255 brightness for l.
func (b *Brightness) Level(l float64) uint8 {
	return channel(255 * unit((l-b.floor)/(b.ceiling-b.floor)))
}

func (b *Brightness) Map(l float64, dst Pattern) Pattern {
	level := float64(b.Level(l)) / 255
	c := strip.Color{
		R: channel(float64(b.hue.R) * level),
		G: channel(float64(b.hue.G) * level),
		B: channel(float64(b.hue.B) * level),
	}
	return fill(dst, c)
}
