// SPDX-License-Identifier: MIT
package visual

import (
	"fmt"
	"math"

	"audioled/internal/strip"
)

// Gradient sweeps the whole strip from blue through green to red as the
// amplitude rises from 0 to the sensitivity.
type Gradient struct {
	sensitivity float64
}

// NewGradient returns a Gradient mapper reaching red at sensitivity.
func NewGradient(sensitivity float64) (*Gradient, error) {
	if err := checkSensitivity(sensitivity); err != nil {
		return nil, err
	}
	return &Gradient{sensitivity: sensitivity}, nil
}

func (g *Gradient) Map(l float64, dst Pattern) Pattern {
	return fill(dst, GradientColor(unit(l/g.sensitivity)))
}

// GradientColor returns the sweep color at position x in [0, 1]. The range
// splits into three equal bands: green rises while blue falls, then red
// rises, then green falls.
//
//	0   -> (0, 0, 255)
//	1/3 -> (0, 255, 0)
//	2/3 -> (255, 255, 0)
//	1   -> (255, 0, 0)
func GradientColor(x float64) strip.Color {
	x = 3 * unit(x)
	switch {
	case x < 1:
		return strip.Color{G: channel(255 * x), B: channel(255 * (1 - x))}
	case x < 2:
		return strip.Color{R: channel(255 * (x - 1)), G: 255}
	default:
		return strip.Color{R: 255, G: channel(255 * (3 - x))}
	}
}

func checkSensitivity(s float64) error {
	if !(s > 0) || math.IsInf(s, 0) {
		return fmt.Errorf("%w: sensitivity %v must be positive", ErrInvalidRange, s)
	}
	return nil
}
