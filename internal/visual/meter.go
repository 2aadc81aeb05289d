// SPDX-License-Identifier: MIT
package visual

import (
	"math"

	"audioled/internal/strip"
)

// Meter is a VU bar: the first pixels light up in proportion to the
// amplitude, each in the gradient color of its position, the rest stay dark.
type Meter struct {
	sensitivity float64
}

func NewMeter(sensitivity float64) (*Meter, error) {
	if err := checkSensitivity(sensitivity); err != nil {
		return nil, err
	}
	return &Meter{sensitivity: sensitivity}, nil
}

func (m *Meter) Map(l float64, dst Pattern) Pattern {
	n := len(dst)
	lit := int(math.Round(float64(n) * unit(l/m.sensitivity)))
	for i := range dst {
		if i < lit {
			dst[i] = GradientColor(float64(i+1) / float64(n))
		} else {
			dst[i] = strip.Black
		}
	}
	return dst
}
