// SPDX-License-Identifier: MIT
/*
Package visual turns a loudness value into a per-pixel color pattern.

Every Mapper fills a Pattern, one color per pixel, so effects that vary
along the strip fit the same interface as the uniform ones. Mappers are
built once from validated parameters and are then pure: the same loudness
and pattern length always produce the same colors.

Channel values are computed in float64, clamped to [0, 255] and rounded half
away from zero.
*/
package visual

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"audioled/internal/loudness"
	"audioled/internal/strip"
)

// ErrInvalidRange is returned for parameters that would divide by zero or
// invert the mapping.
var ErrInvalidRange = errors.New("visual: invalid range")

// Pattern is the color of each pixel, index 0 first.
type Pattern []strip.Color

// Mapper converts one loudness value into colors.
type Mapper interface {
	// Map fills dst and returns it.
	Map(l float64, dst Pattern) Pattern
}

// Policy names a Mapper.
type Policy int

const (
	PolicyBrightness Policy = iota
	PolicyGradient
	PolicyMeter
)

func (p Policy) String() string {
	switch p {
	case PolicyBrightness:
		return "brightness"
	case PolicyGradient:
		return "gradient"
	case PolicyMeter:
		return "meter"
	default:
		return "Policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePolicy converts a case-insensitive policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brightness":
		return PolicyBrightness, nil
	case "gradient":
		return PolicyGradient, nil
	case "meter", "vu":
		return PolicyMeter, nil
	default:
		return 0, fmt.Errorf("unknown visual policy %q", s)
	}
}

// Scale returns the loudness scale the policy expects its input in.
// Brightness works on decibels; the amplitude policies on linear RMS.
func (p Policy) Scale() loudness.Scale {
	if p == PolicyBrightness {
		return loudness.Decibel
	}
	return loudness.Linear
}

// Params carries the values the policies need. Each policy reads only its
// own fields.
type Params struct {
	Floor       float64     // brightness: loudness mapped to 0
	Ceiling     float64     // brightness: loudness mapped to 255
	Hue         strip.Color // brightness: channel mask, Green when zero
	Sensitivity float64     // gradient, meter: loudness mapped to full scale
}

// New builds the Mapper for policy.
func New(policy Policy, p Params) (Mapper, error) {
	switch policy {
	case PolicyBrightness:
		return NewBrightness(p.Floor, p.Ceiling, p.Hue)
	case PolicyGradient:
		return NewGradient(p.Sensitivity)
	case PolicyMeter:
		return NewMeter(p.Sensitivity)
	default:
		return nil, fmt.Errorf("unknown visual policy %v", policy)
	}
}

var namedHues = map[string]strip.Color{
	"red":    {R: 255},
	"green":  Green,
	"blue":   {B: 255},
	"white":  {R: 255, G: 255, B: 255},
	"amber":  {R: 255, G: 191},
	"cyan":   {G: 255, B: 255},
	"purple": {R: 255, B: 255},
}

// Green is the default brightness hue.
var Green = strip.Color{G: 255}

// ParseHue accepts a color name such as "green" or a #rrggbb value.
func ParseHue(s string) (strip.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedHues[s]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return strip.Color{}, fmt.Errorf("unknown hue %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return strip.Color{}, fmt.Errorf("unknown hue %q: %w", s, err)
	}
	return strip.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// channel clamps v to [0, 255] and rounds it.
func channel(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}

// unit clamps x to [0, 1]. NaN maps to 0.
func unit(x float64) float64 {
	switch {
	case !(x > 0):
		return 0
	case x > 1:
		return 1
	}
	return x
}

func fill(dst Pattern, c strip.Color) Pattern {
	for i := range dst {
		dst[i] = c
	}
	return dst
}
