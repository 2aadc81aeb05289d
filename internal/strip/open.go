// SPDX-License-Identifier: MIT
package strip

import (
	"fmt"

	applog "audioled/internal/log"

	"periph.io/x/conn/v3/physic"
)

// Driver names accepted by Open.
const (
	DriverAuto    = "auto"
	DriverSPI     = "spi"
	DriverConsole = "console"
)

// Options selects and parameterizes a Sink.
type Options struct {
	Driver     string // DriverAuto, DriverSPI or DriverConsole.
	Pixels     int    // Strip length.
	SPIPort    string // Empty for the first SPI port.
	SPISpeedHz int64  // SPI clock, 0 for DefaultSPIFreq.
}

// Open returns the sink described by opts. DriverAuto falls back to the
// console preview when no SPI port can be opened.
func Open(opts Options) (Sink, error) {
	freq := physic.Frequency(opts.SPISpeedHz) * physic.Hertz

	switch opts.Driver {
	case DriverSPI:
		return sinkOrNil(OpenNRZ(opts.SPIPort, opts.Pixels, freq))
	case DriverConsole:
		return sinkOrNil(NewConsole(opts.Pixels))
	case DriverAuto, "":
		s, err := OpenNRZ(opts.SPIPort, opts.Pixels, freq)
		if err == nil {
			return s, nil
		}
		applog.Warnf("Strip: No usable SPI strip (%v), printing at the console", err)
		return sinkOrNil(NewConsole(opts.Pixels))
	default:
		return nil, fmt.Errorf("unknown strip driver %q", opts.Driver)
	}
}

// sinkOrNil keeps a failed constructor from returning a non-nil Sink that
// holds a nil pointer.
func sinkOrNil[S Sink](s S, err error) (Sink, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
