// SPDX-License-Identifier: MIT
/*
Package audio produces mono float32 chunks for the render pipeline.

Sources:
  - Capture reads a PortAudio input device in real time.
  - FileSource replays a WAV file at its own sample rate, for rehearsals
    and machines without a microphone.

Both push chunks into a Consumer from their own context and never wait for
rendering. Recorder sits between a source and its consumer and writes what
passes through to a WAV file.
*/
package audio

import (
	"context"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Consumer receives audio chunks. Only samples[:frameCount] is valid and
// only for the duration of the call. A non-nil status describes a problem
// with the chunk or the stream.
type Consumer interface {
	Deliver(samples []float32, frameCount int, status error)
}

// Source is an audio input that can be started and stopped.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
}

// StreamError reports PortAudio callback flags for a chunk.
type StreamError struct {
	Flags portaudio.StreamCallbackFlags
}

func (e StreamError) Error() string {
	var parts []string
	if e.Flags&portaudio.InputUnderflow != 0 {
		parts = append(parts, "input underflow")
	}
	if e.Flags&portaudio.InputOverflow != 0 {
		parts = append(parts, "input overflow")
	}
	if len(parts) == 0 {
		return "audio stream error"
	}
	return "audio stream error: " + strings.Join(parts, ", ")
}

// inputFault is the set of flags that make an input chunk unreliable.
const inputFault = portaudio.InputUnderflow | portaudio.InputOverflow

// statusFromFlags converts callback flags into a Deliver status.
func statusFromFlags(flags portaudio.StreamCallbackFlags) error {
	if flags&inputFault == 0 {
		return nil
	}
	return StreamError{Flags: flags}
}
