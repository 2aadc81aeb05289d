// SPDX-License-Identifier: MIT

// Package fake provides an in-memory strip.Sink that records what it is asked
// to show.
package fake

import (
	"sync"
	"time"

	"audioled/internal/strip"
)

// Sink records every committed frame. It is safe for concurrent use.
type Sink struct {
	mu       sync.Mutex
	frame    *strip.Frame
	commits  [][]strip.Color
	attempts int
	blanks   int
	closed   bool

	commitErr   error
	commitDelay time.Duration
	onCommit    func(n int)
}

// Compile-time check for interface implementation.
var _ strip.Sink = (*Sink)(nil)

// New returns a recording sink of n pixels.
func New(n int) *Sink {
	return &Sink{frame: strip.NewFrame(n)}
}

// SetCommitError makes every following Commit fail with err. A nil err
// restores normal behavior.
func (s *Sink) SetCommitError(err error) {
	s.mu.Lock()
	s.commitErr = err
	s.mu.Unlock()
}

// SetCommitDelay makes Commit sleep for d before recording, as a slow strip
// would.
func (s *Sink) SetCommitDelay(d time.Duration) {
	s.mu.Lock()
	s.commitDelay = d
	s.mu.Unlock()
}

// OnCommit registers fn to run at the start of every Commit with the number
// of commits attempted so far. fn runs without the sink lock held and may
// block.
func (s *Sink) OnCommit(fn func(n int)) {
	s.mu.Lock()
	s.onCommit = fn
	s.mu.Unlock()
}

func (s *Sink) Len() int { return s.frame.Len() }

func (s *Sink) BeginFrame() *strip.Frame { return s.frame }

func (s *Sink) Commit(f *strip.Frame) error {
	s.mu.Lock()
	fn, delay := s.onCommit, s.commitDelay
	s.attempts++
	n := s.attempts
	s.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return strip.ErrClosed
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, append([]strip.Color(nil), f.Pixels()...))
	return nil
}

func (s *Sink) Blank() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return strip.ErrClosed
	}
	s.frame.Fill(strip.Black)
	s.blanks++
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Commits returns a copy of every successfully committed frame in order.
func (s *Sink) Commits() [][]strip.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]strip.Color, len(s.commits))
	copy(out, s.commits)
	return out
}

// CommitCount returns the number of successful commits.
func (s *Sink) CommitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commits)
}

// Last returns the most recent committed frame, or nil.
func (s *Sink) Last() []strip.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.commits) == 0 {
		return nil
	}
	return s.commits[len(s.commits)-1]
}

// Blanks returns how many times Blank was called.
func (s *Sink) Blanks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blanks
}

// Closed reports whether Close was called.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
