// Package console renders the live probe stream: one compact token per probe,
// written straight to the output without line buffering.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/hamed0406/uptimeprobe/internal/domain"
)

const (
	markUp   = "✓"
	markDown = "✗"
)

type Stream struct {
	mu   sync.Mutex
	out  io.Writer
	up   *color.Color
	down *color.Color
}

// New returns a stream writing to out. When colored is false no ANSI codes
// are emitted, regardless of the terminal.
func New(out io.Writer, colored bool) *Stream {
	up := color.New(color.FgGreen)
	down := color.New(color.FgRed)
	if colored {
		up.EnableColor()
		down.EnableColor()
	} else {
		up.DisableColor()
		down.DisableColor()
	}
	return &Stream{out: out, up: up, down: down}
}

// Token formats a result as "✓ 12.34ms" or "✗ <status>".
func Token(r domain.CheckResult, precision int) string {
	if r.Up() {
		return fmt.Sprintf("%s %.*fms", markUp, precision, r.LatencyMS)
	}
	return fmt.Sprintf("%s %s", markDown, r.Status())
}

func (s *Stream) token(r domain.CheckResult, precision int) {
	c := s.down
	if r.Up() {
		c = s.up
	}
	_, _ = c.Fprint(s.out, Token(r, precision))
}

// Check writes the token of a single-target probe followed by a separator.
func (s *Stream) Check(r domain.CheckResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token(r, 2)
	_, _ = io.WriteString(s.out, " | ")
}

// CycleStart opens a sequential cycle line.
func (s *Stream) CycleStart(cycle int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, "[Cycle %d] ", cycle)
}

// Labeled writes "<label>: " before the probe is dispatched.
func (s *Stream) Labeled(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, "%s: ", label)
}

// CycleCheck writes the token of one probe inside a cycle.
func (s *Stream) CycleCheck(r domain.CheckResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token(r, 0)
	_, _ = io.WriteString(s.out, " ")
}

func (s *Stream) EndLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, "\n")
}

func (s *Stream) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, format, args...)
}
