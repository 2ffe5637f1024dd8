// Package printer renders streamed model output one character at a time so
// text appears at a steady pace regardless of how bursty the source is.
package printer

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sokinpui/splice/internal/ui"
)

// Timing controls the drain pace.
type Timing struct {
	// MaxFinishTime is how long the whole backlog should take to print.
	MaxFinishTime time.Duration
	MinSleep      time.Duration
	MaxSleep      time.Duration
	// ShutdownMaxSleep replaces MaxSleep once WrapItUp has been called.
	ShutdownMaxSleep time.Duration
}

// DefaultTiming is the pace used by interactive sessions.
var DefaultTiming = Timing{
	MaxFinishTime:    time.Second,
	MinSleep:         2 * time.Millisecond,
	MaxSleep:         6 * time.Millisecond,
	ShutdownMaxSleep: 2 * time.Millisecond,
}

// StreamingPrinter buffers chunks of text and drains them to a writer.
// AddString and WrapItUp are safe to call while PrintLines runs.
type StreamingPrinter struct {
	out    io.Writer
	timing Timing

	mu       sync.Mutex
	queue    []string
	shutdown bool
}

// New returns a printer writing to out.
func New(out io.Writer, timing Timing) *StreamingPrinter {
	return &StreamingPrinter{out: out, timing: timing}
}

// AddString enqueues s followed by end. When tag names a color the escape
// sequences are attached to the first and last characters so each one can
// be written on its own. Calls after WrapItUp are ignored.
func (p *StreamingPrinter) AddString(s, end, tag string) {
	if s == "" {
		return
	}
	s += end

	characters := strings.Split(s, "")
	if c := ui.Color(tag); c != nil {
		colored := c.Sprint(s)
		if index := strings.Index(colored, s); index >= 0 {
			characters[0] = colored[:index] + characters[0]
			characters[len(characters)-1] += colored[index+len(s):]
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return
	}
	p.queue = append(p.queue, characters...)
}

// Remaining returns the number of characters not yet printed.
func (p *StreamingPrinter) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// SleepTime returns the pause before the next character.
func (p *StreamingPrinter) SleepTime() time.Duration {
	p.mu.Lock()
	remaining, shutdown := len(p.queue), p.shutdown
	p.mu.Unlock()
	return p.timing.sleep(remaining, shutdown)
}

func (t Timing) sleep(remaining int, shutdown bool) time.Duration {
	maxSleep := t.MaxSleep
	if shutdown {
		maxSleep = t.ShutdownMaxSleep
	}
	required := t.MaxFinishTime / time.Duration(remaining+1)
	return max(min(maxSleep, required), t.MinSleep)
}

// PrintLines drains the queue until WrapItUp has been called and the
// backlog is empty, or ctx is done.
func (p *StreamingPrinter) PrintLines(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		p.mu.Lock()
		if len(p.queue) == 0 && p.shutdown {
			p.mu.Unlock()
			return nil
		}
		var next string
		if len(p.queue) > 0 {
			next = p.queue[0]
			p.queue = p.queue[1:]
		}
		p.mu.Unlock()

		if next != "" {
			if _, err := io.WriteString(p.out, next); err != nil {
				return err
			}
		}
		timer.Reset(p.SleepTime())
	}
}

// WrapItUp stops accepting new text. The backlog keeps draining at the
// faster shutdown pace.
func (p *StreamingPrinter) WrapItUp() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
}
