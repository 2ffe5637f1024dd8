package input

import (
	"context"
	"strings"
	"sync"
)

// Notifier receives the prompt text shown before a yes/no question.
type Notifier interface {
	Send(message string, color string)
}

type lineResult struct {
	line string
	err  error
}

// Collector turns a blocking Reader into context-aware reads. At most one
// read is outstanding; a read abandoned by a cancelled context is handed to
// the next caller instead of being lost.
type Collector struct {
	reader   Reader
	notifier Notifier

	mu      sync.Mutex
	pending chan lineResult
}

// NewCollector wraps reader. notifier may be nil.
func NewCollector(reader Reader, notifier Notifier) *Collector {
	return &Collector{reader: reader, notifier: notifier}
}

// ReadLine waits for the next line or for ctx to be done.
func (c *Collector) ReadLine(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.pending == nil {
		ch := make(chan lineResult, 1)
		c.pending = ch
		go func() {
			line, err := c.reader.ReadLine()
			ch <- lineResult{line: line, err: err}
		}()
	}
	pending := c.pending
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-pending:
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		return res.line, res.err
	}
}

// AskYesNo asks until the user answers y or n. An empty answer returns
// defaultYes.
func (c *Collector) AskYesNo(ctx context.Context, defaultYes bool) (bool, error) {
	hint := "(y/N)"
	if defaultYes {
		hint = "(Y/n)"
	}
	for {
		c.send(hint, "")
		line, err := c.ReadLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.send("Please enter y or n.", "light_yellow")
	}
}

func (c *Collector) send(message, color string) {
	if c.notifier != nil {
		c.notifier.Send(message, color)
	}
}
