package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/splice/internal/edit"
	"github.com/sokinpui/splice/internal/logger"
	"github.com/sokinpui/splice/internal/parser"
	"github.com/sokinpui/splice/internal/printer"
)

// CodeSource supplies the code message sent with every request.
type CodeSource interface {
	CodeMessage() string
}

// Indicator shows that a request is in flight until the first token lands.
type Indicator interface {
	Start()
	Stop()
}

// Conversation holds the message history of a session.
type Conversation struct {
	client    Client
	parser    parser.Parser
	code      CodeSource
	out       io.Writer
	timing    printer.Timing
	indicator Indicator

	messages []Message
}

// ConversationOptions configures how responses are shown.
type ConversationOptions struct {
	// Out receives the streamed response.
	Out    io.Writer
	Timing printer.Timing
	// Indicator may be nil.
	Indicator Indicator
}

// NewConversation starts a conversation whose system prompt teaches the
// model p's output format.
func NewConversation(client Client, p parser.Parser, code CodeSource, opts ConversationOptions) *Conversation {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Conversation{
		client:    client,
		parser:    p,
		code:      code,
		out:       out,
		timing:    opts.Timing,
		indicator: opts.Indicator,
		messages:  []Message{{Role: RoleSystem, Content: p.Prompt()}},
	}
}

// AddUserMessage appends a user turn.
func (c *Conversation) AddUserMessage(content string) {
	c.messages = append(c.messages, Message{Role: RoleUser, Content: content})
}

// AddAssistantMessage appends a model turn.
func (c *Conversation) AddAssistantMessage(content string) {
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: content})
}

// Clear drops everything but the system messages.
func (c *Conversation) Clear() {
	kept := c.messages[:0]
	for _, m := range c.messages {
		if m.Role == RoleSystem {
			kept = append(kept, m)
		}
	}
	c.messages = kept
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// request is the history with the current code message placed after the
// system messages.
func (c *Conversation) request() []Message {
	var system, rest []Message
	for _, m := range c.messages {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}
	out := append(system, Message{Role: RoleSystem, Content: c.code.CodeMessage()})
	return append(out, rest...)
}

// GetModelResponse sends the conversation, streams the answer to the
// output, records it and parses it into edits.
func (c *Conversation) GetModelResponse(ctx context.Context, env parser.Env) ([]*edit.FileEdit, error) {
	log := logger.WithComponent("llm")
	messages := c.request()

	p := printer.New(c.out, c.timing)
	var response strings.Builder
	var stopIndicator sync.Once
	if c.indicator != nil {
		c.indicator.Start()
	}
	stop := func() {
		if c.indicator != nil {
			stopIndicator.Do(c.indicator.Stop)
		}
	}
	defer stop()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.PrintLines(gctx)
	})
	g.Go(func() error {
		defer p.WrapItUp()
		err := c.client.Stream(gctx, messages, func(chunk string) {
			stop()
			response.WriteString(chunk)
			p.AddString(chunk, "", "")
		})
		p.AddString("\n", "", "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("model response received", "elapsed", time.Since(start), "chars", response.Len())

	text := response.String()
	c.AddAssistantMessage(text)

	edits, err := c.parser.Parse(text, env)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return edits, nil
}
