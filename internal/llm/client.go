// Package llm talks to chat-completion models and keeps the conversation
// history of a session.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/sokinpui/splice/internal/logger"
)

// DefaultModel is used when neither flags nor config name a model.
const DefaultModel = "gpt-4o"

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Client streams a completion for messages, calling onChunk with every
// piece of text as it arrives.
type Client interface {
	Stream(ctx context.Context, messages []Message, onChunk func(string)) error
}

// Options configures an OpenAIClient.
type Options struct {
	// APIKey defaults to $OPENAI_API_KEY.
	APIKey string
	// BaseURL points the client at an OpenAI-compatible provider.
	BaseURL string
	Model   string
}

// OpenAIClient is a Client backed by the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client from opts.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	logger.WithComponent("llm").Info("initializing OpenAI client", "model", model, "baseURL", cfg.BaseURL)

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Model returns the model name requests are sent to.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Stream implements Client.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, onChunk func(string)) error {
	log := logger.WithComponent("llm")

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
		Stream:   true,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		log.Error("OpenAI API call failed", "error", err)
		return fmt.Errorf("OpenAI API call failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			log.Debug("stream finished", "model", c.model, "elapsed", time.Since(start))
			return nil
		}
		if err != nil {
			return fmt.Errorf("OpenAI stream failed: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				onChunk(choice.Delta.Content)
			}
		}
	}
}
