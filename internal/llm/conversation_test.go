package llm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/splice/internal/parser"
	"github.com/sokinpui/splice/internal/printer"
)

type fakeClient struct {
	chunks   []string
	err      error
	received [][]Message
}

func (f *fakeClient) Stream(_ context.Context, messages []Message, onChunk func(string)) error {
	f.received = append(f.received, messages)
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.err
}

type staticCode string

func (s staticCode) CodeMessage() string { return string(s) }

type countingIndicator struct{ starts, stops int }

func (i *countingIndicator) Start() { i.starts++ }
func (i *countingIndicator) Stop()  { i.stops++ }

func newConversation(t *testing.T, client Client, out *bytes.Buffer, ind Indicator) *Conversation {
	t.Helper()
	p, err := parser.Get("block")
	require.NoError(t, err)
	return NewConversation(client, p, staticCode("Code Files:\n\n"), ConversationOptions{
		Out:       out,
		Timing:    printer.Timing{},
		Indicator: ind,
	})
}

func TestGetModelResponse(t *testing.T) {
	response := "Adding a line.\n@@start\n{\"file\": \"a.txt\", \"action\": \"insert\", \"insert-after-line\": 1}\n@@code\nnew\n@@end"
	client := &fakeClient{chunks: []string{response[:10], response[10:]}}
	var out bytes.Buffer
	ind := &countingIndicator{}
	conv := newConversation(t, client, &out, ind)
	conv.AddUserMessage("add a line")

	edits, err := conv.GetModelResponse(context.Background(), parser.Env{Root: "/repo"})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "/repo/a.txt", edits[0].FilePath)

	assert.Equal(t, response+"\n", out.String())
	assert.Equal(t, 1, ind.starts)
	assert.Equal(t, 1, ind.stops)

	require.Len(t, client.received, 1)
	sent := client.received[0]
	require.Len(t, sent, 3)
	assert.Equal(t, RoleSystem, sent[0].Role)
	assert.True(t, strings.Contains(sent[0].Content, "@@start"))
	assert.Equal(t, Message{Role: RoleSystem, Content: "Code Files:\n\n"}, sent[1])
	assert.Equal(t, Message{Role: RoleUser, Content: "add a line"}, sent[2])

	history := conv.Messages()
	require.Len(t, history, 3)
	assert.Equal(t, Message{Role: RoleAssistant, Content: response}, history[2])
}

func TestGetModelResponseStreamError(t *testing.T) {
	client := &fakeClient{chunks: []string{"partial"}, err: errors.New("connection reset")}
	var out bytes.Buffer
	conv := newConversation(t, client, &out, nil)
	conv.AddUserMessage("hello")

	_, err := conv.GetModelResponse(context.Background(), parser.Env{Root: "/repo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Len(t, conv.Messages(), 2)
}

func TestClearKeepsSystemMessages(t *testing.T) {
	conv := newConversation(t, &fakeClient{}, &bytes.Buffer{}, nil)
	conv.AddUserMessage("one")
	conv.AddAssistantMessage("two")
	conv.Clear()

	history := conv.Messages()
	require.Len(t, history, 1)
	assert.Equal(t, RoleSystem, history[0].Role)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIClient(Options{})
	assert.Error(t, err)

	client, err := NewOpenAIClient(Options{APIKey: "sk-test", BaseURL: "http://localhost:11434/v1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.Model())
}
