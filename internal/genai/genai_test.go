package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	response *openai.ChatCompletion
	err      error
	params   openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	m.params = params
	return m.response, m.err
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewClient without key = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewClientDefaultsModel(t *testing.T) {
	c, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.model != openai.ChatModelGPT4oMini {
		t.Errorf("default model = %q, want %q", c.model, openai.ChatModelGPT4oMini)
	}

	c, err = NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("NewClient with model: %v", err)
	}
	if c.model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", c.model)
	}
}

func TestGeneratePrompt(t *testing.T) {
	mock := &mockChatService{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Your results look stable."}},
			},
		},
	}
	c := &Client{chat: mock, model: "test-model"}

	got, err := c.GeneratePrompt(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("GeneratePrompt: %v", err)
	}
	if got != "Your results look stable." {
		t.Errorf("narrative = %q, want the mocked content", got)
	}
	if mock.params.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", mock.params.Model)
	}
	if len(mock.params.Messages) != 2 {
		t.Errorf("request messages = %d, want system + user", len(mock.params.Messages))
	}
}

func TestGeneratePromptUpstreamError(t *testing.T) {
	upstream := errors.New("rate limited")
	c := &Client{chat: &mockChatService{err: upstream}, model: "test-model"}

	if _, err := c.GeneratePrompt(context.Background(), "s", "u"); !errors.Is(err, upstream) {
		t.Errorf("GeneratePrompt error = %v, want wrapped upstream error", err)
	}
}

func TestGeneratePromptNoChoices(t *testing.T) {
	c := &Client{chat: &mockChatService{response: &openai.ChatCompletion{}}, model: "test-model"}
	if _, err := c.GeneratePrompt(context.Background(), "s", "u"); !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("GeneratePrompt with empty choices = %v, want ErrNoChoicesReturned", err)
	}
}
