package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a provider is used without credentials.
var ErrNotConfigured = errors.New("llm: api key not configured")

// ErrEmptyResponse is returned when the provider answers without any choice.
var ErrEmptyResponse = errors.New("llm: empty response")

// Message is one chat turn. ImageURL (an http(s) or data: URL) attaches an
// image to a user turn for providers that accept images.
type Message struct {
	Role     string
	Content  string
	ImageURL string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// JSONClient is a Client that can force a JSON object response.
// maxTokens <= 0 leaves the provider default.
type JSONClient interface {
	Client
	GenerateJSON(ctx context.Context, messages []Message, maxTokens int) (Response, error)
}
