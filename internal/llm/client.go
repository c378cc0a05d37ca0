package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	httpClientTimeout = 60 * time.Second
	// streamBuffer bounds how many fragments a provider may read ahead of
	// the consumer before its goroutine blocks.
	streamBuffer = 16
)

// Client is the interface for LLM providers.
//
// Stream returns a fragment channel and an error channel. The fragment
// channel is closed when the answer is complete, the backend fails or ctx
// is cancelled; the error channel then holds at most one error and is
// closed as well. Cancelling ctx aborts the backend request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// Request is a single-turn prompt.
type Request struct {
	System string
	User   string
	// JSON asks the provider for a JSON object answer where supported.
	JSON bool
}

// NewClient creates an LLM client based on the model name.
//
// Format: "provider:model" (colon is mandatory).
//
//	"google:gemini-2.5-flash"       → GeminiClient
//	"anthropic:claude-sonnet-4-5"   → ClaudeClient
//	"openai:gpt-4o-mini"            → OpenAICompatibleClient (OpenAI)
//	"mistral:mistral-large-latest"  → OpenAICompatibleClient (Mistral)
//	"ollama:llama3"                 → OpenAICompatibleClient (Ollama)
//	"openrouter:anthropic/claude-3" → OpenAICompatibleClient (OpenRouter)
func NewClient(model string) (Client, error) {
	provider, modelName, hasColon := strings.Cut(model, ":")
	if !hasColon {
		return nil, fmt.Errorf("invalid model format %q: expected \"provider:model\" (e.g. \"google:gemini-2.5-flash\")", model)
	}

	switch provider {
	case "google":
		return NewGeminiClient(modelName)
	case "anthropic":
		return NewClaudeClient(modelName)
	default:
		cfg, ok := providers[provider]
		if !ok {
			return nil, fmt.Errorf("unknown LLM provider: %q", provider)
		}
		return NewOpenAICompatibleClient(cfg, modelName), nil
	}
}

// newStreamHTTPClient returns a client without an overall deadline;
// streamed answers are bounded by the caller's context instead.
func newStreamHTTPClient() *http.Client {
	return &http.Client{}
}

// stream runs produce in a goroutine and exposes its output as channels.
// produce calls emit for every fragment; emit reports false once ctx is
// done, after which produce should return.
func stream(ctx context.Context, produce func(emit func(string) bool) error) (<-chan string, <-chan error) {
	contentCh := make(chan string, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		emit := func(s string) bool {
			select {
			case contentCh <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := produce(emit); err != nil {
			errCh <- err
			return
		}
		if err := ctx.Err(); err != nil {
			errCh <- err
		}
	}()

	return contentCh, errCh
}
