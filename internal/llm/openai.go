package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// providerConfig holds the configuration for an OpenAI-compatible provider.
type providerConfig struct {
	name      string
	baseURL   string
	apiKeyEnv string
	headers   map[string]string
}

// providers is the registry of OpenAI-compatible provider configurations.
// Adding a new provider requires only a new entry here.
var providers = map[string]providerConfig{
	"openai": {
		name:      "openai",
		baseURL:   "https://api.openai.com/v1",
		apiKeyEnv: "OPENAI_API_KEY",
	},
	"mistral": {
		name:      "mistral",
		baseURL:   "https://api.mistral.ai/v1",
		apiKeyEnv: "MISTRAL_API_KEY",
	},
	"ollama": {
		name:      "ollama",
		baseURL:   "http://localhost:11434/v1",
		apiKeyEnv: "",
	},
	"openrouter": {
		name:      "openrouter",
		baseURL:   "https://openrouter.ai/api/v1",
		apiKeyEnv: "OPENROUTER_API_KEY",
		headers: map[string]string{
			"HTTP-Referer": "https://github.com/a2a-chat-agent",
			"X-Title":      "A2A Chat Agent",
		},
	},
}

// OpenAICompatibleClient handles communication with OpenAI-compatible APIs.
type OpenAICompatibleClient struct {
	model        string
	config       providerConfig
	client       *http.Client
	streamClient *http.Client
}

// NewOpenAICompatibleClient creates a new client for the given provider config and model name.
// Validation is lazy: missing API keys do not cause errors at creation time.
func NewOpenAICompatibleClient(cfg providerConfig, model string) *OpenAICompatibleClient {
	// Ollama: override base URL from env var
	if cfg.name == "ollama" {
		if envURL := os.Getenv("OLLAMA_BASE_URL"); envURL != "" {
			cfg.baseURL = envURL
		}
	}
	return &OpenAICompatibleClient{
		model:        model,
		config:       cfg,
		client:       &http.Client{Timeout: httpClientTimeout},
		streamClient: newStreamHTTPClient(),
	}
}

// OpenAI Chat Completions request/response types

type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	Stream         bool                  `json:"stream,omitempty"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponseFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
	Delta   openaiMessage `json:"delta"`
}

// openaiStreamChunk is one event of a streamed completion. Some
// compatible providers report failures inline instead of via status code.
type openaiStreamChunk struct {
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error"`
}

type openaiErrorResponse struct {
	Error *openaiError `json:"error"`
}

type openaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Complete sends a chat completion request and returns the answer text.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, req Request) (string, error) {
	httpResp, err := c.send(ctx, c.client, req, false)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return oaiResp.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request and yields content deltas.
func (c *OpenAICompatibleClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	return stream(ctx, func(emit func(string) bool) error {
		httpResp, err := c.send(ctx, c.streamClient, req, true)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		done := false
		err = readSSE(httpResp.Body, func(data string) (bool, error) {
			if data == "[DONE]" {
				done = true
				return true, nil
			}
			var chunk openaiStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return true, fmt.Errorf("%s stream: failed to parse event: %w", c.config.name, err)
			}
			if chunk.Error != nil {
				return true, fmt.Errorf("%s API error: %s", c.config.name, chunk.Error.Message)
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !emit(chunk.Choices[0].Delta.Content) {
					return true, ctx.Err()
				}
			}
			return false, nil
		})
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("%s stream ended before [DONE]: %w", c.config.name, io.ErrUnexpectedEOF)
		}
		return nil
	})
}

func (c *OpenAICompatibleClient) send(ctx context.Context, hc *http.Client, req Request, streaming bool) (*http.Response, error) {
	msgs := make([]openaiMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openaiMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, openaiMessage{Role: "user", Content: req.User})

	oaiReq := openaiRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   streaming,
	}
	if req.JSON && !streaming {
		oaiReq.ResponseFormat = &openaiResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	// Conditional Authorization header
	if c.config.apiKeyEnv != "" {
		if apiKey := os.Getenv(c.config.apiKeyEnv); apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}

	for k, v := range c.config.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(httpResp.Body)
		var errResp openaiErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("%s API error (%d): %s", c.config.name, httpResp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%s API error (%d): %s", c.config.name, httpResp.StatusCode, http.StatusText(httpResp.StatusCode))
	}

	return httpResp, nil
}
