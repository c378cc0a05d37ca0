package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const (
	claudeBaseURL   = "https://api.anthropic.com/v1/messages"
	claudeMaxTokens = 4096
	claudeVersion   = "2023-06-01"
)

// ClaudeClient handles communication with the Anthropic Messages API.
type ClaudeClient struct {
	model        string
	apiKey       string
	baseURL      string
	client       *http.Client
	streamClient *http.Client
}

// NewClaudeClient creates a new Claude client.
func NewClaudeClient(model string) (*ClaudeClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	return &ClaudeClient{
		model:        model,
		apiKey:       apiKey,
		baseURL:      claudeBaseURL,
		client:       &http.Client{Timeout: httpClientTimeout},
		streamClient: newStreamHTTPClient(),
	}, nil
}

// Claude API request/response types

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
	Stream    bool            `json:"stream,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Role       string               `json:"role"`
	Content    []claudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Error      *claudeError         `json:"error,omitempty"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// claudeStreamEvent covers the event payloads used while streaming:
// content_block_delta carries text, error aborts the stream.
type claudeStreamEvent struct {
	Type  string       `json:"type"`
	Delta *claudeDelta `json:"delta,omitempty"`
	Error *claudeError `json:"error,omitempty"`
}

type claudeDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends a request to Claude and returns the concatenated text blocks.
func (c *ClaudeClient) Complete(ctx context.Context, req Request) (string, error) {
	httpResp, err := c.send(ctx, c.client, req, false)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if claudeResp.Error != nil {
		return "", fmt.Errorf("Claude API error: %s", claudeResp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Stream sends a streaming request to Claude and yields text deltas.
func (c *ClaudeClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	return stream(ctx, func(emit func(string) bool) error {
		httpResp, err := c.send(ctx, c.streamClient, req, true)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		done := false
		err = readSSE(httpResp.Body, func(data string) (bool, error) {
			var ev claudeStreamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return true, fmt.Errorf("Claude stream: failed to parse event: %w", err)
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta != nil && ev.Delta.Text != "" && !emit(ev.Delta.Text) {
					return true, ctx.Err()
				}
			case "message_stop":
				done = true
				return true, nil
			case "error":
				msg := "unknown error"
				if ev.Error != nil {
					msg = ev.Error.Message
				}
				return true, fmt.Errorf("Claude API error: %s", msg)
			}
			return false, nil
		})
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("Claude stream ended before message_stop: %w", io.ErrUnexpectedEOF)
		}
		return nil
	})
}

func (c *ClaudeClient) send(ctx context.Context, hc *http.Client, req Request, streaming bool) (*http.Response, error) {
	system := req.System
	if req.JSON {
		system += "\n\nRespond with a single JSON object and nothing else."
	}

	claudeReq := claudeRequest{
		Model:     c.model,
		MaxTokens: claudeMaxTokens,
		System:    system,
		Messages:  []claudeMessage{{Role: "user", Content: req.User}},
		Stream:    streaming,
	}

	body, err := json.Marshal(claudeReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", claudeVersion)

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, statusError("Claude", httpResp)
	}
	return httpResp, nil
}
