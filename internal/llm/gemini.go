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

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient handles communication with the Gemini API.
type GeminiClient struct {
	model        string
	apiKey       string
	baseURL      string
	client       *http.Client
	streamClient *http.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(model string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	return &GeminiClient{
		model:        model,
		apiKey:       apiKey,
		baseURL:      geminiBaseURL,
		client:       &http.Client{Timeout: httpClientTimeout},
		streamClient: newStreamHTTPClient(),
	}, nil
}

// Gemini API request/response types

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Complete sends a generateContent request to Gemini.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpResp, err := c.send(ctx, c.client, url, req)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("Gemini API error: %s", geminiResp.Error.Message)
	}

	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	return geminiResp.text(), nil
}

// Stream sends a streamGenerateContent request and yields the text of each
// partial response.
func (c *GeminiClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	return stream(ctx, func(emit func(string) bool) error {
		url := fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.model, c.apiKey)
		httpResp, err := c.send(ctx, c.streamClient, url, req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		finished := false
		err = readSSE(httpResp.Body, func(data string) (bool, error) {
			var part geminiResponse
			if err := json.Unmarshal([]byte(data), &part); err != nil {
				return true, fmt.Errorf("Gemini stream: failed to parse event: %w", err)
			}
			if part.Error != nil {
				return true, fmt.Errorf("Gemini API error: %s", part.Error.Message)
			}
			if text := part.text(); text != "" && !emit(text) {
				return true, ctx.Err()
			}
			if len(part.Candidates) > 0 && part.Candidates[0].FinishReason != "" {
				finished = true
			}
			return false, nil
		})
		if err != nil {
			return err
		}
		if !finished {
			return fmt.Errorf("Gemini stream ended without a finish reason: %w", io.ErrUnexpectedEOF)
		}
		return nil
	})
}

func (c *GeminiClient) send(ctx context.Context, hc *http.Client, url string, req Request) (*http.Response, error) {
	geminiReq := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.User}}}},
	}
	if req.System != "" {
		geminiReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON {
		geminiReq.GenerationConfig = &geminiGenerationConfig{ResponseMimeType: "application/json"}
	}

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, statusError("Gemini", httpResp)
	}
	return httpResp, nil
}
