package a2a

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"a2a-chat-agent/internal/auth"
)

const (
	httpClientTimeout = 60 * time.Second
	maxEventSize      = 1 << 20
)

// AgentCardPath is the well-known location of the public agent card.
const AgentCardPath = "/.well-known/agent-card.json"

// StreamPath is the endpoint serving message/stream over server-sent events.
const StreamPath = "/message/stream"

// Client communicates with an A2A agent over HTTP.
type Client struct {
	url          string
	httpClient   *http.Client
	streamClient *http.Client
	nextID       atomic.Int64
}

// NewClient creates a new A2A client for the agent at url.
func NewClient(url string) *Client {
	return &Client{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: httpClientTimeout},
		// Streams last as long as the model keeps producing.
		streamClient: &http.Client{},
	}
}

// URL returns the agent URL.
func (c *Client) URL() string { return c.url }

// StreamEvent is one decoded event of a message/stream call.
// Exactly one field is set.
type StreamEvent struct {
	Task     *Task
	Status   *TaskStatusUpdateEvent
	Artifact *TaskArtifactUpdateEvent
}

// rawResponse defers decoding of the result until its kind is known.
type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// FetchAgentCard retrieves the agent card from the well-known path.
func (c *Client) FetchAgentCard(ctx context.Context) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+AgentCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent card request: %w", err)
	}
	c.decorate(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent card response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent card request failed with status %d: %s", resp.StatusCode, body)
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("failed to parse agent card: %w", err)
	}

	return &card, nil
}

// SendMessage sends a message/send call and returns the completed task.
func (c *Client) SendMessage(ctx context.Context, text, skillID string) (*Task, error) {
	body, err := c.encode(MethodMessageSend, text, skillID)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create A2A request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.decorate(ctx, httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send A2A request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read A2A response: %w", err)
	}

	var rpcResp rawResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse A2A response (status %d): %w", httpResp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	var task Task
	if err := json.Unmarshal(rpcResp.Result, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal A2A result: %w", err)
	}
	return &task, nil
}

// StreamMessage sends a message/stream call and hands every event to
// handle in arrival order. An error event ends the call with that error.
// Returning an error from handle aborts the stream.
func (c *Client) StreamMessage(ctx context.Context, text, skillID string, handle func(StreamEvent) error) error {
	body, err := c.encode(MethodMessageStream, text, skillID)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url+StreamPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create A2A stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.decorate(ctx, httpReq)

	httpResp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send A2A stream request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(httpResp.Body)
		return fmt.Errorf("A2A stream request failed with status %d: %s", httpResp.StatusCode, b)
	}

	return readEvents(httpResp.Body, func(data []byte) error {
		ev, err := decodeEvent(data)
		if err != nil {
			return err
		}
		return handle(ev)
	})
}

func (c *Client) encode(method, text, skillID string) ([]byte, error) {
	params := MessageSendParams{
		Message: Message{
			Role:      RoleUser,
			Parts:     Parts{NewTextPart(text)},
			MessageID: uuid.NewString(),
			Kind:      KindMessage,
		},
	}
	if skillID != "" {
		params.Metadata = map[string]any{"skillId": skillID}
	}

	rpcReq := Request{
		JSONRPC: Version,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal A2A request: %w", err)
	}
	return body, nil
}

// decorate forwards the Bearer token and session ID from context.
func (c *Client) decorate(ctx context.Context, req *http.Request) {
	if token := auth.BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if sid := auth.SessionID(ctx); sid != "" {
		req.Header.Set("X-Session-ID", sid)
	}
}

// readEvents splits an event stream into the data payloads of its records.
func readEvents(r io.Reader, fn func(data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if err := fn(data); err != nil {
					return err
				}
				data = nil
			}
		case strings.HasPrefix(line, "data:"):
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")...)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	if len(data) > 0 {
		return fn(data)
	}
	return nil
}

func decodeEvent(data []byte) (StreamEvent, error) {
	var rpcResp rawResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return StreamEvent{}, fmt.Errorf("failed to parse A2A event: %w", err)
	}
	if rpcResp.Error != nil {
		return StreamEvent{}, rpcResp.Error
	}

	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(rpcResp.Result, &head); err != nil {
		return StreamEvent{}, fmt.Errorf("failed to parse A2A event kind: %w", err)
	}

	var ev StreamEvent
	var target any
	switch head.Kind {
	case KindTask:
		ev.Task = &Task{}
		target = ev.Task
	case KindStatusUpdate:
		ev.Status = &TaskStatusUpdateEvent{}
		target = ev.Status
	case KindArtifactUpdate:
		ev.Artifact = &TaskArtifactUpdateEvent{}
		target = ev.Artifact
	default:
		return StreamEvent{}, fmt.Errorf("unexpected A2A event kind %q", head.Kind)
	}
	if err := json.Unmarshal(rpcResp.Result, target); err != nil {
		return StreamEvent{}, fmt.Errorf("failed to unmarshal A2A event: %w", err)
	}
	return ev, nil
}
