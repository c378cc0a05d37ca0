package a2a

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 protocol types for A2A communication.

// Version is the JSON-RPC protocol version carried by every envelope.
const Version = "2.0"

// Method names understood by the agent.
const (
	MethodMessageSend     = "message/send"
	MethodMessageStream   = "message/stream"
	MethodGetExtendedCard = "agent/getAuthenticatedExtendedCard"
)

// JSON-RPC error codes returned by the agent.
const (
	CodeStreamingError            = -32000
	CodeExtendedCardNotConfigured = -32007
	CodeInvalidRequest            = -32600
	CodeMethodNotFound            = -32601
)

// Request represents a JSON-RPC 2.0 request.
// ID is whatever the client sent: a number, a string or nil.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
// Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("A2A error %d: %s", e.Code, e.Message)
}

// NewResult wraps result in a success envelope.
func NewResult(id, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error envelope.
func NewError(id any, code int, message string) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: &RPCError{Code: code, Message: message}}
}

// Emitter receives the envelopes of one streaming call in order.
// Emit blocks until the transport accepted the envelope.
type Emitter interface {
	Emit(resp *Response) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(resp *Response) error

// Emit calls f(resp).
func (f EmitterFunc) Emit(resp *Response) error { return f(resp) }

// AgentCard describes an A2A agent's capabilities.
type AgentCard struct {
	ProtocolVersion                   string       `json:"protocolVersion"`
	Name                              string       `json:"name"`
	Description                       string       `json:"description,omitempty"`
	URL                               string       `json:"url"`
	Version                           string       `json:"version,omitempty"`
	PreferredTransport                string       `json:"preferredTransport,omitempty"`
	Capabilities                      Capabilities `json:"capabilities"`
	DefaultInputModes                 []string     `json:"defaultInputModes"`
	DefaultOutputModes                []string     `json:"defaultOutputModes"`
	Skills                            []Skill      `json:"skills"`
	SupportsAuthenticatedExtendedCard bool         `json:"supportsAuthenticatedExtendedCard"`
}

// Capabilities lists the optional protocol features an agent supports.
type Capabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// Skill describes a capability of an A2A agent.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// Kind discriminators carried by protocol entities.
const (
	KindText           = "text"
	KindMessage        = "message"
	KindTask           = "task"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part is a piece of message or artifact content.
// The set of variants is closed: TextPart is the only one today.
type Part interface {
	partKind() string
}

// TextPart carries UTF-8 text.
type TextPart struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func (TextPart) partKind() string { return KindText }

// NewTextPart returns a text part with its kind tag set.
func NewTextPart(text string) TextPart {
	return TextPart{Kind: KindText, Text: text}
}

// Parts is an ordered list of parts that decodes by kind tag.
type Parts []Part

// UnmarshalJSON decodes each element according to its "kind" field.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Parts, 0, len(raw))
	for _, r := range raw {
		var head struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return err
		}
		switch head.Kind {
		case KindText, "":
			var tp TextPart
			if err := json.Unmarshal(r, &tp); err != nil {
				return err
			}
			tp.Kind = KindText
			out = append(out, tp)
		default:
			return fmt.Errorf("unsupported part kind %q", head.Kind)
		}
	}
	*ps = out
	return nil
}

// Text concatenates the text of all parts.
func (ps Parts) Text() string {
	var s string
	for _, p := range ps {
		switch v := p.(type) {
		case TextPart:
			s += v.Text
		}
	}
	return s
}

// Message represents one turn of a conversation.
type Message struct {
	Role      Role   `json:"role"`
	Parts     Parts  `json:"parts"`
	MessageID string `json:"messageId"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
	Kind      string `json:"kind"`
}

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	TaskSubmitted TaskState = "submitted"
	TaskWorking   TaskState = "working"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskStatus represents the status of an A2A task.
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Artifact represents output from an A2A task.
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name,omitempty"`
	Parts      Parts  `json:"parts"`
}

// Task represents an A2A task.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	History   []Message      `json:"history"`
	Kind      string         `json:"kind"`
	Metadata  map[string]any `json:"metadata"`
}

// TaskStatusUpdateEvent reports a task state transition on a stream.
type TaskStatusUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Kind      string         `json:"kind"`
}

// TaskArtifactUpdateEvent delivers or extends an artifact on a stream.
// Append is nil on the first chunk of an artifact and true afterwards.
type TaskArtifactUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  Artifact       `json:"artifact"`
	Append    *bool          `json:"append,omitempty"`
	LastChunk *bool          `json:"lastChunk,omitempty"`
	Final     *bool          `json:"final,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Kind      string         `json:"kind"`
}

// MessageSendParams is the params for the message/send and message/stream methods.
type MessageSendParams struct {
	Message  Message        `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
