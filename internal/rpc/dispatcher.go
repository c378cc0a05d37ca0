// Package rpc routes JSON-RPC calls to the agent and maps every failure
// to an error envelope.
package rpc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"a2a-chat-agent/internal/a2a"
	"a2a-chat-agent/internal/agent"
	"a2a-chat-agent/internal/auth"
	"a2a-chat-agent/internal/metrics"
)

// Error messages of the protocol-shape errors.
const (
	msgInvalidRequest     = "Invalid Request"
	msgExpectedStream     = "Expected JSON-RPC method message/stream"
	msgStreamingEndpoint  = "Streaming not supported on this endpoint. Use /message/stream."
	msgExtendedCardNotSet = "AuthenticatedExtendedCardNotConfiguredError"
	msgMethodNotFound     = "Method not found: "
)

// Handler performs the work behind message/send and message/stream.
type Handler interface {
	Send(ctx context.Context, req agent.Request) (*a2a.Task, error)
	Stream(ctx context.Context, req agent.Request, emitter a2a.Emitter) error
}

// Dispatcher is stateless and safe for concurrent use.
type Dispatcher struct {
	handler Handler
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a dispatcher. m may be nil.
func New(handler Handler, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handler: handler, metrics: m, logger: logger}
}

// Dispatch handles a call on the single-response path. A nil req stands
// for a body that could not be parsed.
func (d *Dispatcher) Dispatch(ctx context.Context, req *a2a.Request) *a2a.Response {
	if req == nil || req.Method == "" {
		d.metrics.Request("", a2a.CodeInvalidRequest)
		return a2a.NewError(nil, a2a.CodeInvalidRequest, msgInvalidRequest)
	}

	d.logCaller(ctx, "call")
	d.logger.DebugContext(ctx, "received JSON-RPC request", "category", "protocol", "id", req.ID, "method", req.Method, "params", req.Params)

	var resp *a2a.Response
	switch req.Method {
	case a2a.MethodMessageSend:
		resp = d.send(ctx, req)
	case a2a.MethodGetExtendedCard:
		resp = a2a.NewError(req.ID, a2a.CodeExtendedCardNotConfigured, msgExtendedCardNotSet)
	case a2a.MethodMessageStream:
		resp = a2a.NewError(req.ID, a2a.CodeMethodNotFound, msgStreamingEndpoint)
	default:
		resp = a2a.NewError(req.ID, a2a.CodeMethodNotFound, msgMethodNotFound+req.Method)
	}

	d.metrics.Request(req.Method, code(resp))
	d.logger.DebugContext(ctx, "sending JSON-RPC response", "category", "protocol", "id", resp.ID, "code", code(resp))
	return resp
}

// DispatchStream handles a call on the streaming path, writing every
// envelope to emitter. Only message/stream is accepted there; anything else
// yields one -32600 envelope. The returned error reports delivery failures.
func (d *Dispatcher) DispatchStream(ctx context.Context, req *a2a.Request, emitter a2a.Emitter) error {
	d.logCaller(ctx, "streaming call")

	if req == nil || req.Method != a2a.MethodMessageStream {
		var id any
		method := ""
		if req != nil {
			id = req.ID
			method = req.Method
		}
		d.metrics.Request(method, a2a.CodeInvalidRequest)
		return emitter.Emit(a2a.NewError(id, a2a.CodeInvalidRequest, msgExpectedStream))
	}

	d.logger.DebugContext(ctx, "received streaming request", "category", "protocol", "id", req.ID, "params", req.Params)
	d.metrics.Request(req.Method, 0)
	return d.handler.Stream(ctx, routed(req), emitter)
}

func (d *Dispatcher) send(ctx context.Context, req *a2a.Request) *a2a.Response {
	r := routed(req)
	t, err := d.handler.Send(ctx, r)
	if err != nil {
		d.logger.WarnContext(ctx, "message/send failed", "category", "business", "id", r.ID, "error", err)
		return a2a.NewError(r.ID, a2a.CodeStreamingError, err.Error())
	}
	return a2a.NewResult(r.ID, t)
}

func (d *Dispatcher) logCaller(ctx context.Context, what string) {
	c := auth.CallerFrom(ctx)
	d.logger.InfoContext(ctx, "received "+what, "category", "auth", "user", c.Username, "sub", c.Subject)
}

// routed extracts the agent request from a call, synthesizing an id when
// the client sent none.
func routed(req *a2a.Request) agent.Request {
	id := req.ID
	if id == nil {
		id = uuid.NewString()
	}
	return agent.Request{
		ID:       id,
		UserText: a2a.ExtractUserText(req.Params),
		SkillID:  a2a.ExtractSkillID(req.Params),
	}
}

func code(resp *a2a.Response) int {
	if resp.Error != nil {
		return resp.Error.Code
	}
	return 0
}
