package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"a2a-chat-agent/internal/a2a"
	"a2a-chat-agent/internal/auth"
)

const (
	defaultCallsLimit = 20
	maxCallsLimit     = 200
)

// decodeRequest parses a JSON-RPC request body. Numbers are kept as
// json.Number so ids round-trip unchanged. A body that does not parse
// yields nil.
func decodeRequest(body []byte) *a2a.Request {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var req a2a.Request
	if err := dec.Decode(&req); err != nil {
		return nil
	}
	return &req
}

// healthHandler returns the API health status.
func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func (s *Server) agentCardHandler(c *fiber.Ctx) error {
	return c.JSON(s.card)
}

// authenticate rejects JSON-RPC calls without a valid bearer token and
// stores the caller in the request context.
func (s *Server) authenticate(c *fiber.Ctx) error {
	if s.opts.Auth == nil {
		return c.Next()
	}

	ctx := c.UserContext()
	token := auth.ParseBearer(c.Get(fiber.HeaderAuthorization))
	caller, err := s.opts.Auth.Validate(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected request", "category", "auth", "path", c.Path(), "sid", auth.SessionID(ctx), "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(a2a.NewError(nil, a2a.CodeInvalidRequest, "Unauthorized"))
	}

	c.SetUserContext(auth.WithBearerToken(auth.WithCaller(ctx, caller), token))
	return c.Next()
}

// rpcHandler answers a JSON-RPC call with a single envelope.
func (s *Server) rpcHandler(c *fiber.Ctx) error {
	resp := s.dispatcher.Dispatch(c.UserContext(), decodeRequest(c.Body()))
	return c.JSON(resp)
}

// streamHandler answers a message/stream call with server-sent events,
// one data record per envelope. A failed write cancels the call.
func (s *Server) streamHandler(c *fiber.Ctx) error {
	req := decodeRequest(c.Body())
	ctx, cancel := context.WithCancel(c.UserContext())

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		emitter := a2a.EmitterFunc(func(resp *a2a.Response) error {
			return writeEvent(w, resp)
		})
		if err := s.dispatcher.DispatchStream(ctx, req, emitter); err != nil {
			s.logger.WarnContext(ctx, "stream aborted", "category", "protocol", "sid", auth.SessionID(ctx), "error", err)
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, resp *a2a.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// callView is the JSON form of a journal entry.
type callView struct {
	RequestID  string `json:"requestId"`
	Method     string `json:"method"`
	TaskID     string `json:"taskId,omitempty"`
	ContextID  string `json:"contextId,omitempty"`
	SkillID    string `json:"skillId"`
	Caller     string `json:"caller"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	Chunks     int    `json:"chunks"`
	DurationMS int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

// callsHandler lists the most recent journaled calls.
func (s *Server) callsHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultCallsLimit)
	if limit <= 0 || limit > maxCallsLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("limit must be between 1 and %d", maxCallsLimit),
		})
	}

	entries, err := s.opts.Calls.Recent(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	calls := make([]callView, 0, len(entries))
	for _, e := range entries {
		calls = append(calls, callView{
			RequestID:  e.RequestID,
			Method:     e.Method,
			TaskID:     e.TaskID,
			ContextID:  e.ContextID,
			SkillID:    e.SkillID,
			Caller:     e.Caller,
			Outcome:    e.Outcome,
			Error:      e.Error,
			Chunks:     e.Chunks,
			DurationMS: e.Duration.Milliseconds(),
			CreatedAt:  e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return c.JSON(fiber.Map{
		"calls": calls,
	})
}
