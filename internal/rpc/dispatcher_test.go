package rpc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"a2a-chat-agent/internal/a2a"
	"a2a-chat-agent/internal/agent"
)

// stubHandler records routed requests and answers with fixed results.
type stubHandler struct {
	sendErr error
	sent    []agent.Request
	streams []agent.Request
}

func (h *stubHandler) Send(_ context.Context, req agent.Request) (*a2a.Task, error) {
	h.sent = append(h.sent, req)
	if h.sendErr != nil {
		return nil, h.sendErr
	}
	return &a2a.Task{ID: "t1", Kind: a2a.KindTask, Status: a2a.TaskStatus{State: a2a.TaskCompleted}}, nil
}

func (h *stubHandler) Stream(_ context.Context, req agent.Request, em a2a.Emitter) error {
	h.streams = append(h.streams, req)
	return em.Emit(a2a.NewResult(req.ID, &a2a.Task{ID: "t1", Kind: a2a.KindTask}))
}

type collector struct {
	events []*a2a.Response
}

func (c *collector) Emit(resp *a2a.Response) error {
	c.events = append(c.events, resp)
	return nil
}

func sendParams(text, skill string) map[string]any {
	p := map[string]any{
		"message": map[string]any{
			"role":  "user",
			"parts": []any{map[string]any{"kind": "text", "text": text}},
		},
	}
	if skill != "" {
		p["metadata"] = map[string]any{"skillId": skill}
	}
	return p
}

func TestDispatch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      *a2a.Request
		wantID   any
		wantCode int
		wantMsg  string
	}{
		{
			name:     "nil request",
			req:      nil,
			wantID:   nil,
			wantCode: a2a.CodeInvalidRequest,
			wantMsg:  "Invalid Request",
		},
		{
			name:     "missing method drops id",
			req:      &a2a.Request{JSONRPC: "2.0", ID: 5},
			wantID:   nil,
			wantCode: a2a.CodeInvalidRequest,
			wantMsg:  "Invalid Request",
		},
		{
			name:     "extended card not configured",
			req:      &a2a.Request{JSONRPC: "2.0", ID: "a", Method: a2a.MethodGetExtendedCard},
			wantID:   "a",
			wantCode: a2a.CodeExtendedCardNotConfigured,
			wantMsg:  "AuthenticatedExtendedCardNotConfiguredError",
		},
		{
			name:     "stream on single-shot path",
			req:      &a2a.Request{JSONRPC: "2.0", ID: 2, Method: a2a.MethodMessageStream, Params: sendParams("hi", "")},
			wantID:   2,
			wantCode: a2a.CodeMethodNotFound,
			wantMsg:  "Streaming not supported on this endpoint. Use /message/stream.",
		},
		{
			name:     "stream on single-shot path without params",
			req:      &a2a.Request{JSONRPC: "2.0", ID: 3, Method: a2a.MethodMessageStream},
			wantID:   3,
			wantCode: a2a.CodeMethodNotFound,
			wantMsg:  "Streaming not supported on this endpoint. Use /message/stream.",
		},
		{
			name:     "unknown method",
			req:      &a2a.Request{JSONRPC: "2.0", ID: 4, Method: "tasks/get"},
			wantID:   4,
			wantCode: a2a.CodeMethodNotFound,
			wantMsg:  "Method not found: tasks/get",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &stubHandler{}
			resp := New(h, nil, nil).Dispatch(context.Background(), tt.req)

			if resp.Result != nil {
				t.Errorf("unexpected result %+v", resp.Result)
			}
			if resp.Error == nil {
				t.Fatal("expected error envelope")
			}
			if resp.ID != tt.wantID {
				t.Errorf("id = %v, want %v", resp.ID, tt.wantID)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.wantMsg)
			}
			if len(h.sent)+len(h.streams) != 0 {
				t.Error("handler must not be called for protocol errors")
			}
		})
	}
}

func TestDispatch_UnknownMethodNamesIt(t *testing.T) {
	for _, m := range []string{"foo", "message/sendx", "agent/card", "  "} {
		resp := New(&stubHandler{}, nil, nil).Dispatch(context.Background(), &a2a.Request{ID: 1, Method: m})
		if resp.Error.Code != a2a.CodeMethodNotFound || !strings.Contains(resp.Error.Message, m) {
			t.Errorf("method %q: got %+v", m, resp.Error)
		}
	}
}

func TestDispatch_Send(t *testing.T) {
	h := &stubHandler{}
	resp := New(h, nil, nil).Dispatch(context.Background(), &a2a.Request{
		JSONRPC: "2.0",
		ID:      "req-1",
		Method:  a2a.MethodMessageSend,
		Params:  sendParams("hello", "openai.research"),
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
	if resp.ID != "req-1" {
		t.Errorf("id = %v, want req-1", resp.ID)
	}
	if task, ok := resp.Result.(*a2a.Task); !ok || task.ID != "t1" {
		t.Errorf("result = %+v", resp.Result)
	}
	want := []agent.Request{{ID: "req-1", UserText: "hello", SkillID: "openai.research"}}
	if diff := cmp.Diff(want, h.sent); diff != "" {
		t.Errorf("routed request mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_SendSynthesizesID(t *testing.T) {
	h := &stubHandler{}
	resp := New(h, nil, nil).Dispatch(context.Background(), &a2a.Request{Method: a2a.MethodMessageSend})

	id, ok := resp.ID.(string)
	if !ok || id == "" {
		t.Fatalf("id = %#v, want synthesized string", resp.ID)
	}
	if h.sent[0].ID != id {
		t.Errorf("handler saw id %v, response carries %v", h.sent[0].ID, id)
	}
	if h.sent[0].UserText != "" || h.sent[0].SkillID != "" {
		t.Errorf("missing params should extract empty values, got %+v", h.sent[0])
	}
}

func TestDispatch_SendFailure(t *testing.T) {
	h := &stubHandler{sendErr: errors.New("model call: quota exceeded")}
	resp := New(h, nil, nil).Dispatch(context.Background(), &a2a.Request{ID: 9, Method: a2a.MethodMessageSend})

	if resp.Result != nil || resp.Error == nil {
		t.Fatalf("want error envelope, got %+v", resp)
	}
	if resp.Error.Code != a2a.CodeStreamingError || !strings.Contains(resp.Error.Message, "quota exceeded") {
		t.Errorf("error = %+v", resp.Error)
	}
	if resp.ID != 9 {
		t.Errorf("id = %v, want 9", resp.ID)
	}
}

func TestDispatchStream(t *testing.T) {
	tests := []struct {
		name        string
		req         *a2a.Request
		wantID      any
		wantRouted  bool
		wantErrCode int
	}{
		{"nil request", nil, nil, false, a2a.CodeInvalidRequest},
		{"wrong method keeps id", &a2a.Request{ID: 11, Method: a2a.MethodMessageSend}, 11, false, a2a.CodeInvalidRequest},
		{"missing method", &a2a.Request{ID: "s"}, "s", false, a2a.CodeInvalidRequest},
		{"message/stream is routed", &a2a.Request{ID: 12, Method: a2a.MethodMessageStream, Params: sendParams("hi", "")}, 12, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &stubHandler{}
			c := &collector{}
			if err := New(h, nil, nil).DispatchStream(context.Background(), tt.req, c); err != nil {
				t.Fatalf("DispatchStream: %v", err)
			}
			if len(c.events) != 1 {
				t.Fatalf("got %d events, want 1", len(c.events))
			}
			ev := c.events[0]
			if ev.ID != tt.wantID {
				t.Errorf("id = %v, want %v", ev.ID, tt.wantID)
			}
			if (len(h.streams) == 1) != tt.wantRouted {
				t.Errorf("routed = %v, want %v", len(h.streams) == 1, tt.wantRouted)
			}
			if tt.wantErrCode != 0 {
				if ev.Error == nil || ev.Error.Code != tt.wantErrCode || ev.Error.Message != "Expected JSON-RPC method message/stream" {
					t.Errorf("error = %+v", ev.Error)
				}
			}
		})
	}
}

func TestDispatchStream_SynthesizesID(t *testing.T) {
	h := &stubHandler{}
	c := &collector{}
	New(h, nil, nil).DispatchStream(context.Background(), &a2a.Request{Method: a2a.MethodMessageStream}, c)

	if id, ok := h.streams[0].ID.(string); !ok || id == "" {
		t.Errorf("id = %#v, want synthesized string", h.streams[0].ID)
	}
}
