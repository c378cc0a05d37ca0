// Package agent drives A2A tasks: it resolves the skill, calls the model
// and turns the answer into protocol entities, either at once or as an
// ordered event stream.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"a2a-chat-agent/internal/a2a"
	"a2a-chat-agent/internal/auth"
	"a2a-chat-agent/internal/chunk"
	"a2a-chat-agent/internal/llm"
	"a2a-chat-agent/internal/metrics"
	"a2a-chat-agent/internal/skill"
	"a2a-chat-agent/internal/storage"
	"a2a-chat-agent/internal/task"
)

// Journal records finished calls.
type Journal interface {
	Record(ctx context.Context, e storage.Entry) error
}

// Request is a routed call with its parameters already extracted.
type Request struct {
	// ID is echoed on every envelope of the call.
	ID       any
	UserText string
	SkillID  string
}

// Agent handles message/send and message/stream calls. It keeps no
// per-call state and is safe for concurrent use.
type Agent struct {
	llm     llm.Client
	skills  *skill.Resolver
	journal Journal
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithJournal records every call in j.
func WithJournal(j Journal) Option {
	return func(a *Agent) { a.journal = j }
}

// WithMetrics reports calls to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New creates an agent answering with client and resolving skills with skills.
func New(client llm.Client, skills *skill.Resolver, opts ...Option) *Agent {
	a := &Agent{
		llm:    client,
		skills: skills,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Send answers req in one model call and returns the completed task.
// A model failure is returned as an error and no task is produced.
func (a *Agent) Send(ctx context.Context, req Request) (*a2a.Task, error) {
	start := time.Now()
	profile := a.skills.Resolve(req.SkillID)
	lc := task.New(req.UserText)
	a.logBusiness(ctx, a2a.MethodMessageSend, req, lc, profile)

	answer, err := a.llm.Complete(ctx, llm.Request{
		System: systemPrompt(profile, profile.Structured),
		User:   req.UserText,
		JSON:   profile.Structured,
	})
	a.metrics.Backend("complete", outcome(ctx, err), time.Since(start))
	if err != nil {
		_ = lc.Fail()
		a.record(ctx, a2a.MethodMessageSend, req, lc, profile, 0, start, err)
		return nil, fmt.Errorf("model call: %w", err)
	}

	if profile.Structured {
		answer = renderStructured(answer)
	}

	t, err := lc.Complete(answer, map[string]any{"skillId": profile.ID})
	a.record(ctx, a2a.MethodMessageSend, req, lc, profile, 0, start, err)
	return t, err
}

// Stream answers req as an event stream written to emitter. Backend
// failures are reported on the stream itself; the returned error is only
// non-nil when the stream could not be delivered (emitter failure or ctx
// cancelled). Returning cancels the backend call.
func (a *Agent) Stream(ctx context.Context, req Request, emitter a2a.Emitter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.metrics.StreamOpened()()

	start := time.Now()
	profile := a.skills.Resolve(req.SkillID)
	lc := task.New(req.UserText)
	seq := NewSequencer(req.ID, a.observe(emitter))
	a.logBusiness(ctx, a2a.MethodMessageStream, req, lc, profile)

	chunks, err := a.stream(ctx, req, lc, seq, profile)
	if err == nil {
		var ev *a2a.TaskStatusUpdateEvent
		if ev, err = lc.Completed(); err == nil {
			err = seq.Completed(ev)
		}
	}

	var deliverErr error
	switch {
	case err == nil:
	case seq.Closed() || ctx.Err() != nil:
		// Nothing more can reach the client.
		_ = lc.Fail()
		deliverErr = err
	default:
		_ = lc.Fail()
		a.logger.WarnContext(ctx, "stream failed", "category", "business", "task", lc.ID(), "chunks", chunks, "error", err)
		deliverErr = seq.Fail(a2a.CodeStreamingError, "Streaming error: "+err.Error())
	}
	a.record(ctx, a2a.MethodMessageStream, req, lc, profile, chunks, start, err)
	return deliverErr
}

// stream emits everything up to the last artifact and reports how many
// chunks went out.
func (a *Agent) stream(ctx context.Context, req Request, lc *task.Lifecycle, seq *Sequencer, profile skill.Profile) (int, error) {
	if err := seq.Submitted(lc.Submitted()); err != nil {
		return 0, err
	}
	for _, text := range interimMessages {
		ev, err := lc.Working(text)
		if err != nil {
			return 0, err
		}
		if err := seq.Working(ev); err != nil {
			return 0, err
		}
	}

	backendStart := time.Now()
	fragments, errCh := a.llm.Stream(ctx, llm.Request{
		System: systemPrompt(profile, false),
		User:   req.UserText,
	})

	chunks, failed := chunk.Aggregate(ctx, fragments, errCh, profile.ChunkCount, profile.MaxWait)
	n := 0
	for c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		ev, err := lc.Artifact(c)
		if err != nil {
			return n, err
		}
		if err := seq.Artifact(ev); err != nil {
			return n, err
		}
		a.metrics.Chunk(len(c))
		n++
	}

	if err := ctx.Err(); err != nil {
		a.metrics.Backend("stream", storage.OutcomeCancelled, time.Since(backendStart))
		return n, err
	}
	err := <-failed
	a.metrics.Backend("stream", outcome(ctx, err), time.Since(backendStart))
	return n, err
}

// observe counts envelopes as they reach the transport.
func (a *Agent) observe(emitter a2a.Emitter) a2a.Emitter {
	return a2a.EmitterFunc(func(resp *a2a.Response) error {
		if err := emitter.Emit(resp); err != nil {
			return err
		}
		a.metrics.StreamEvent(eventKind(resp))
		return nil
	})
}

func (a *Agent) logBusiness(ctx context.Context, method string, req Request, lc *task.Lifecycle, profile skill.Profile) {
	a.logger.InfoContext(ctx, method,
		"category", "business",
		"session_id", auth.SessionID(ctx),
		"id", req.ID,
		"task", lc.ID(),
		"ctx", lc.ContextID(),
		"skill", profile.ID,
		"text", req.UserText,
	)
}

func (a *Agent) record(ctx context.Context, method string, req Request, lc *task.Lifecycle, profile skill.Profile, chunks int, start time.Time, callErr error) {
	if a.journal == nil {
		return
	}
	e := storage.Entry{
		RequestID: fmt.Sprint(req.ID),
		Method:    method,
		TaskID:    lc.ID(),
		ContextID: lc.ContextID(),
		SkillID:   profile.ID,
		Caller:    auth.CallerFrom(ctx).Username,
		Outcome:   outcome(ctx, callErr),
		Chunks:    chunks,
		Duration:  time.Since(start),
	}
	if callErr != nil {
		e.Error = callErr.Error()
	}
	if err := a.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		a.logger.WarnContext(ctx, "journal write failed", "error", err, "task", lc.ID())
	}
}

func outcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return storage.OutcomeCompleted
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return storage.OutcomeCancelled
	default:
		return storage.OutcomeFailed
	}
}

func eventKind(resp *a2a.Response) string {
	switch v := resp.Result.(type) {
	case *a2a.Task:
		return v.Kind
	case *a2a.TaskStatusUpdateEvent:
		return v.Kind
	case *a2a.TaskArtifactUpdateEvent:
		return v.Kind
	}
	return "error"
}
