// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"a2a-chat-agent/internal/llm"
)

// Fake replays a fixed answer or fragment sequence.
type Fake struct {
	// Answer and Err are returned by Complete.
	Answer string
	Err    error

	// Fragments are streamed in order, then StreamErr (if any) is reported.
	Fragments []string
	StreamErr error
	// Hold keeps the stream open after the fragments until ctx is done.
	Hold bool

	mu         sync.Mutex
	requests   []llm.Request
	cancelled  chan struct{}
	once       sync.Once
	cancelOnce sync.Once
}

var _ llm.Client = (*Fake)(nil)

// Requests returns the requests received so far.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Cancelled is closed once a stream observed its context being cancelled.
func (f *Fake) Cancelled() <-chan struct{} {
	f.init()
	return f.cancelled
}

func (f *Fake) init() {
	f.once.Do(func() { f.cancelled = make(chan struct{}) })
}

func (f *Fake) markCancelled() {
	f.cancelOnce.Do(func() { close(f.cancelled) })
}

func (f *Fake) record(req llm.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

// Complete returns Answer or Err.
func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.record(req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Answer, f.Err
}

// Stream yields Fragments on an unbuffered channel.
func (f *Fake) Stream(ctx context.Context, req llm.Request) (<-chan string, <-chan error) {
	f.record(req)
	f.init()

	contentCh := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(contentCh)
		defer close(errCh)

		for _, frag := range f.Fragments {
			select {
			case contentCh <- frag:
			case <-ctx.Done():
				f.markCancelled()
				errCh <- ctx.Err()
				return
			}
		}
		if f.Hold {
			<-ctx.Done()
			f.markCancelled()
			errCh <- ctx.Err()
			return
		}
		if f.StreamErr != nil {
			errCh <- f.StreamErr
		}
	}()
	return contentCh, errCh
}
