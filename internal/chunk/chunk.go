// Package chunk regroups model text fragments into renderable chunks.
//
// Fragments are buffered until either maxCount of them have arrived or
// maxWait has elapsed since the first fragment of the current buffer,
// whichever comes first. The buffer is then joined without separator and
// emitted as one chunk. Content is never filtered, only grouped.
package chunk

import (
	"context"
	"strings"
	"time"
)

// Aggregate consumes fragments until the channel is closed or ctx is done.
//
// errs carries the outcome of the fragment source and is read once fragments
// closes; a nil errs means the source always ends cleanly. The trailing
// partial buffer is flushed only on a clean end. When the source failed the
// buffer is discarded and the failure is delivered on the returned error
// channel, which is closed together with the chunk channel. A cancelled ctx
// also discards the buffer and reports nothing; callers check ctx themselves.
//
// The chunk channel is unbuffered: a slow reader stalls aggregation, which
// in turn stops draining fragments.
func Aggregate(ctx context.Context, fragments <-chan string, errs <-chan error, maxCount int, maxWait time.Duration) (<-chan string, <-chan error) {
	if maxCount < 1 {
		maxCount = 1
	}
	out := make(chan string)
	failed := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(failed)

		var (
			buf     []string
			timer   *time.Timer
			timeout <-chan time.Time
		)
		stopTimer := func() {
			if timer != nil {
				timer.Stop()
				timer, timeout = nil, nil
			}
		}
		defer stopTimer()

		flush := func() bool {
			stopTimer()
			if len(buf) == 0 {
				return true
			}
			text := strings.Join(buf, "")
			buf = buf[:0]
			select {
			case out <- text:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-fragments:
				if !ok {
					err := sourceErr(ctx, errs)
					if ctx.Err() != nil {
						return
					}
					if err != nil {
						failed <- err
						return
					}
					flush()
					return
				}
				buf = append(buf, f)
				if len(buf) == 1 && maxWait > 0 {
					timer = time.NewTimer(maxWait)
					timeout = timer.C
				}
				if len(buf) >= maxCount && !flush() {
					return
				}
			case <-timeout:
				timer, timeout = nil, nil
				if !flush() {
					return
				}
			}
		}
	}()

	return out, failed
}

// sourceErr waits for the fragment source's outcome.
func sourceErr(ctx context.Context, errs <-chan error) error {
	if errs == nil {
		return nil
	}
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
