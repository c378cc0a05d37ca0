package chunk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// feed returns a channel yielding fragments then closing.
func feed(fragments ...string) <-chan string {
	ch := make(chan string, len(fragments))
	for _, f := range fragments {
		ch <- f
	}
	close(ch)
	return ch
}

func collect(t *testing.T, ch <-chan string) []string {
	t.Helper()
	var got []string
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, c)
		case <-deadline:
			t.Fatalf("aggregation did not finish; got %q so far", got)
		}
	}
}

func TestAggregate_ByCount(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		maxCount  int
		want      []string
	}{
		{
			name:      "count threshold then boundary flush",
			fragments: []string{"a", "b", "c", "d", "e"},
			maxCount:  3,
			want:      []string{"abc", "de"},
		},
		{
			name:      "exact multiple leaves nothing behind",
			fragments: []string{"He", "llo", " wo", "rld"},
			maxCount:  2,
			want:      []string{"Hello", " world"},
		},
		{
			name:      "fewer fragments than threshold",
			fragments: []string{"x", "y"},
			maxCount:  120,
			want:      []string{"xy"},
		},
		{
			name:      "empty stream yields no chunk",
			fragments: nil,
			maxCount:  3,
			want:      nil,
		},
		{
			name:      "whitespace is grouped, not filtered",
			fragments: []string{" ", "\n", "a"},
			maxCount:  2,
			want:      []string{" \n", "a"},
		},
		{
			name:      "non-positive count behaves as one",
			fragments: []string{"a", "b"},
			maxCount:  0,
			want:      []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := Aggregate(context.Background(), feed(tt.fragments...), nil, tt.maxCount, time.Hour)
			got := collect(t, out)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("chunks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregate_ByTimeout(t *testing.T) {
	in := make(chan string)
	out, _ := Aggregate(context.Background(), in, nil, 100, 100*time.Millisecond)

	in <- "a"
	in <- "b"

	select {
	case c := <-out:
		if c != "ab" {
			t.Errorf("first chunk = %q, want %q", c, "ab")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout flush did not happen")
	}

	in <- "c"
	close(in)
	if got := collect(t, out); !cmp.Equal(got, []string{"c"}) {
		t.Errorf("remaining chunks = %q, want [c]", got)
	}
}

func TestAggregate_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan string)
	out, _ := Aggregate(ctx, in, nil, 10, time.Hour)

	in <- "pending"
	cancel()

	select {
	case c, ok := <-out:
		if ok {
			t.Errorf("expected closed channel after cancel, got chunk %q", c)
		}
	case <-time.After(time.Second):
		t.Fatal("output not closed after cancel")
	}
}

func TestAggregate_Backpressure(t *testing.T) {
	in := make(chan string)
	out, _ := Aggregate(context.Background(), in, nil, 1, time.Hour)

	in <- "first"
	// The aggregator is now blocked handing "first" to out and must not
	// accept another fragment until it is read.
	select {
	case in <- "second":
		t.Fatal("aggregator accepted a fragment while its output was full")
	case <-time.After(50 * time.Millisecond):
	}

	if c := <-out; c != "first" {
		t.Errorf("chunk = %q, want %q", c, "first")
	}
	in <- "second"
	close(in)
	if got := collect(t, out); !cmp.Equal(got, []string{"second"}) {
		t.Errorf("remaining chunks = %q, want [second]", got)
	}
}

func TestAggregate_CountThenTimeout(t *testing.T) {
	const wait = 150 * time.Millisecond
	in := make(chan string)
	out, _ := Aggregate(context.Background(), in, nil, 2, wait)

	in <- "a"
	time.Sleep(wait / 2)
	in <- "b"
	if c := <-out; c != "ab" {
		t.Fatalf("count chunk = %q, want %q", c, "ab")
	}

	// The next buffer starts its own window: "c" arrives after the first
	// buffer's window would have expired, and must still wait a full maxWait.
	time.Sleep(wait * 2 / 3)
	sent := time.Now()
	in <- "c"

	select {
	case c := <-out:
		if c != "c" {
			t.Errorf("timeout chunk = %q, want %q", c, "c")
		}
		if elapsed := time.Since(sent); elapsed < wait*3/4 {
			t.Errorf("timeout chunk after %v, want about %v", elapsed, wait)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout flush did not happen")
	}

	close(in)
	if got := collect(t, out); got != nil {
		t.Errorf("remaining chunks = %q, want none", got)
	}
}

func TestAggregate_SourceFailure(t *testing.T) {
	boom := errors.New("upstream closed")
	tests := []struct {
		name      string
		fragments []string
		err       error
		want      []string
		wantErr   error
	}{
		{
			name:      "partial buffer discarded",
			fragments: []string{"a", "b", "c"},
			err:       boom,
			want:      []string{"ab"},
			wantErr:   boom,
		},
		{
			name:      "nothing buffered",
			fragments: []string{"a", "b"},
			err:       boom,
			want:      []string{"ab"},
			wantErr:   boom,
		},
		{
			name:      "clean end flushes the tail",
			fragments: []string{"a", "b", "c"},
			want:      []string{"ab", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := make(chan error, 1)
			if tt.err != nil {
				errs <- tt.err
			}
			close(errs)

			out, failed := Aggregate(context.Background(), feed(tt.fragments...), errs, 2, time.Hour)
			if diff := cmp.Diff(tt.want, collect(t, out)); diff != "" {
				t.Errorf("chunks mismatch (-want +got):\n%s", diff)
			}
			if err := <-failed; !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAggregate_WaitsForSourceOutcome(t *testing.T) {
	errs := make(chan error, 1)
	out, failed := Aggregate(context.Background(), feed("a"), errs, 5, time.Hour)

	select {
	case c, ok := <-out:
		t.Fatalf("aggregator finished before the source reported: chunk %q open=%v", c, ok)
	case <-time.After(50 * time.Millisecond):
	}

	boom := errors.New("boom")
	errs <- boom
	if got := collect(t, out); got != nil {
		t.Errorf("chunks = %q, want none", got)
	}
	if err := <-failed; !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
