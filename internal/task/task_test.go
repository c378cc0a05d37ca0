package task

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"a2a-chat-agent/internal/a2a"
)

func TestNew(t *testing.T) {
	l := New("hi")

	if l.ID() == "" || l.ContextID() == "" || l.ArtifactID() == "" {
		t.Fatal("expected non-empty ids")
	}
	if l.ID() == l.ContextID() {
		t.Error("task and context ids should differ")
	}
	if l.State() != a2a.TaskSubmitted {
		t.Errorf("State = %q, want submitted", l.State())
	}

	sub := l.Submitted()
	if sub.Kind != a2a.KindTask {
		t.Errorf("Kind = %q, want task", sub.Kind)
	}
	if sub.Artifacts != nil {
		t.Errorf("Artifacts = %v, want nil", sub.Artifacts)
	}
	if sub.Metadata == nil || len(sub.Metadata) != 0 {
		t.Errorf("Metadata = %v, want empty map", sub.Metadata)
	}
	if len(sub.History) != 1 {
		t.Fatalf("History length = %d, want 1", len(sub.History))
	}
	user := sub.History[0]
	if user.Role != a2a.RoleUser || user.Parts.Text() != "hi" || user.TaskID != l.ID() || user.ContextID != l.ContextID() {
		t.Errorf("unexpected user message %+v", user)
	}
}

func TestStreamingLifecycle(t *testing.T) {
	l := New("hi")

	w1, err := l.Working("Thinking")
	if err != nil {
		t.Fatalf("Working: %v", err)
	}
	if w1.Final || w1.Status.State != a2a.TaskWorking || w1.Status.Message.Parts.Text() != "Thinking" {
		t.Errorf("unexpected working event %+v", w1)
	}
	if w1.Status.Message.Role != a2a.RoleAgent {
		t.Errorf("interim message role = %q, want agent", w1.Status.Message.Role)
	}
	if _, err := l.Working("Drafting"); err != nil {
		t.Fatalf("second Working: %v", err)
	}

	var appends []*bool
	for _, c := range []string{"a", "b", "c"} {
		ev, err := l.Artifact(c)
		if err != nil {
			t.Fatalf("Artifact(%q): %v", c, err)
		}
		if ev.Artifact.ArtifactID != l.ArtifactID() {
			t.Errorf("artifact id = %q, want %q", ev.Artifact.ArtifactID, l.ArtifactID())
		}
		if ev.Artifact.Name != ArtifactName {
			t.Errorf("artifact name = %q, want %q", ev.Artifact.Name, ArtifactName)
		}
		if ev.Artifact.Parts.Text() != c {
			t.Errorf("artifact text = %q, want %q", ev.Artifact.Parts.Text(), c)
		}
		appends = append(appends, ev.Append)
	}
	tr := true
	if diff := cmp.Diff([]*bool{nil, &tr, &tr}, appends); diff != "" {
		t.Errorf("append flags mismatch (-want +got):\n%s", diff)
	}

	done, err := l.Completed()
	if err != nil {
		t.Fatalf("Completed: %v", err)
	}
	if !done.Final || done.Status.State != a2a.TaskCompleted || done.Status.Message != nil {
		t.Errorf("unexpected completed event %+v", done)
	}
}

func TestComplete_SingleShot(t *testing.T) {
	l := New("question")

	got, err := l.Complete("answer text", map[string]any{"skillId": "openai.brief"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status.State != a2a.TaskCompleted {
		t.Errorf("State = %q, want completed", got.Status.State)
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].Name != "answer" || got.Artifacts[0].Parts.Text() != "answer text" {
		t.Errorf("unexpected artifacts %+v", got.Artifacts)
	}
	roles := []a2a.Role{}
	for _, m := range got.History {
		roles = append(roles, m.Role)
	}
	if diff := cmp.Diff([]a2a.Role{a2a.RoleUser, a2a.RoleAgent}, roles); diff != "" {
		t.Errorf("history roles mismatch (-want +got):\n%s", diff)
	}
	if got.History[1].Parts.Text() != "answer text" {
		t.Errorf("agent message = %q", got.History[1].Parts.Text())
	}
	if diff := cmp.Diff(map[string]any{"skillId": "openai.brief"}, got.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name  string
		steps func(l *Lifecycle) error
	}{
		{"artifact before working", func(l *Lifecycle) error {
			_, err := l.Artifact("x")
			return err
		}},
		{"working after completed", func(l *Lifecycle) error {
			if _, err := l.Completed(); err != nil {
				return nil
			}
			_, err := l.Working("again")
			return err
		}},
		{"completed twice", func(l *Lifecycle) error {
			l.Completed()
			_, err := l.Completed()
			return err
		}},
		{"complete after fail", func(l *Lifecycle) error {
			l.Fail()
			_, err := l.Complete("x", nil)
			return err
		}},
		{"fail after completed", func(l *Lifecycle) error {
			l.Complete("x", nil)
			return l.Fail()
		}},
		{"artifact after completed", func(l *Lifecycle) error {
			l.Working("w")
			l.Completed()
			_, err := l.Artifact("late")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.steps(New("hi"))
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestFailFromWorking(t *testing.T) {
	l := New("hi")
	l.Working("w")
	if err := l.Fail(); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if l.State() != a2a.TaskFailed {
		t.Errorf("State = %q, want failed", l.State())
	}
}

func TestSnapshotIsolation(t *testing.T) {
	l := New("hi")
	sub := l.Submitted()

	l.Working("w")
	l.Artifact("chunk")
	l.Completed()

	if sub.Status.State != a2a.TaskSubmitted {
		t.Errorf("snapshot state changed to %q", sub.Status.State)
	}
	if sub.Artifacts != nil {
		t.Errorf("snapshot gained artifacts %v", sub.Artifacts)
	}
}
