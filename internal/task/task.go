// Package task owns the state of one A2A task for the lifetime of a call
// and builds the protocol entities emitted at each transition.
package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"a2a-chat-agent/internal/a2a"
)

// ArtifactName is the name of the artifact carrying the agent's answer.
const ArtifactName = "answer"

// ErrInvalidTransition is returned when a transition would move the task
// backwards or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid task state transition")

// rank orders states; transitions may only keep or raise it.
var rank = map[a2a.TaskState]int{
	a2a.TaskSubmitted: 0,
	a2a.TaskWorking:   1,
	a2a.TaskCompleted: 2,
	a2a.TaskFailed:    2,
}

// Lifecycle is the mutable record of one task. It is not safe for
// concurrent use; a single call drives it sequentially.
type Lifecycle struct {
	task       a2a.Task
	artifactID string
	chunks     int
}

// New creates a task in the submitted state with the user's message as
// the first history entry. Task, context and message ids are random.
func New(userText string) *Lifecycle {
	taskID := uuid.NewString()
	contextID := uuid.NewString()

	l := &Lifecycle{
		task: a2a.Task{
			ID:        taskID,
			ContextID: contextID,
			Status:    a2a.TaskStatus{State: a2a.TaskSubmitted},
			Kind:      a2a.KindTask,
			Metadata:  map[string]any{},
		},
		artifactID: uuid.NewString(),
	}
	l.task.History = append(l.task.History, l.message(a2a.RoleUser, userText))
	return l
}

// ID returns the task id.
func (l *Lifecycle) ID() string { return l.task.ID }

// ContextID returns the context id.
func (l *Lifecycle) ContextID() string { return l.task.ContextID }

// ArtifactID returns the identity shared by every chunk of the answer.
func (l *Lifecycle) ArtifactID() string { return l.artifactID }

// State returns the current state.
func (l *Lifecycle) State() a2a.TaskState { return l.task.Status.State }

// Submitted returns a snapshot of the task as first announced to the client.
func (l *Lifecycle) Submitted() *a2a.Task {
	return l.snapshot()
}

// Working moves the task to working and returns a non-final status update
// carrying text as an interim agent message.
func (l *Lifecycle) Working(text string) (*a2a.TaskStatusUpdateEvent, error) {
	msg := l.message(a2a.RoleAgent, text)
	if err := l.transition(a2a.TaskStatus{State: a2a.TaskWorking, Message: &msg}); err != nil {
		return nil, err
	}
	return l.statusEvent(false), nil
}

// Artifact records one chunk of the streamed answer and returns its update
// event. The first chunk has a nil Append flag, later ones true.
func (l *Lifecycle) Artifact(chunk string) (*a2a.TaskArtifactUpdateEvent, error) {
	if l.State() != a2a.TaskWorking {
		return nil, fmt.Errorf("%w: artifact while %s", ErrInvalidTransition, l.State())
	}

	var appendFlag *bool
	if l.chunks > 0 {
		t := true
		appendFlag = &t
	}
	l.chunks++

	if len(l.task.Artifacts) == 0 {
		l.task.Artifacts = []a2a.Artifact{{ArtifactID: l.artifactID, Name: ArtifactName}}
	}
	l.task.Artifacts[0].Parts = append(l.task.Artifacts[0].Parts, a2a.NewTextPart(chunk))

	return &a2a.TaskArtifactUpdateEvent{
		TaskID:    l.task.ID,
		ContextID: l.task.ContextID,
		Artifact: a2a.Artifact{
			ArtifactID: l.artifactID,
			Name:       ArtifactName,
			Parts:      a2a.Parts{a2a.NewTextPart(chunk)},
		},
		Append: appendFlag,
		Kind:   a2a.KindArtifactUpdate,
	}, nil
}

// Completed moves the task to completed and returns the final status update.
func (l *Lifecycle) Completed() (*a2a.TaskStatusUpdateEvent, error) {
	if err := l.transition(a2a.TaskStatus{State: a2a.TaskCompleted}); err != nil {
		return nil, err
	}
	return l.statusEvent(true), nil
}

// Complete finishes a single-shot task: the whole answer becomes one
// artifact, the agent's reply is appended to history and metadata is merged
// into the task's metadata. It returns the finished task.
func (l *Lifecycle) Complete(answer string, metadata map[string]any) (*a2a.Task, error) {
	if err := l.transition(a2a.TaskStatus{State: a2a.TaskCompleted}); err != nil {
		return nil, err
	}
	l.task.Artifacts = []a2a.Artifact{{
		ArtifactID: l.artifactID,
		Name:       ArtifactName,
		Parts:      a2a.Parts{a2a.NewTextPart(answer)},
	}}
	l.task.History = append(l.task.History, l.message(a2a.RoleAgent, answer))
	for k, v := range metadata {
		l.task.Metadata[k] = v
	}
	return l.snapshot(), nil
}

// Fail moves the task to failed. The caller reports the reason on the wire.
func (l *Lifecycle) Fail() error {
	return l.transition(a2a.TaskStatus{State: a2a.TaskFailed})
}

func (l *Lifecycle) transition(next a2a.TaskStatus) error {
	cur := l.task.Status.State
	if cur.Terminal() || rank[next.State] < rank[cur] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next.State)
	}
	l.task.Status = next
	return nil
}

func (l *Lifecycle) statusEvent(final bool) *a2a.TaskStatusUpdateEvent {
	return &a2a.TaskStatusUpdateEvent{
		TaskID:    l.task.ID,
		ContextID: l.task.ContextID,
		Status:    l.task.Status,
		Final:     final,
		Kind:      a2a.KindStatusUpdate,
	}
}

func (l *Lifecycle) message(role a2a.Role, text string) a2a.Message {
	return a2a.Message{
		Role:      role,
		Parts:     a2a.Parts{a2a.NewTextPart(text)},
		MessageID: uuid.NewString(),
		TaskID:    l.task.ID,
		ContextID: l.task.ContextID,
		Kind:      a2a.KindMessage,
	}
}

// snapshot copies the task so later transitions do not alter entities
// already handed out.
func (l *Lifecycle) snapshot() *a2a.Task {
	t := l.task
	t.History = append([]a2a.Message(nil), l.task.History...)
	if l.task.Artifacts != nil {
		t.Artifacts = make([]a2a.Artifact, len(l.task.Artifacts))
		for i, a := range l.task.Artifacts {
			a.Parts = append(a2a.Parts(nil), a.Parts...)
			t.Artifacts[i] = a
		}
	}
	t.Metadata = make(map[string]any, len(l.task.Metadata))
	for k, v := range l.task.Metadata {
		t.Metadata[k] = v
	}
	return &t
}
