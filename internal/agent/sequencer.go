package agent

import (
	"errors"
	"fmt"

	"a2a-chat-agent/internal/a2a"
)

// ErrOutOfOrder is returned when an event would break the stream order
// submitted, working, working, artifact*, completed.
var ErrOutOfOrder = errors.New("stream event out of order")

// interimMessages are the working updates announced before the answer.
var interimMessages = [...]string{
	"Thinking about your request...",
	"Drafting the response in chunks...",
}

type phase int

const (
	phaseStart phase = iota
	phaseSubmitted
	phaseWorking
	phaseArtifacts
	phaseClosed
)

// Sequencer emits the envelopes of one streaming call in the fixed order
// and closes after the completed status or a single error. It holds no
// task state beyond its position in the sequence.
type Sequencer struct {
	id      any
	emitter a2a.Emitter
	phase   phase
	working int
	sent    int
}

// NewSequencer returns a sequencer wrapping every event in an envelope
// carrying requestID.
func NewSequencer(requestID any, emitter a2a.Emitter) *Sequencer {
	return &Sequencer{id: requestID, emitter: emitter}
}

// Sent returns how many envelopes reached the emitter.
func (s *Sequencer) Sent() int { return s.sent }

// Closed reports whether the terminal envelope was sent or emission failed.
func (s *Sequencer) Closed() bool { return s.phase == phaseClosed }

// Submitted emits the initial task snapshot.
func (s *Sequencer) Submitted(t *a2a.Task) error {
	if s.phase != phaseStart {
		return s.outOfOrder(a2a.KindTask)
	}
	return s.emit(a2a.NewResult(s.id, t), phaseSubmitted)
}

// Working emits one of the interim working updates.
func (s *Sequencer) Working(ev *a2a.TaskStatusUpdateEvent) error {
	switch {
	case s.phase == phaseSubmitted:
	case s.phase == phaseWorking && s.working < len(interimMessages):
	default:
		return s.outOfOrder(a2a.KindStatusUpdate)
	}
	if ev.Final {
		return fmt.Errorf("%w: working update marked final", ErrOutOfOrder)
	}
	if err := s.emit(a2a.NewResult(s.id, ev), phaseWorking); err != nil {
		return err
	}
	s.working++
	return nil
}

// Artifact emits an answer chunk. It is only valid once every working
// update went out.
func (s *Sequencer) Artifact(ev *a2a.TaskArtifactUpdateEvent) error {
	if !s.answering() {
		return s.outOfOrder(a2a.KindArtifactUpdate)
	}
	return s.emit(a2a.NewResult(s.id, ev), phaseArtifacts)
}

// Completed emits the final status update and closes the sequence.
func (s *Sequencer) Completed(ev *a2a.TaskStatusUpdateEvent) error {
	if !s.answering() {
		return s.outOfOrder(a2a.KindStatusUpdate)
	}
	if !ev.Final {
		return fmt.Errorf("%w: completed update not marked final", ErrOutOfOrder)
	}
	return s.emit(a2a.NewResult(s.id, ev), phaseClosed)
}

// Fail replaces whatever remains of the sequence with one error envelope.
func (s *Sequencer) Fail(code int, message string) error {
	if s.phase == phaseClosed {
		return s.outOfOrder("error")
	}
	return s.emit(a2a.NewError(s.id, code, message), phaseClosed)
}

func (s *Sequencer) answering() bool {
	return (s.phase == phaseWorking && s.working == len(interimMessages)) || s.phase == phaseArtifacts
}

func (s *Sequencer) emit(resp *a2a.Response, next phase) error {
	if err := s.emitter.Emit(resp); err != nil {
		s.phase = phaseClosed
		return fmt.Errorf("emit: %w", err)
	}
	s.sent++
	s.phase = next
	return nil
}

func (s *Sequencer) outOfOrder(kind string) error {
	return fmt.Errorf("%w: %s after %d events", ErrOutOfOrder, kind, s.sent)
}
