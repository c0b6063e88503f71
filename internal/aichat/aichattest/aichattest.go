// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package aichattest provides scripted in-memory transports for tests.
package aichattest

import (
	"context"
	"io"
	"sync"

	"github.com/jeranaias/chatwidget/internal/aichat"
	"github.com/jeranaias/chatwidget/internal/model"
)

// Script describes the outcome of one GetStreamedCompletion call.
type Script struct {
	// OpenErr fails the call before any stream is returned.
	OpenErr error
	// Events are yielded in order.
	Events []model.DeltaEvent
	// Err is returned after Events instead of io.EOF.
	Err error
	// Gate, when non-nil, blocks the first Next until it is closed.
	Gate <-chan struct{}
}

// Call records the arguments of one transport call.
type Call struct {
	Messages []model.Message
	Options  aichat.Options
}

// Transport replays scripts in order. Calls beyond the scripted ones get an
// empty stream.
type Transport struct {
	mu      sync.Mutex
	scripts []Script
	calls   []Call

	// Completion and CompletionErr answer GetCompletion.
	Completion    *aichat.Completion
	CompletionErr error
}

// New creates a transport that plays scripts in order.
func New(scripts ...Script) *Transport {
	return &Transport{scripts: scripts}
}

// Push queues another script.
func (t *Transport) Push(s Script) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts = append(t.scripts, s)
}

// Calls returns the recorded calls.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

func (t *Transport) record(messages []model.Message, opts aichat.Options) {
	msgs := make([]model.Message, len(messages))
	copy(msgs, messages)
	opts.Context = opts.Context.Clone()
	t.calls = append(t.calls, Call{Messages: msgs, Options: opts})
}

// GetStreamedCompletion implements aichat.Transport.
func (t *Transport) GetStreamedCompletion(_ context.Context, messages []model.Message, opts aichat.Options) (aichat.DeltaStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(messages, opts)

	var s Script
	if len(t.scripts) > 0 {
		s = t.scripts[0]
		t.scripts = t.scripts[1:]
	}
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	return &SliceStream{events: s.Events, err: s.Err, gate: s.Gate}, nil
}

// GetCompletion implements aichat.Transport.
func (t *Transport) GetCompletion(_ context.Context, messages []model.Message, opts aichat.Options) (*aichat.Completion, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(messages, opts)
	if t.CompletionErr != nil {
		return nil, t.CompletionErr
	}
	if t.Completion == nil {
		return &aichat.Completion{Message: model.NewMessage(model.RoleAssistant, "")}, nil
	}
	c := *t.Completion
	return &c, nil
}

// ListingTransport adds model listing to Transport.
type ListingTransport struct {
	*Transport
	Models []string
	Err    error
}

// ListModels implements aichat.ModelLister.
func (t *ListingTransport) ListModels(context.Context) ([]string, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	return append([]string(nil), t.Models...), nil
}

// =============================================================================
// SLICE STREAM
// =============================================================================

// SliceStream yields a fixed list of events.
type SliceStream struct {
	events []model.DeltaEvent
	err    error
	gate   <-chan struct{}
	pos    int

	mu     sync.Mutex
	closed bool
}

// NewSliceStream creates a stream that yields events then err (io.EOF if nil).
func NewSliceStream(events []model.DeltaEvent, err error) *SliceStream {
	return &SliceStream{events: events, err: err}
}

// Next implements aichat.DeltaStream.
func (s *SliceStream) Next(ctx context.Context) (model.DeltaEvent, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
			s.gate = nil
		case <-ctx.Done():
			return model.DeltaEvent{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return model.DeltaEvent{}, err
	}
	if s.pos < len(s.events) {
		ev := s.events[s.pos]
		s.pos++
		return ev, nil
	}
	if s.err != nil {
		return model.DeltaEvent{}, s.err
	}
	return model.DeltaEvent{}, io.EOF
}

// Close implements aichat.DeltaStream.
func (s *SliceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Content builds a delta event carrying assistant content.
func Content(text string) model.DeltaEvent {
	return model.DeltaEvent{Delta: &model.Delta{Role: model.RoleAssistant, Content: text}}
}
