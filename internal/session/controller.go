// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/aichat"
	"github.com/jeranaias/chatwidget/internal/model"
)

// Reasons a turn is skipped. They are reported in Outcome.Reason and logged;
// they are never shown in the conversation.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoTransport  = errors.New("no transport available")
	ErrTurnInFlight = errors.New("another turn is in flight")
)

// =============================================================================
// TURN TYPES
// =============================================================================

// Turn is the input of RunTurn.
type Turn struct {
	Message        model.Message
	History        []model.ChatEntry
	RequestContext *model.RequestContext
	SessionState   model.SessionState
	Model          string
}

// Status is how a turn ended.
type Status int

const (
	// StatusCompleted means the stream ended normally.
	StatusCompleted Status = iota
	// StatusFailed means an error entry was appended.
	StatusFailed
	// StatusSkipped means a precondition failed and nothing changed.
	StatusSkipped
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome reports the result of a turn.
type Outcome struct {
	Status Status
	// Reason is set when Status is StatusSkipped.
	Reason error
	// Err is the transport or stream failure when Status is StatusFailed.
	Err error
	// Message is the assistant message as far as it was streamed.
	Message model.Message
	// ErrorEntry is the entry appended on failure.
	ErrorEntry *model.ErrorEntry
}

// Hooks are invoked by the controller. Nil hooks are skipped.
type Hooks struct {
	// OnMessage fires once per user turn, right after the optimistic append.
	OnMessage func(model.Message)
	// OnError fires when a turn fails.
	OnError func(error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs streaming turns against a transport and publishes their
// progress to a Store. At most one turn runs at a time; overlapping calls are
// rejected with ErrTurnInFlight.
type Controller struct {
	store     *Store
	transport aichat.Transport
	logger    *zap.Logger
	hooks     Hooks

	busy atomic.Bool

	mu             sync.Mutex
	requestContext *model.RequestContext
	model          string
}

// NewController creates a controller. transport may be nil, in which case
// every turn is skipped with ErrNoTransport.
func NewController(store *Store, transport aichat.Transport, logger *zap.Logger, hooks Hooks) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:     store,
		transport: transport,
		logger:    logger.Named("session"),
		hooks:     hooks,
	}
}

// Store returns the store the controller publishes to.
func (c *Controller) Store() *Store {
	return c.store
}

// HasTransport reports whether a transport is configured.
func (c *Controller) HasTransport() bool {
	return c.transport != nil
}

// Busy reports whether a turn is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// SetModel sets the model injected into the next turns.
func (c *Controller) SetModel(m string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = m
}

// Model returns the selected model.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetRequestContext sets the request context sent with the next turns.
func (c *Controller) SetRequestContext(rc *model.RequestContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestContext = rc.Clone()
}

// RequestContext returns a copy of the current request context.
func (c *Controller) RequestContext() *model.RequestContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestContext.Clone()
}

// Send runs a turn for text using the store's history and session state and
// the controller's request context and model.
func (c *Controller) Send(ctx context.Context, text string) Outcome {
	if reason := c.precheck(text); reason != nil {
		return skipped(reason)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return c.rejectOverlap()
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	rc, selected := c.requestContext.Clone(), c.model
	c.mu.Unlock()

	snap := c.store.Snapshot()
	return c.run(ctx, Turn{
		Message:        model.NewUserMessage(text),
		History:        snap.Entries,
		RequestContext: rc,
		SessionState:   snap.SessionState,
		Model:          selected,
	}, appendMode)
}

// RunTurn runs one turn. It never panics and never returns an error: failures
// become error entries in the store.
func (c *Controller) RunTurn(ctx context.Context, turn Turn) Outcome {
	if reason := c.precheck(turn.Message.Content); reason != nil {
		return skipped(reason)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return c.rejectOverlap()
	}
	defer c.busy.Store(false)
	return c.run(ctx, turn, appendMode)
}

// precheck applies the input guards. Failures are logged, never shown.
func (c *Controller) precheck(content string) error {
	if strings.TrimSpace(content) == "" {
		c.logger.Warn("Send aborted: message is empty")
		return ErrEmptyMessage
	}
	if c.transport == nil {
		c.logger.Error("Send aborted: no transport configured")
		return ErrNoTransport
	}
	return nil
}

func (c *Controller) rejectOverlap() Outcome {
	c.logger.Warn("Send aborted: a turn is already in flight")
	return skipped(ErrTurnInFlight)
}

func skipped(reason error) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// publishMode selects how a turn lays out the store.
type publishMode int

const (
	// appendMode keeps the history and the outgoing message visible.
	appendMode publishMode = iota
	// replaceMode shows only the turn's result (welcome greeting).
	replaceMode
)

// run executes a turn. The caller holds the busy flag.
func (c *Controller) run(ctx context.Context, turn Turn, mode publishMode) (out Outcome) {
	// base is what stays visible in front of the in-flight message.
	var base []model.ChatEntry
	inflight := model.NewAssistantMessage()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Turn panicked", zap.Any("panic", r))
			out = c.fail(fmt.Errorf("turn panicked: %v", r), base, inflight, mode)
		}
	}()

	outgoing := model.MessagesOnly(turn.History)
	outgoing = append(outgoing, turn.Message)

	if mode == appendMode {
		base = append(model.CloneEntries(turn.History), turn.Message)
		c.store.update(func(st *Snapshot) {
			st.Entries = model.CloneEntries(base)
			st.Loading = true
		})
		if c.hooks.OnMessage != nil {
			c.hooks.OnMessage(turn.Message)
		}
	} else {
		c.store.update(func(st *Snapshot) {
			st.Loading = true
		})
	}

	opts := aichat.Options{
		SessionState: turn.SessionState,
		Context:      turn.RequestContext.Clone(),
	}
	if turn.Model != "" {
		opts.Context = turn.RequestContext.WithModel(turn.Model)
	}

	c.logger.Debug("Starting turn",
		zap.Int("messages", len(outgoing)),
		zap.String("model", turn.Model),
		zap.Bool("welcome", mode == replaceMode))

	stream, err := c.transport.GetStreamedCompletion(ctx, outgoing, opts)
	if err != nil {
		return c.fail(err, base, inflight, mode)
	}
	defer stream.Close()

	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c.fail(err, base, inflight, mode)
		}
		c.apply(ev, base, &inflight)
	}

	c.store.update(func(st *Snapshot) {
		st.Loading = false
	})
	c.logger.Debug("Turn completed", zap.Int("content_length", len(inflight.Content)))
	return Outcome{Status: StatusCompleted, Message: inflight}
}

// apply folds one event into the in-flight message and publishes the result
// as a single store change. Events that change nothing publish nothing. The
// response context lives on the snapshot only, never on the message, so it is
// not sent back with later turns.
func (c *Controller) apply(ev model.DeltaEvent, base []model.ChatEntry, inflight *model.Message) {
	hasState := ev.HasSessionState()
	if ev.Delta == nil {
		if hasState {
			c.store.update(func(st *Snapshot) {
				st.SessionState = ev.SessionState
			})
		}
		return
	}

	switch {
	case ev.Delta.Role == "":
	case ev.Delta.Role.IsValid():
		inflight.Role = ev.Delta.Role
	default:
		c.logger.Warn("Ignoring unknown role in stream", zap.String("role", string(ev.Delta.Role)))
	}
	hasContent := ev.Delta.Content != ""
	if hasContent {
		inflight.Content += ev.Delta.Content
	}

	if !hasState && ev.Context == nil && !hasContent {
		return
	}

	msg := *inflight
	c.store.update(func(st *Snapshot) {
		if hasState {
			st.SessionState = ev.SessionState
		}
		if ev.Context != nil {
			st.ResponseContext = ev.Context
		}
		if hasContent {
			entries := model.CloneEntries(base)
			st.Entries = append(entries, msg)
			st.Loading = false
		}
	})
}

// fail records err as an error entry after whatever content already streamed.
func (c *Controller) fail(err error, base []model.ChatEntry, inflight model.Message, mode publishMode) Outcome {
	entry := c.errorEntry(err, mode)

	c.store.update(func(st *Snapshot) {
		entries := model.CloneEntries(base)
		if inflight.Content != "" {
			entries = append(entries, inflight)
		}
		st.Entries = append(entries, entry)
		st.Loading = false
	})

	// Only structured chat errors from user turns reach the host.
	if _, ok := model.AsChatError(err); ok && mode == appendMode && c.hooks.OnError != nil {
		c.hooks.OnError(err)
	}
	return Outcome{Status: StatusFailed, Err: err, Message: inflight, ErrorEntry: &entry}
}

// errorEntry converts err to the entry shown in the conversation.
func (c *Controller) errorEntry(err error, mode publishMode) model.ErrorEntry {
	if chatErr, ok := model.AsChatError(err); ok {
		c.logger.Debug("Turn failed with chat error", zap.String("code", chatErr.Code))
		return chatErr.Entry()
	}

	code, fallback := model.CodeUnknown, "An unknown error occurred"
	if mode == replaceMode {
		code, fallback = model.CodeWelcomeMessage, "Failed to send welcome message"
	}
	c.logger.Error("Chat error", zap.Error(err), zap.String("code", code))

	msg := fallback
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return model.ErrorEntry{Code: code, Message: msg}
}
