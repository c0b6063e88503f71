// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aichat

import (
	"context"
	"errors"

	"github.com/jeranaias/chatwidget/internal/model"
)

// =============================================================================
// TRANSPORT CONTRACT
// =============================================================================

// Options are the per-request completion options.
type Options struct {
	// SessionState is the opaque value from the previous turn, sent back verbatim.
	SessionState model.SessionState
	// Context is merged into the request, including the selected model override.
	Context *model.RequestContext
}

// Completion is the result of a non-streamed request.
type Completion struct {
	Message      model.Message
	SessionState model.SessionState
	Context      *model.ResponseContext
}

// DeltaStream yields completion events in arrival order. Next returns io.EOF
// once the stream has ended normally. Close releases the underlying connection
// and is safe to call more than once.
type DeltaStream interface {
	Next(ctx context.Context) (model.DeltaEvent, error)
	Close() error
}

// Transport sends a conversation to a completion backend.
type Transport interface {
	GetStreamedCompletion(ctx context.Context, messages []model.Message, opts Options) (DeltaStream, error)
	GetCompletion(ctx context.Context, messages []model.Message, opts Options) (*Completion, error)
}

// ModelLister is implemented by transports that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// =============================================================================
// CAPABILITIES
// =============================================================================

// ErrModelListingUnsupported is returned by Capabilities.ListModels when the
// transport cannot list models.
var ErrModelListingUnsupported = errors.New("transport does not support model listing")

// CapabilityKind describes what a transport can do beyond completions.
type CapabilityKind int

const (
	// Basic transports only produce completions.
	Basic CapabilityKind = iota
	// WithModelListing transports also enumerate available models.
	WithModelListing
)

// String returns a short name for the kind.
func (k CapabilityKind) String() string {
	if k == WithModelListing {
		return "with-model-listing"
	}
	return "basic"
}

// Capabilities is the resolved capability set of a transport. It is computed
// once when the widget is built and never re-probed.
type Capabilities struct {
	Kind   CapabilityKind
	lister ModelLister
}

// ResolveCapabilities inspects t once. A nil transport is Basic.
func ResolveCapabilities(t Transport) Capabilities {
	if lister, ok := t.(ModelLister); ok && lister != nil {
		return Capabilities{Kind: WithModelListing, lister: lister}
	}
	return Capabilities{Kind: Basic}
}

// CanListModels reports whether ListModels is available.
func (c Capabilities) CanListModels() bool {
	return c.Kind == WithModelListing && c.lister != nil
}

// ListModels lists models through the resolved capability.
func (c Capabilities) ListModels(ctx context.Context) ([]string, error) {
	if !c.CanListModels() {
		return nil, ErrModelListingUnsupported
	}
	return c.lister.ListModels(ctx)
}
