// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jeranaias/chatwidget/internal/model"
)

// FlowState is the display state of the flow tab.
type FlowState int

const (
	// FlowNoContext means no response context has been received.
	FlowNoContext FlowState = iota
	// FlowNoDiagram means a context arrived without a visualization.
	FlowNoDiagram
	// FlowReady means the diagram rendered.
	FlowReady
	// FlowRenderError means the renderer rejected the diagram.
	FlowRenderError
)

// String returns the state name.
func (s FlowState) String() string {
	switch s {
	case FlowNoContext:
		return "no-context"
	case FlowNoDiagram:
		return "no-diagram"
	case FlowReady:
		return "ready"
	case FlowRenderError:
		return "render-error"
	default:
		return "unknown"
	}
}

// Renderer turns diagram source into displayable text for a theme
// ("light" or "dark").
type Renderer interface {
	Render(source, theme string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(source, theme string) (string, error)

// Render implements Renderer.
func (f RendererFunc) Render(source, theme string) (string, error) {
	return f(source, theme)
}

// Flow is the projection behind the flow tab.
type Flow struct {
	State       FlowState
	Description string
	// Source is the diagram source handed to the renderer.
	Source string
	// Output is the rendered diagram (FlowReady).
	Output string
	// Err is the render error text (FlowRenderError).
	Err string
	// Raw is the compact visualization payload shown next to a render error.
	Raw string
	// Debug is the pretty-printed context (FlowNoDiagram).
	Debug string
}

// NoDiagramData is shown in place of Raw when the payload is empty.
const NoDiagramData = "No diagram data"

// FlowFrom projects rc, rendering the diagram with r. A nil renderer uses
// DefaultRenderer.
func FlowFrom(rc *model.ResponseContext, r Renderer, theme string) Flow {
	if rc == nil {
		return Flow{State: FlowNoContext}
	}
	source := rc.FlowVisualization.Source()
	if source == "" {
		return Flow{State: FlowNoDiagram, Debug: debugDump(rc)}
	}
	if r == nil {
		r = DefaultRenderer
	}

	flow := Flow{
		Description: rc.FlowVisualization.Description,
		Source:      source,
	}
	out, err := safeRender(r, source, theme)
	if err != nil {
		flow.State = FlowRenderError
		flow.Err = err.Error()
		flow.Raw = rawPayload(rc.FlowVisualization.Visualization)
		return flow
	}
	flow.State = FlowReady
	flow.Output = out
	return flow
}

// safeRender converts a renderer panic into an error.
func safeRender(r Renderer, source, theme string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("renderer panicked: %v", p)
		}
	}()
	return r.Render(source, theme)
}

func rawPayload(raw json.RawMessage) string {
	if !model.HasValue(raw) {
		return NoDiagramData
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
