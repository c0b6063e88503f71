// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// RESPONSE CONTEXT
// =============================================================================

// Thought is one reasoning step reported by the assistant.
type Thought struct {
	Title       string          `json:"title"`
	Description Lines           `json:"description,omitempty"`
	Props       json.RawMessage `json:"props,omitempty"`
}

// Lines is a description that backends send either as one string or as an
// array of strings.
type Lines []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (l *Lines) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*l = Lines{s}
		return nil
	}
	var lines []string
	if err := json.Unmarshal(trimmed, &lines); err != nil {
		return fmt.Errorf("description: %w", err)
	}
	*l = lines
	return nil
}

// FlowVisualization carries a diagram describing how a response was produced.
// Visualization is kept raw: most backends send diagram source as a JSON string,
// but any JSON value is accepted and handed to the renderer as text.
type FlowVisualization struct {
	Description   string          `json:"description"`
	Visualization json.RawMessage `json:"visualization"`
}

// Source returns the diagram source text. JSON strings are unquoted; any other
// JSON value is returned as its raw encoding.
func (f *FlowVisualization) Source() string {
	if f == nil || len(f.Visualization) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Visualization, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(f.Visualization)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}

// ResponseContext is the side-channel data attached to stream events. A new
// value replaces the previous one wholesale; fields are never merged.
type ResponseContext struct {
	FollowupQuestions []string           `json:"followup_questions,omitempty"`
	Thoughts          []Thought          `json:"thoughts,omitempty"`
	FlowVisualization *FlowVisualization `json:"flow_visualization,omitempty"`
}

// =============================================================================
// REQUEST CONTEXT
// =============================================================================

// OverrideModelKey is the reserved override key carrying the selected model.
const OverrideModelKey = "model"

// RequestContext is merged into every outgoing request.
type RequestContext struct {
	Overrides              *Overrides `json:"overrides,omitempty"`
	AdditionalInstructions string     `json:"additional_instructions,omitempty"`
}

// Clone returns a deep copy of the context. A nil receiver yields nil.
func (c *RequestContext) Clone() *RequestContext {
	if c == nil {
		return nil
	}
	return &RequestContext{
		Overrides:              c.Overrides.Clone(),
		AdditionalInstructions: c.AdditionalInstructions,
	}
}

// WithModel returns a copy of the context whose overrides carry the selected
// model under OverrideModelKey. An existing "model" override keeps its position
// and takes the new value. A nil receiver yields a context holding only the model.
func (c *RequestContext) WithModel(model string) *RequestContext {
	out := c.Clone()
	if out == nil {
		out = &RequestContext{}
	}
	if out.Overrides == nil {
		out.Overrides = NewOverrides()
	}
	out.Overrides.Set(OverrideModelKey, model)
	return out
}

// =============================================================================
// ORDERED OVERRIDES
// =============================================================================

// Overrides is an insertion-ordered map of override keys to values. Values are
// either plain strings or structured values decoded from JSON (objects, arrays,
// booleans, numbers).
type Overrides struct {
	keys   []string
	values map[string]any
}

// NewOverrides creates an empty override set.
func NewOverrides() *Overrides {
	return &Overrides{values: make(map[string]any)}
}

// Len returns the number of keys. Safe on a nil receiver.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Overrides) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored under key.
func (o *Overrides) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Overrides) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores value under key. New keys are appended; existing keys keep their
// position.
func (o *Overrides) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Delete removes key and reports whether it was present.
func (o *Overrides) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Clone returns a copy of the override set. Structured values are shared; the
// editor replaces values rather than mutating them.
func (o *Overrides) Clone() *Overrides {
	if o == nil {
		return nil
	}
	out := &Overrides{
		keys:   make([]string, len(o.keys)),
		values: make(map[string]any, len(o.values)),
	}
	copy(out.keys, o.keys)
	for k, v := range o.values {
		out.values[k] = v
	}
	return out
}

// Map returns the overrides as a plain map (order is lost).
func (o *Overrides) Map() map[string]any {
	out := make(map[string]any, o.Len())
	if o == nil {
		return out
	}
	for k, v := range o.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the overrides as a JSON object in insertion order.
func (o *Overrides) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (o *Overrides) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("overrides: expected JSON object")
	}

	o.keys = nil
	o.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("overrides: expected string key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("overrides: value for %q: %w", key, err)
		}
		o.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
