// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reqctx edits the request context sent with every chat turn: the
// ordered override map and the additional instructions.
package reqctx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/chatwidget/internal/model"
)

// Editor is a plain state container over a *model.RequestContext. It is not
// safe for concurrent use; the widget owns it from its update loop.
type Editor struct {
	ctx *model.RequestContext
}

// NewEditor starts from a copy of initial (may be nil).
func NewEditor(initial *model.RequestContext) *Editor {
	return &Editor{ctx: initial.Clone()}
}

// Context returns a copy of the edited context, or nil after Clear.
func (e *Editor) Context() *model.RequestContext {
	return e.ctx.Clone()
}

// IsEmpty reports whether there is no context at all.
func (e *Editor) IsEmpty() bool {
	return e.ctx == nil
}

// Keys returns the override keys in order.
func (e *Editor) Keys() []string {
	if e.ctx == nil {
		return nil
	}
	return e.ctx.Overrides.Keys()
}

// Value returns the value stored under key.
func (e *Editor) Value(key string) (any, bool) {
	if e.ctx == nil {
		return nil, false
	}
	return e.ctx.Overrides.Get(key)
}

// ValueText renders the value under key the way it is edited: strings as-is,
// structured values as compact JSON.
func (e *Editor) ValueText(key string) string {
	v, ok := e.Value(key)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// AdditionalInstructions returns the free-text instructions.
func (e *Editor) AdditionalInstructions() string {
	if e.ctx == nil {
		return ""
	}
	return e.ctx.AdditionalInstructions
}

// Add inserts a placeholder override with an empty value and returns its key.
// The key is "keyN" with N one past the current count, bumped until unique.
func (e *Editor) Add() string {
	e.ensure()
	n := e.ctx.Overrides.Len() + 1
	key := fmt.Sprintf("key%d", n)
	for e.ctx.Overrides.Has(key) {
		n++
		key = fmt.Sprintf("key%d", n)
	}
	e.ctx.Overrides.Set(key, "")
	return key
}

// Rename moves the value under oldKey to newKey. newKey goes to the end unless
// it already exists, in which case its value is overwritten in place.
func (e *Editor) Rename(oldKey, newKey string) {
	if e.ctx == nil || e.ctx.Overrides == nil || oldKey == newKey {
		return
	}
	value, ok := e.ctx.Overrides.Get(oldKey)
	if !ok {
		return
	}
	e.ctx.Overrides.Delete(oldKey)
	e.ctx.Overrides.Set(newKey, value)
}

// SetValue stores text under key after ParseValue.
func (e *Editor) SetValue(key, text string) {
	e.ensure()
	e.ctx.Overrides.Set(key, ParseValue(text))
}

// Remove deletes key. Removing the last key drops the override map entirely.
func (e *Editor) Remove(key string) {
	if e.ctx == nil || e.ctx.Overrides == nil {
		return
	}
	e.ctx.Overrides.Delete(key)
	if e.ctx.Overrides.Len() == 0 {
		e.ctx.Overrides = nil
	}
}

// Clear resets the whole request context to nil.
func (e *Editor) Clear() {
	e.ctx = nil
}

// SetAdditionalInstructions replaces the free-text instructions.
func (e *Editor) SetAdditionalInstructions(text string) {
	if e.ctx == nil {
		e.ctx = &model.RequestContext{}
	}
	e.ctx.AdditionalInstructions = text
}

func (e *Editor) ensure() {
	if e.ctx == nil {
		e.ctx = &model.RequestContext{}
	}
	if e.ctx.Overrides == nil {
		e.ctx.Overrides = model.NewOverrides()
	}
}

// =============================================================================
// VALUE PARSING
// =============================================================================

// ParseValue turns edited text into an override value. Text that starts with
// '{' or '[', equals "true" or "false", or is numeric is decoded as JSON;
// anything else, including text that fails to decode, stays a string.
func ParseValue(text string) any {
	if !looksStructured(text) {
		return text
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	return v
}

func looksStructured(text string) bool {
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return true
	}
	if text == "true" || text == "false" {
		return true
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	_, err := strconv.ParseFloat(trimmed, 64)
	return err == nil
}

// FormatValue renders an override value for editing.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
