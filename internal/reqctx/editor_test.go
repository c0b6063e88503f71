// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reqctx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatwidget/internal/model"
)

func TestEditor_AddRenameSetParsesNumber(t *testing.T) {
	e := NewEditor(nil)

	key := e.Add()
	assert.Equal(t, "key1", key)

	e.Rename(key, "temperature")
	e.SetValue("temperature", "0.7")

	rc := e.Context()
	require.NotNil(t, rc)
	v, ok := rc.Overrides.Get("temperature")
	require.True(t, ok)
	assert.Equal(t, 0.7, v, "numeric text is stored as a number")

	data, err := json.Marshal(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"overrides":{"temperature":0.7}}`, string(data))
}

func TestEditor_RemoveLastKeyDropsOverrides(t *testing.T) {
	e := NewEditor(nil)
	e.SetValue("a", "1")
	e.SetValue("b", "x")

	e.Remove("a")
	require.NotNil(t, e.Context().Overrides)

	e.Remove("b")
	rc := e.Context()
	require.NotNil(t, rc)
	assert.Nil(t, rc.Overrides, "overrides are dropped, not left empty")

	data, err := json.Marshal(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestEditor_AddPicksUniqueKey(t *testing.T) {
	e := NewEditor(nil)
	e.SetValue("key2", "taken")

	assert.Equal(t, "key3", e.Add())
	assert.Equal(t, "key4", e.Add())
	assert.Equal(t, []string{"key2", "key3", "key4"}, e.Keys())
}

func TestEditor_RenameCollisionLastWriteWins(t *testing.T) {
	e := NewEditor(nil)
	e.SetValue("a", "first")
	e.SetValue("b", "second")

	e.Rename("a", "b")

	assert.Equal(t, []string{"b"}, e.Keys())
	assert.Equal(t, "first", e.ValueText("b"))
}

func TestEditor_RenameMovesKeyToEnd(t *testing.T) {
	e := NewEditor(nil)
	e.SetValue("a", "1")
	e.SetValue("b", "2")

	e.Rename("a", "c")
	assert.Equal(t, []string{"b", "c"}, e.Keys())

	e.Rename("missing", "z")
	e.Rename("b", "b")
	assert.Equal(t, []string{"b", "c"}, e.Keys())
}

func TestEditor_ClearAndInstructions(t *testing.T) {
	o := model.NewOverrides()
	o.Set("model", "gpt-4o")
	initial := &model.RequestContext{Overrides: o}
	e := NewEditor(initial)

	e.SetAdditionalInstructions("answer in French")
	assert.Equal(t, "answer in French", e.AdditionalInstructions())
	assert.Empty(t, initial.AdditionalInstructions, "editor works on a copy")

	e.Clear()
	assert.Nil(t, e.Context())
	assert.True(t, e.IsEmpty())
	assert.Empty(t, e.AdditionalInstructions())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"0.7", 0.7},
		{"42", float64(42)},
		{"-3e2", float64(-300)},
		{"true", true},
		{"false", false},
		{`{"a":1}`, map[string]any{"a": float64(1)}},
		{`[1,"x"]`, []any{float64(1), "x"}},
		{"{broken", "{broken"},
		{"hello", "hello"},
		{"", ""},
		{"  ", "  "},
		{"True", "True"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseValue(tc.in))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "plain", FormatValue("plain"))
	assert.Equal(t, "0.7", FormatValue(0.7))
	assert.Equal(t, `{"a":[1,2]}`, FormatValue(map[string]any{"a": []any{1, 2}}))
}
