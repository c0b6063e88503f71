// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aichat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/chatwidget/internal/auth"
	"github.com/jeranaias/chatwidget/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// HELPERS
// =============================================================================

func newTestClient(t *testing.T, handler http.HandlerFunc, cred auth.Credential) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api/", cred,
		WithHTTPClient(srv.Client()),
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return c
}

func collect(t *testing.T, s DeltaStream) ([]model.DeltaEvent, error) {
	t.Helper()
	defer s.Close()
	var events []model.DeltaEvent
	for {
		ev, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewClient_ValidatesBaseURL(t *testing.T) {
	_, err := NewClient("", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient("ftp://example.com", nil)
	assert.Error(t, err)

	c, err := NewClient("https://chat.example.com/api/", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com/api", c.BaseURL())
}

func TestResolveCapabilities(t *testing.T) {
	c, err := NewClient("https://chat.example.com", nil)
	require.NoError(t, err)

	caps := ResolveCapabilities(c)
	assert.Equal(t, WithModelListing, caps.Kind)
	assert.True(t, caps.CanListModels())

	basic := ResolveCapabilities(nil)
	assert.Equal(t, Basic, basic.Kind)
	_, err = basic.ListModels(context.Background())
	assert.ErrorIs(t, err, ErrModelListingUnsupported)
}

// =============================================================================
// STREAMING
// =============================================================================

func TestGetStreamedCompletion_DecodesEvents(t *testing.T) {
	var got completionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/stream", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"delta":{"role":"assistant","content":"Hel"}}`,
			``,
			`{"delta":{"content":"lo"},"context":{"thoughts":[{"title":"t1"}]}}`,
			`{"session_state":{"id":"s1"}}`,
		}
		_, _ = io.WriteString(w, strings.Join(lines, "\n")+"\n")
	}, auth.NewStaticCredential("tok"))

	rc := (&model.RequestContext{AdditionalInstructions: "brief"}).WithModel("gpt-4o")
	stream, err := c.GetStreamedCompletion(context.Background(),
		[]model.Message{model.NewUserMessage("hi")},
		Options{Context: rc, SessionState: json.RawMessage(`{"id":"s0"}`)})
	require.NoError(t, err)

	events, err := collect(t, stream)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "Hel", events[0].Delta.Content)
	assert.Equal(t, model.RoleAssistant, events[0].Delta.Role)
	require.NotNil(t, events[1].Context)
	assert.Equal(t, "t1", events[1].Context.Thoughts[0].Title)
	assert.Nil(t, events[2].Delta, "heartbeat carries no delta")
	assert.True(t, events[2].HasSessionState())

	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)
	assert.JSONEq(t, `{"id":"s0"}`, string(got.SessionState))
	require.NotNil(t, got.Context)
	v, ok := got.Context.Overrides.Get("model")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", v)
}

func TestGetStreamedCompletion_NoTokenSendsNoAuthorization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"delta":{"content":"ok"}}`+"\n")
	}, auth.NewStaticCredential(""))

	stream, err := c.GetStreamedCompletion(context.Background(), []model.Message{model.NewUserMessage("hi")}, Options{})
	require.NoError(t, err)
	events, err := collect(t, stream)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGetStreamedCompletion_MidStreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"delta":{"content":"partial"}}`+"\n"+
			`{"error":{"code":"RATE_LIMIT","message":"slow down"}}`+"\n")
	}, nil)

	stream, err := c.GetStreamedCompletion(context.Background(), []model.Message{model.NewUserMessage("hi")}, Options{})
	require.NoError(t, err)

	events, err := collect(t, stream)
	require.Len(t, events, 1)
	chatErr, ok := model.AsChatError(err)
	require.True(t, ok, "expected ChatError, got %v", err)
	assert.Equal(t, "RATE_LIMIT", chatErr.Code)
}

func TestGetStreamedCompletion_HTTPErrorCarriesChatError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":"UNAUTHORIZED","message":"token expired"}}`)
	}, nil)

	_, err := c.GetStreamedCompletion(context.Background(), []model.Message{model.NewUserMessage("hi")}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	chatErr, ok := model.AsChatError(err)
	require.True(t, ok)
	assert.Equal(t, "token expired", chatErr.Message)
}

func TestGetStreamedCompletion_PlainHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}, nil)

	_, err := c.GetStreamedCompletion(context.Background(), []model.Message{model.NewUserMessage("hi")}, Options{})
	assert.ErrorIs(t, err, ErrServer)
	_, ok := model.AsChatError(err)
	assert.False(t, ok)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
}

func TestGetStreamedCompletion_RejectsInvalidRole(t *testing.T) {
	c, err := NewClient("https://chat.example.com", nil)
	require.NoError(t, err)

	_, err = c.GetStreamedCompletion(context.Background(), []model.Message{{Role: "tool", Content: "x"}}, Options{})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestStream_SSEFramingAndLimits(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: {\"delta\":{\"content\":\"a\"}}\n\ndata: [DONE]\n"))
	events, err := collect(t, NewStream(body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Delta.Content)

	huge := `{"delta":{"content":"` + strings.Repeat("x", MaxLineSize) + `"}}` + "\n"
	_, err = collect(t, NewStream(io.NopCloser(strings.NewReader(huge))))
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestStream_CancelledContext(t *testing.T) {
	s := NewStream(io.NopCloser(strings.NewReader(`{"delta":{"content":"a"}}` + "\n")))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// NON-STREAMED AND MODELS
// =============================================================================

func TestGetCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req completionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"Hi there"},"session_state":"abc","context":{"followup_questions":["More?"]}}`)
	}, nil)

	out, err := c.GetCompletion(context.Background(), []model.Message{model.NewUserMessage("hi")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out.Message.Content)
	assert.Equal(t, model.RoleAssistant, out.Message.Role)
	assert.JSONEq(t, `"abc"`, string(out.SessionState))
	require.NotNil(t, out.Context)
	assert.Equal(t, []string{"More?"}, out.Context.FollowupQuestions)
}

func TestListModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/models", r.URL.Path)
		_, _ = io.WriteString(w, `["gpt-4o","gpt-4o-mini"]`)
	}, nil)

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)
}

func TestListModels_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	_, err := c.ListModels(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}
