// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aichat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/chatwidget/internal/model"
)

// Sentinel errors for common failure classes. HTTPError unwraps to one of
// these when the status code matches.
var (
	// ErrNotConfigured indicates the client has no base URL.
	ErrNotConfigured = errors.New("chat backend not configured: base URL is empty")

	// ErrUnauthorized indicates the backend rejected the credentials (401/403).
	ErrUnauthorized = errors.New("chat backend rejected credentials")

	// ErrNotFound indicates the endpoint does not exist (404).
	ErrNotFound = errors.New("chat endpoint not found")

	// ErrRateLimited indicates the backend is throttling requests (429).
	ErrRateLimited = errors.New("chat backend rate limit exceeded")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("chat backend server error")

	// ErrLineTooLong indicates a stream line exceeded MaxLineSize.
	ErrLineTooLong = errors.New("stream line exceeds maximum size")

	// ErrInvalidMessage indicates a message with an unknown role.
	ErrInvalidMessage = errors.New("invalid message")
)

// HTTPError is a non-2xx response from the backend. When the body carried a
// structured {"error":{code,message}} payload, Chat holds it and errors.As
// finds it through Unwrap.
type HTTPError struct {
	Status int
	Body   string
	Chat   *model.ChatError
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Chat != nil {
		return fmt.Sprintf("chat backend error (HTTP %d): %s", e.Status, e.Chat.Error())
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.Status)
	}
	return fmt.Sprintf("chat backend error (HTTP %d): %s", e.Status, body)
}

// Unwrap exposes the structured chat error and the status class sentinel.
func (e *HTTPError) Unwrap() []error {
	var errs []error
	if e.Chat != nil {
		errs = append(errs, e.Chat)
	}
	if sentinel := statusSentinel(e.Status); sentinel != nil {
		errs = append(errs, sentinel)
	}
	return errs
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500 && status < 600:
		return ErrServer
	default:
		return nil
	}
}

// errorPayload is the AI Chat Protocol error envelope.
type errorPayload struct {
	Error *model.ChatError `json:"error"`
}

// newHTTPError converts an error response to an HTTPError, extracting the
// structured chat error when the body has one.
func newHTTPError(status int, body []byte) *HTTPError {
	httpErr := &HTTPError{Status: status, Body: string(body)}
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil &&
		(payload.Error.Code != "" || payload.Error.Message != "") {
		httpErr.Chat = payload.Error
	}
	return httpErr
}
