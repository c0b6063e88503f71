// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/jeranaias/chatwidget/internal/aichat"
	"github.com/jeranaias/chatwidget/internal/auth"
	"github.com/jeranaias/chatwidget/internal/config"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/storage"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates authentication or authorization failure
	ExitAuthError = 4
	// ExitNetworkError indicates network or connectivity error
	ExitNetworkError = 5
	// ExitBackendError indicates the backend answered with an error
	ExitBackendError = 6
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string
	Action  string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: failed to %s: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: failed to %s: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is a bad argument or flag value.
type UsageError struct {
	Field  string
	Value  string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewCommandError creates a CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewUsageError creates a UsageError.
func NewUsageError(field, value, reason string) error {
	return &UsageError{Field: field, Value: value, Reason: reason}
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError prints err to stderr, or as a JSONResponse on stdout in JSON
// mode.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse("", err).Write(os.Stdout)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), describeError(err))
}

// describeError prefers the backend's own {code, message} when there is one.
func describeError(err error) string {
	if chatErr, ok := model.AsChatError(err); ok {
		return fmt.Sprintf("%s (%s)", chatErr.Message, chatErr.Code)
	}
	return err.Error()
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var ttyErr *TTYRequiredError
	var validateErrs config.ValidateErrors
	var tokenErr *auth.TokenError
	var netErr net.Error
	var chatErr *model.ChatError

	switch {
	case errors.As(err, &usageErr), errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.As(err, &validateErrs), errors.Is(err, aichat.ErrNotConfigured):
		return ExitConfigError
	case errors.Is(err, aichat.ErrUnauthorized), errors.As(err, &tokenErr):
		return ExitAuthError
	case errors.Is(err, storage.ErrTranscriptNotFound), errors.Is(err, aichat.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ExitTimeoutError
		}
		return ExitNetworkError
	case errors.As(err, &chatErr), errors.Is(err, aichat.ErrServer), errors.Is(err, aichat.ErrRateLimited):
		return ExitBackendError
	}
	return ExitGeneralError
}
