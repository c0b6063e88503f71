// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aichat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/model"
)

// MaxLineSize is the maximum allowed size of a single NDJSON line (1MB).
// Flow visualizations can be large, so this is well above a typical delta.
const MaxLineSize = 1024 * 1024

// streamLine is one decoded NDJSON line: either a delta event or an error.
type streamLine struct {
	model.DeltaEvent
	Error *model.ChatError `json:"error,omitempty"`
}

// Stream reads newline-delimited JSON events from a response body.
// It implements DeltaStream. Next must be called from one goroutine.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *zap.Logger
	events  int

	closeOnce sync.Once
	closeErr  error
}

func newStream(body io.ReadCloser, logger *zap.Logger) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Stream{body: body, scanner: scanner, logger: logger}
}

// NewStream wraps an NDJSON body. Exposed for transports that obtain the body
// some other way (tests, proxies).
func NewStream(body io.ReadCloser) *Stream {
	return newStream(body, zap.NewNop())
}

// Next returns the next event. Blank lines are skipped, and lines framed as
// server-sent events ("data: {...}") are accepted. io.EOF marks a normal end
// of stream; a {"error":...} line is returned as a *model.ChatError.
func (s *Stream) Next(ctx context.Context) (model.DeltaEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.DeltaEvent{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return model.DeltaEvent{}, ctxErr
				}
				if errors.Is(err, bufio.ErrTooLong) {
					return model.DeltaEvent{}, ErrLineTooLong
				}
				return model.DeltaEvent{}, fmt.Errorf("stream read failed: %w", err)
			}
			s.logger.Debug("Completion stream finished", zap.Int("events", s.events))
			return model.DeltaEvent{}, io.EOF
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			line = bytes.TrimSpace(rest)
			if bytes.Equal(line, []byte("[DONE]")) {
				return model.DeltaEvent{}, io.EOF
			}
		}

		var decoded streamLine
		if err := json.Unmarshal(line, &decoded); err != nil {
			return model.DeltaEvent{}, fmt.Errorf("failed to parse stream line: %w", err)
		}
		if decoded.Error != nil {
			return model.DeltaEvent{}, decoded.Error
		}
		s.events++
		return decoded.DeltaEvent, nil
	}
}

// Close releases the response body.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
