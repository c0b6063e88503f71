// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command for chatwidget.
//
// Handles "chatwidget ask", which sends one question to the backend and
// prints the reply. The question comes from the arguments or, when none are
// given, from piped stdin.
//
// Examples:
//   chatwidget ask "What is the capital of France?"
//   chatwidget ask --json "Summarize the release notes"
//   chatwidget ask --stream "Explain this error" --file build.log
//   git diff | chatwidget ask --set temperature=0.2
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/aichat"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/reqctx"
)

// maxQuestionFileSize limits files attached with --file.
const maxQuestionFileSize = 1 << 20

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders markdown content for terminal display. It returns
// the original content if rendering fails.
func renderMarkdown(content string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse renders markdown only when w is the terminal, so piped
// output stays untouched.
func displayResponse(w io.Writer, response string) {
	if f, ok := w.(*os.File); ok && f == os.Stdout && IsStdoutTTY() {
		fmt.Fprint(w, renderMarkdown(response))
		return
	}
	fmt.Fprintln(w, response)
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// askOptions are the ask command flags.
type askOptions struct {
	file         string
	stream       bool
	instructions string
	overrides    []string
}

// askResult is the --json payload.
type askResult struct {
	Question          string             `json:"question"`
	Model             string             `json:"model,omitempty"`
	Response          string             `json:"response"`
	FollowupQuestions []string           `json:"followup_questions,omitempty"`
	Thoughts          []model.Thought    `json:"thoughts,omitempty"`
	SessionState      model.SessionState `json:"session_state,omitempty"`
}

func (a *app) askCommand() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Long: `Ask a single question and print the reply.

The question is taken from the arguments. Without arguments it is read from
piped stdin. With --file the file content is appended to the question.`,
		Example: `  chatwidget ask "What is the capital of France?"
  chatwidget ask --json "List three colors"
  cat notes.md | chatwidget ask --instructions "answer in one line"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAsk(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Append file content to the question")
	f.BoolVarP(&opts.stream, "stream", "s", false, "Stream the reply as it arrives")
	f.StringVar(&opts.instructions, "instructions", "", "Additional instructions for the backend")
	f.StringArrayVar(&opts.overrides, "set", nil, "Request override as key=value (repeatable)")
	return cmd
}

func (a *app) runAsk(cmd *cobra.Command, args []string, opts askOptions) error {
	question, err := readQuestion(cmd, args, opts.file)
	if err != nil {
		return err
	}
	rc, err := buildRequestContext(opts)
	if err != nil {
		return err
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}

	selected := a.cfg.Widget.Model
	options := aichat.Options{Context: rc}
	if selected != "" {
		options.Context = rc.WithModel(selected)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	messages := []model.Message{model.NewUserMessage(question)}
	a.logger.Debug("Asking question", zap.Int("length", len(question)), zap.Bool("stream", opts.stream))

	out := cmd.OutOrStdout()
	var completion *aichat.Completion
	if opts.stream && !a.jsonMode {
		completion, err = streamCompletion(ctx, client, messages, options, out)
	} else {
		completion, err = client.GetCompletion(ctx, messages, options)
	}
	if err != nil {
		return err
	}

	if a.jsonMode {
		result := askResult{
			Question:     question,
			Model:        selected,
			Response:     completion.Message.Content,
			SessionState: completion.SessionState,
		}
		if completion.Context != nil {
			result.FollowupQuestions = completion.Context.FollowupQuestions
			result.Thoughts = completion.Context.Thoughts
		}
		return NewJSONResponse("ask", result).Write(out)
	}

	if !opts.stream {
		displayResponse(out, completion.Message.Content)
	}
	if completion.Context != nil {
		for _, q := range completion.Context.FollowupQuestions {
			fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("  > "+q))
		}
	}
	return nil
}

// streamCompletion prints each delta to out as it arrives and folds the
// stream into a Completion.
func streamCompletion(ctx context.Context, t aichat.Transport, messages []model.Message, opts aichat.Options, out io.Writer) (*aichat.Completion, error) {
	stream, err := t.GetStreamedCompletion(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	msg := model.NewAssistantMessage()
	result := &aichat.Completion{}
	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(out)
			return nil, err
		}
		if ev.HasSessionState() {
			result.SessionState = ev.SessionState
		}
		if ev.Delta == nil {
			continue
		}
		if ev.Context != nil {
			msg.Context = ev.Context
		}
		if ev.Delta.Content != "" {
			msg.Content += ev.Delta.Content
			fmt.Fprint(out, ev.Delta.Content)
		}
	}
	fmt.Fprintln(out)

	result.Message = msg
	result.Context = msg.Context
	return result, nil
}

// readQuestion joins args, falls back to piped stdin and appends the file
// named by path.
func readQuestion(cmd *cobra.Command, args []string, path string) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))

	if question == "" && !stdinIsTerminal(cmd) {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxQuestionFileSize))
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}

	if path != "" {
		content, err := readFileForContext(path)
		if err != nil {
			return "", err
		}
		if question == "" {
			question = content
		} else {
			question += "\n\n" + content
		}
	}

	if question == "" {
		return "", NewUsageError("question", "", "no question provided. Usage: chatwidget ask \"your question\"")
	}
	return question, nil
}

// stdinIsTerminal reports whether the command reads from an interactive
// terminal. Injected readers count as piped input.
func stdinIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && f == os.Stdin && IsTTY()
}

// readFileForContext reads a file and formats it for inclusion in a prompt.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", NewUsageError("file", path, err.Error())
	}
	if info.IsDir() {
		return "", NewUsageError("file", path, "is a directory")
	}
	if info.Size() > maxQuestionFileSize {
		return "", NewUsageError("file", path, fmt.Sprintf("larger than %d bytes", maxQuestionFileSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return fmt.Sprintf("File: %s\n```\n%s\n```", path, strings.TrimRight(string(data), "\n")), nil
}

// buildRequestContext turns --set and --instructions into a request context.
func buildRequestContext(opts askOptions) (*model.RequestContext, error) {
	editor := reqctx.NewEditor(nil)
	for _, kv := range opts.overrides {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, NewUsageError("set", kv, "expected key=value")
		}
		editor.SetValue(key, strings.TrimSpace(value))
	}
	if opts.instructions != "" {
		editor.SetAdditionalInstructions(opts.instructions)
	}
	return editor.Context(), nil
}
