// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat command for chatwidget.
//
// Handles "chatwidget chat", a plain REPL over the same widget core the
// interactive widget uses. Useful over SSH, in dumb terminals and in scripts
// that pipe questions on stdin.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Start a new conversation
//   /model [name]       Show or switch model
//   /models             List selectable models
//   /set key=value      Set a request override
//   /unset key          Remove a request override
//   /instructions text  Set additional instructions
//   /context            Show the request context
//   /thoughts           Show the latest reasoning steps
//   /save               Save the transcript now
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatwidget/internal/config"
	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/projection"
	"github.com/jeranaias/chatwidget/internal/reqctx"
	"github.com/jeranaias/chatwidget/internal/session"
	"github.com/jeranaias/chatwidget/internal/widget"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input per call. io.EOF ends the session.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// pipedInput reads lines from a non-terminal reader without echoing prompts.
type pipedInput struct {
	scanner *bufio.Scanner
}

func newPipedInput(r io.Reader) *pipedInput {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &pipedInput{scanner: s}
}

func (p *pipedInput) ReadInput(string) (string, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (p *pipedInput) Close() {}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter writes assistant content as it streams in. It follows the
// in-flight message at a known entry index and prints only what is new.
type streamPrinter struct {
	out io.Writer

	mu      sync.Mutex
	active  bool
	index   int
	printed int
}

func (p *streamPrinter) begin(index int) {
	p.mu.Lock()
	p.active, p.index, p.printed = true, index, 0
	p.mu.Unlock()
}

// end stops following and reports whether anything was printed.
func (p *streamPrinter) end() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	return p.printed > 0
}

func (p *streamPrinter) onSnapshot(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || len(snap.Entries) <= p.index {
		return
	}
	msg, ok := snap.Entries[p.index].(model.Message)
	if !ok || msg.Role != model.RoleAssistant || len(msg.Content) <= p.printed {
		return
	}
	if p.printed == 0 {
		fmt.Fprint(p.out, AssistantStyle.Render("assistant")+" ")
	}
	fmt.Fprint(p.out, msg.Content[p.printed:])
	p.printed = len(msg.Content)
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// chatSession is one line-mode conversation.
type chatSession struct {
	a       *app
	w       *widget.Widget
	out     io.Writer
	input   lineReader
	printer *streamPrinter
	saver   *transcriptSaver
	logger  *zap.Logger
}

func (a *app) chatCommand() *cobra.Command {
	var noWelcome bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a line-mode chat session",
		Long: `Start a line-mode chat session without the full-screen widget.

Replies stream as plain text. Type /help for the in-chat commands.
When stdin is not a terminal, each input line is sent as one message.`,
		Example: `  chatwidget chat
  chatwidget chat --model gpt-4o
  printf 'hello\n' | chatwidget chat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newChatSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			return s.run(cmd.Context(), !noWelcome)
		},
	}
	cmd.Flags().BoolVar(&noWelcome, "no-welcome", false, "Skip the welcome greeting")
	return cmd
}

func (a *app) newChatSession(cmd *cobra.Command) (*chatSession, error) {
	client, err := a.newClient()
	if err != nil {
		return nil, err
	}
	transcripts, err := a.transcripts()
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	w := widget.New(client, widget.Options{
		Config: a.widgetConfig(),
		Logger: a.logger,
		Handlers: widget.EventHandlers{
			OnError: func(err error) {
				a.logger.Warn("Chat error", zap.Error(err))
			},
		},
	})

	s := &chatSession{
		a:       a,
		w:       w,
		out:     out,
		printer: &streamPrinter{out: out},
		logger:  a.logger.Named("chat"),
	}
	if transcripts != nil {
		s.saver = &transcriptSaver{store: transcripts, w: w}
	}

	if in, ok := cmd.InOrStdin().(*os.File); ok && in == os.Stdin && IsTTY() {
		s.input = NewChatCLI()
	} else {
		s.input = newPipedInput(cmd.InOrStdin())
	}
	return s, nil
}

func (s *chatSession) close() {
	s.input.Close()
}

// run is the REPL loop.
func (s *chatSession) run(ctx context.Context, welcome bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	unsubscribe := s.w.Store().Subscribe(s.printer.onSnapshot)
	defer unsubscribe()

	s.printBanner()

	if welcome {
		if turn := s.w.Welcome(); turn != nil {
			s.stream(ctx, 0, turn)
		}
	}

	for {
		input, err := s.input.ReadInput(PromptStyle.Render("you") + " ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleSlashCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				break
			}
			continue
		}

		index := s.w.Store().Len() + 1
		s.stream(ctx, index, func(ctx context.Context) session.Outcome {
			return s.w.Send(ctx, input)
		})
	}

	return s.save(false)
}

// stream runs one turn, printing content from the entry at index. Ctrl+C
// cancels the turn but not the session.
func (s *chatSession) stream(ctx context.Context, index int, turn func(context.Context) session.Outcome) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s.printer.begin(index)
	outcome := turn(turnCtx)
	printed := s.printer.end()
	if printed {
		fmt.Fprintln(s.out)
	}

	switch outcome.Status {
	case session.StatusFailed:
		if errors.Is(outcome.Err, context.Canceled) {
			fmt.Fprintln(s.out, WarningStyle.Render("[Cancelled]"))
			return
		}
		if outcome.ErrorEntry != nil {
			fmt.Fprintf(s.out, "%s %s\n", ErrorStyle.Render("[Error "+outcome.ErrorEntry.Code+"]"), outcome.ErrorEntry.Message)
		}
	case session.StatusSkipped:
		s.logger.Debug("Turn skipped", zap.Error(outcome.Reason))
		if errors.Is(outcome.Reason, session.ErrNoTransport) {
			fmt.Fprintln(s.out, ErrorStyle.Render("[Error]")+" no chat backend configured")
		}
		return
	}

	for _, q := range s.w.FollowupQuestions() {
		fmt.Fprintln(s.out, DimStyle.Render("  > "+q))
	}
}

// save writes the transcript. Explicit saves report the result.
func (s *chatSession) save(explicit bool) error {
	if s.saver == nil {
		if explicit {
			return errors.New("transcript storage is disabled")
		}
		return nil
	}
	if err := s.saver.save(s.w.Store().Snapshot()); err != nil {
		if explicit {
			return err
		}
		s.logger.Error("Failed to save transcript", zap.Error(err))
		fmt.Fprintf(s.out, "%s %v\n", WarningStyle.Render("Transcript not saved:"), err)
		return nil
	}
	if id := s.saver.ID(); id != "" {
		fmt.Fprintln(s.out, DimStyle.Render("Transcript saved: "+id))
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands. It returns false to end the
// session.
func (s *chatSession) handleSlashCommand(ctx context.Context, line string) (bool, error) {
	command, rest, _ := strings.Cut(line, " ")
	command = strings.ToLower(command)
	rest = strings.TrimSpace(rest)

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()

	case "/clear", "/c":
		if err := s.save(false); err != nil {
			return true, err
		}
		s.w.Store().Reset()
		if s.saver != nil {
			s.saver = &transcriptSaver{store: s.saver.store, w: s.w}
		}
		fmt.Fprintln(s.out, DimStyle.Render("[Conversation cleared]"))

	case "/model", "/m":
		if rest == "" {
			fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Model:"), displayModel(s.w.Model()))
			return true, nil
		}
		if err := s.w.SelectModel(rest); err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "%s %s\n", SuccessStyle.Render("[OK]"), "Switched to model: "+rest)

	case "/models":
		if err := s.w.LoadModels(ctx); err != nil {
			fmt.Fprintf(s.out, "%s %v\n", WarningStyle.Render("[Warning]"), err)
		}
		models, _ := s.w.AvailableModels()
		if len(models) == 0 {
			fmt.Fprintln(s.out, DimStyle.Render("No models available."))
		}
		for _, m := range models {
			marker := "  "
			if m == s.w.Model() {
				marker = "* "
			}
			fmt.Fprintln(s.out, marker+m)
		}

	case "/set":
		key, value, ok := strings.Cut(rest, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return true, NewUsageError("command", line, "expected /set key=value")
		}
		s.w.EditContext(func(e *reqctx.Editor) {
			e.SetValue(key, strings.TrimSpace(value))
		})
		fmt.Fprintf(s.out, "%s %s\n", SuccessStyle.Render("[OK]"), "Override set: "+key)

	case "/unset":
		if rest == "" {
			return true, NewUsageError("command", line, "expected /unset key")
		}
		s.w.EditContext(func(e *reqctx.Editor) {
			e.Remove(rest)
		})
		fmt.Fprintf(s.out, "%s %s\n", SuccessStyle.Render("[OK]"), "Override removed: "+rest)

	case "/instructions":
		s.w.EditContext(func(e *reqctx.Editor) {
			e.SetAdditionalInstructions(rest)
		})
		fmt.Fprintf(s.out, "%s %s\n", SuccessStyle.Render("[OK]"), "Instructions updated")

	case "/context":
		return true, s.printContext()

	case "/thoughts":
		s.printThoughts()

	case "/save":
		return true, s.save(true)

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

func displayModel(m string) string {
	if m == "" {
		return DimStyle.Render("(backend default)")
	}
	return m
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

func (s *chatSession) printBanner() {
	fmt.Fprintln(s.out, TitleStyle.Render("chatwidget"))
	fmt.Fprintln(s.out, RenderSeparator(30))
	fmt.Fprintf(s.out, "%s%s\n", RenderLabel("Backend:"), s.a.cfg.Backend.BaseURL)
	fmt.Fprintf(s.out, "%s%s\n", RenderLabel("Model:"), displayModel(s.w.Model()))
	fmt.Fprintln(s.out, DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(s.out)
}

func (s *chatSession) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Start a new conversation"},
		{"/model [name]", "Show or switch model"},
		{"/models", "List selectable models"},
		{"/set key=value", "Set a request override"},
		{"/unset key", "Remove a request override"},
		{"/instructions", "Set additional instructions"},
		{"/context", "Show the request context"},
		{"/thoughts", "Show the latest reasoning steps"},
		{"/save", "Save the transcript now"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, TitleStyle.Render("Available Commands"))
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %-18s %s\n", c.cmd, DimStyle.Render(c.desc))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, DimStyle.Render("Tip: Ctrl+C cancels current generation, Ctrl+D exits"))
	fmt.Fprintln(s.out)
}

func (s *chatSession) printContext() error {
	rc := s.w.RequestContext()
	if rc == nil {
		fmt.Fprintln(s.out, DimStyle.Render("No request context."))
		return nil
	}
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode request context: %w", err)
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

func (s *chatSession) printThoughts() {
	th := s.w.Thoughts()
	switch th.State {
	case projection.ThoughtsNoContext:
		fmt.Fprintln(s.out, DimStyle.Render("No response context yet."))
		return
	case projection.ThoughtsEmpty:
		fmt.Fprintln(s.out, DimStyle.Render("The last response reported no thoughts."))
		if th.Debug != "" {
			fmt.Fprintln(s.out, th.Debug)
		}
		return
	}
	for i, item := range th.Items {
		fmt.Fprintf(s.out, "%s %s\n", TitleStyle.Render(fmt.Sprintf("%d.", i+1)), item.Title)
		for _, line := range item.Description {
			fmt.Fprintln(s.out, "   "+line)
		}
		if item.Details != "" {
			for _, line := range strings.Split(item.Details, "\n") {
				fmt.Fprintln(s.out, "   "+DimStyle.Render(line))
			}
		}
	}
}
