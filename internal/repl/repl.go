// Package repl implements the interactive editing loop. Each line is parsed
// into a command name plus quoted-string-aware arguments and dispatched to a
// registered Command.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/pixedit/internal/cost"
	"github.com/manash/pixedit/internal/display"
	"github.com/manash/pixedit/internal/editor"
	"github.com/manash/pixedit/internal/provider"
	"github.com/manash/pixedit/internal/session"
)

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	editor     *editor.Editor
	provider   provider.Provider
	sessionMgr *session.Manager
	displayer  *display.Displayer
	calculator *cost.Calculator
	pixelRatio float64
	commands   map[string]Command
	running    bool
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Editor     *editor.Editor
	Provider   provider.Provider
	SessionMgr *session.Manager
	Displayer  *display.Displayer
	Calculator *cost.Calculator
	PixelRatio float64
}

func New(cfg *Config) *REPL {
	ratio := cfg.PixelRatio
	if ratio == 0 {
		ratio = 1
	}
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		editor:     cfg.Editor,
		provider:   cfg.Provider,
		sessionMgr: cfg.SessionMgr,
		displayer:  cfg.Displayer,
		calculator: cfg.Calculator,
		pixelRatio: ratio,
		commands:   make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "pixedit interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	model := r.sessionMgr.GetModel()
	h := r.editor.History()
	if h.Len() > 0 {
		fmt.Fprintf(r.out, "pixedit [%s] (%d/%d)> ", model, h.Cursor()+1, h.Len())
	} else {
		fmt.Fprintf(r.out, "pixedit [%s]> ", model)
	}
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
