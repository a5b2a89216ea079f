package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manash/pixedit/internal/cost"
	"github.com/manash/pixedit/internal/display"
	"github.com/manash/pixedit/internal/keys"
	"github.com/manash/pixedit/internal/repl"
	"github.com/manash/pixedit/internal/script"
	"github.com/manash/pixedit/internal/session"
)

func newREPLCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start interactive editing mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(app)
		},
	}
	cmd.Flags().Float64Var(&flagPixelRatio, "dpr", 1, "device pixel ratio for crop output")
	return cmd
}

func runREPL(app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ed, err := newLocalEditor(ctx, app)
	if err != nil {
		return err
	}

	store, err := app.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	mgr := session.NewManager(store, flagModel)
	ed.SetRecorder(mgr)

	r := repl.New(&repl.Config{
		In:         app.In,
		Out:        app.Out,
		Err:        app.Err,
		Editor:     ed,
		Provider:   ed.Provider(),
		SessionMgr: mgr,
		Displayer:  display.New(app.Out),
		Calculator: cost.NewCalculator(),
		PixelRatio: flagPixelRatio,
	})

	return r.Run(ctx)
}

func newScriptCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script <file>",
		Short: "Run a scripted edit pipeline (.txt or .json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(args, app)
		},
	}

	cmd.Flags().BoolVar(&flagStopOnError, "stop-on-error", false, "abort on the first failed step")
	cmd.Flags().IntVar(&flagDelayMs, "delay-ms", 0, "delay between steps in milliseconds")
	cmd.Flags().Float64Var(&flagPixelRatio, "dpr", 1, "device pixel ratio for crop output")

	return cmd
}

func runScript(args []string, app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	steps, err := script.ParseFile(args[0])
	if err != nil {
		return err
	}

	ed, err := newLocalEditor(ctx, app)
	if err != nil {
		return err
	}

	runner := script.NewRunner(ed, cost.NewCalculator(), app.Out, app.Err)
	results, err := runner.Run(ctx, steps, &script.Options{
		Model:       flagModel,
		StopOnError: flagStopOnError,
		DelayMs:     flagDelayMs,
		PixelRatio:  flagPixelRatio,
	})
	runner.PrintSummary(results)
	return err
}

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(args[0], app)
		},
	})

	return cmd
}

func runSessionsList(app *App) error {
	ctx := context.Background()

	store, err := app.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(app.Out, "No sessions found")
		return nil
	}

	fmt.Fprintf(app.Out, "%-8s  %-20s  %-20s  %s\n", "ID", "Name", "Updated", "Model")
	fmt.Fprintln(app.Out, strings.Repeat("-", 70))
	for _, sess := range sessions {
		name := sess.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(app.Out, "%-8s  %-20s  %-20s  %s\n",
			sess.ID[:6], name, session.FormatTimestamp(sess.UpdatedAt), sess.Model)
	}
	return nil
}

func runSessionsDelete(id string, app *App) error {
	ctx := context.Background()

	store, err := app.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	mgr := session.NewManager(store, flagModel)

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	var fullID string
	for _, sess := range sessions {
		if strings.HasPrefix(sess.ID, id) {
			fullID = sess.ID
			break
		}
	}
	if fullID == "" {
		return fmt.Errorf("session not found: %s", id)
	}

	if err := mgr.DeleteSession(ctx, fullID); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted session: %s\n", fullID[:6])
	return nil
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [provider]",
		Short: "Store an API key (prompted, not echoed)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysSet(args, app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored keys (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysList(app)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [provider]",
		Short: "Delete a stored key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysDelete(args, app)
		},
	})

	return cmd
}

func keyProvider(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "gemini"
}

func runKeysSet(args []string, app *App) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	provider := keyProvider(args)
	key, err := keys.PromptKey(fmt.Sprintf("API key for %s: ", provider))
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("empty key")
	}

	if err := store.Set(provider, key); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Stored key for %s (%s)\n", provider, keys.MaskKey(key))
	return nil
}

func runKeysList(app *App) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	providers, err := store.List()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintln(app.Out, "No keys stored")
		return nil
	}

	for _, p := range providers {
		key, err := store.Get(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "%s: %s\n", p, keys.MaskKey(key))
	}
	return nil
}

func runKeysDelete(args []string, app *App) error {
	store, err := keys.NewStore()
	if err != nil {
		return err
	}

	provider := keyProvider(args)
	if err := store.Delete(provider); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted key for %s\n", provider)
	return nil
}
