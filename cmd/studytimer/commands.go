package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/api"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/completion"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/historyui"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/stats"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/store"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/visual"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted timers",
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(commandContext(cmd), settings, newTextLogger(os.Stderr))
	if err != nil {
		return err
	}
	defer a.Close()

	timers := a.registry.Timers()
	if len(timers) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No timers.")
		return err
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))
	width := 80
	if color {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	return renderTimerList(cmd.OutOrStdout(), a, timers, width, color)
}

func renderTimerList(w io.Writer, a *app, timers []timer.Timer, width int, color bool) error {
	labelWidth := width - 48
	if labelWidth < 8 {
		labelWidth = 8
	}
	for _, t := range timers {
		label := t.SessionID
		if title := a.title(t.SessionID); title != "" {
			label = title + " (" + t.SessionID + ")"
		}
		state := visual.For(t)
		stateLabel := runewidth.FillRight(state.Label, 16)
		if color && state.Emphasis == visual.EmphasisNormal {
			stateLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Render(stateLabel)
		}
		progress := visual.ProgressOf(t.Elapsed, a.plannedMinutes(t.SessionID))
		line := strings.Join([]string{
			runewidth.FillRight(runewidth.Truncate(label, labelWidth, "…"), labelWidth),
			visual.FormatElapsed(t.Elapsed),
			stateLabel,
			runewidth.FillLeft(progress.String(), 12),
			fmt.Sprintf("%d🍅", t.Pomodoros),
		}, "  ")
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <session-id>...",
		Short: "Discard timers and their persisted state",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runClearCmd,
	}
}

func runClearCmd(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(commandContext(cmd), settings, newTextLogger(os.Stderr))
	if err != nil {
		return err
	}
	defer a.Close()

	for _, id := range args {
		a.registry.Clear(id)
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", id); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Mark a session complete and report its study time",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompleteCmd,
	}
}

func runCompleteCmd(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	logger := newTextLogger(os.Stderr)
	a, err := openApp(commandContext(cmd), settings, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if settings.RemoteBaseURL == "" {
		logger.Warn("no study server configured; completing locally only")
	}
	cs, err := a.completer.Complete(commandContext(cmd), args[0])
	if err != nil {
		if errors.Is(err, completion.ErrNoTimer) {
			return fmt.Errorf("no timer for session %q", args[0])
		}
		return fmt.Errorf("failed to complete session: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Completed %s: %s studied, %d pomodoros\n",
		cs.SessionID, visual.FormatElapsed(time.Duration(cs.StudiedSeconds)*time.Second), cs.Pomodoros)
	return err
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the timer HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config or :8742)")
	cmd.Flags().StringVar(&serveToken, "token", "", "bearer token required by /timers routes")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	logger := newJSONLogger(os.Stderr)
	a, err := openApp(commandContext(cmd), settings, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if settings.ServerToken == "" {
		logger.Warn("server token not set, timer routes are unauthenticated")
	}
	router := api.NewRouter(a.registry, a.completer, a.plannedMinutes, settings.ServerToken, logger)
	srv := &http.Server{
		Addr:         settings.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("timer server starting", "addr", settings.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-done:
	}
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed study sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a text report instead of the interactive browser")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	since, err := parseSince(historySince)
	if err != nil {
		return err
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(historyPath(settings))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	cfg := model.HistoryConfig{Since: since, Last: historyLast}
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && !historyPlain {
		program := tea.NewProgram(historyui.NewModel(st, cfg, time.Local), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(commandContext(cmd), st, cfg, time.Local)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	width := 0
	if interactive {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	return stats.RenderReport(cmd.OutOrStdout(), report, width)
}
