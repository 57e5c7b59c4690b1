// Package main provides the CLI entrypoint for studytimer.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/config"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/tui"
)

var (
	logLevel string

	runBackend string
	runStore   string

	serveAddr  string
	serveToken string

	historySince string
	historyLast  int
	historyPlain bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studytimer [session-id...]",
		Short:         "Persistent per-session study timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimersCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&runBackend, "backend", config.BackendSQLite, "timer store backend: sqlite or file")
	rootCmd.PersistentFlags().StringVar(&runStore, "store", "", "timer store path (default depends on backend)")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newCompleteCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// resolveSettings loads the config file and lets explicitly set flags win.
func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("backend") {
		fileCfg.Store.Backend = &runBackend
		if !cmd.Flags().Changed("store") {
			// The path configured for the other backend does not apply.
			fileCfg.Store.Path = nil
		}
	}
	applyStringFlag(cmd, "store", &fileCfg.Store.Path, runStore)
	applyStringFlag(cmd, "addr", &fileCfg.Server.Addr, serveAddr)
	applyStringFlag(cmd, "token", &fileCfg.Server.Token, serveToken)
	return config.Resolve(fileCfg)
}

func runTimersCmd(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := newFileLogger(config.DefaultLogPath())
	if err != nil {
		return err
	}
	defer closeLog()

	bridge := tui.NewDisplayBridge(256)
	a, err := openApp(commandContext(cmd), settings, logger, timer.WithDisplay(bridge.Hook()))
	if err != nil {
		return err
	}
	defer a.Close()

	sessions := a.sessions
	if len(args) > 0 {
		sessions, err = loadSessions(settings, args)
		if err != nil {
			return err
		}
		a.sessions = sessions
	}
	sessions = a.withRestored(sessions)

	events := a.registry.Subscribe(64)
	m := tui.NewModel(a.registry, sessions, a.completer, bridge.Updates(), events, logger)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringFlag(cmd *cobra.Command, name string, target **string, value string) {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return
	}
	v := value
	*target = &v
}

func parseLevel(name string) slog.Level {
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func newTextLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
}

func newJSONLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
}

// newFileLogger logs to path so the terminal stays free for the TUI.
func newFileLogger(path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	closeFn := func() {
		if cerr := file.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}
	return newTextLogger(file), closeFn, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
