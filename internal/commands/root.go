package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/balkashynov/pomo/internal/config"
	"github.com/balkashynov/pomo/internal/db"
	"github.com/balkashynov/pomo/internal/engine"
	"github.com/balkashynov/pomo/internal/idle"
	"github.com/balkashynov/pomo/internal/logging"
	"github.com/balkashynov/pomo/internal/loop"
	"github.com/balkashynov/pomo/internal/tracker"
	"github.com/balkashynov/pomo/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cfg holds the resolved configuration, populated in PersistentPreRunE.
var cfg config.Config

// isTerminal reports whether the TUI can take over the terminal. Tests
// replace it.
var isTerminal = func() bool {
	return term.IsTerminal(os.Stdin.Fd()) && term.IsTerminal(os.Stdout.Fd())
}

var rootCmd = &cobra.Command{
	Use:   "pomo",
	Short: "A pomodoro timer that logs what you worked on",
	Long: `pomo is a terminal pomodoro tracker. It times focused sessions, notices
when the machine slept, nudges you when you've been idle during work hours
and keeps a durable log of every session in SQLite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version":
			return nil
		}
		loaded, err := config.LoadDefault()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		if !isTerminal() {
			return runStatus(cmd, a)
		}
		return tui.RunHome(cmd.Context(), a.tuiDeps(cmd.OutOrStdout()))
	}),
}

// app is everything a command needs once the store is open.
type app struct {
	base    *slog.Logger
	log     *slog.Logger
	logFile io.Closer
	store   *db.Store
	engine  *engine.Engine
	monitor *idle.Monitor
}

// openApp opens the log file and the store and wires the engine to them.
func openApp(ctx context.Context) (*app, error) {
	a := &app{base: logging.Discard()}
	if f, err := logging.OpenFile(cfg.LogPath()); err == nil {
		a.logFile = f
		a.base = logging.NewLogger(logging.Options{Level: cfg.LogLevel, Writer: f})
	}
	a.log = a.logger("cli")

	store, err := db.Open(ctx, cfg.DBPath(), db.Options{Logger: a.logger("db")})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	files := &tracker.Tracker{
		Ignore: cfg.IgnorePatterns,
		Watch:  true,
		Log:    a.logger("tracker"),
	}
	a.engine = engine.New(store, engine.Options{
		Settings: engine.Settings{
			DefaultTargetMinutes:     cfg.DefaultTargetMinutes,
			SleepGapThresholdMinutes: cfg.SleepGapThresholdMinutes,
		},
		Clock: engine.RealClock(),
		Files: engine.SnapshotFunc(func(ctx context.Context, dir string) (engine.ChangeSet, error) {
			snap, err := files.Take(ctx, dir)
			if err != nil {
				return nil, err
			}
			return snap, nil
		}),
		Logger: a.logger("engine"),
	})
	a.monitor = idle.New(idle.Settings{
		WarningMinutes: cfg.IdleWarningMinutes,
		SnoozeMinutes:  cfg.IdleSnoozeMinutes,
		Hours:          cfg,
	})
	return a, nil
}

// logger tags records with the component that wrote them. Every component
// shares the run id of the process.
func (a *app) logger(component string) *slog.Logger {
	return a.base.With("component", component)
}

// Close releases the store and the log file
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing database", "err", err)
		}
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func (a *app) loopSettings() loop.Settings {
	return loop.Settings{
		ExtendMinutes:      cfg.DefaultTargetMinutes,
		LongSessionMinutes: cfg.LongSessionMinutes,
		AutoPauseOnSleep:   cfg.AutoPauseOnSleep,
	}
}

func (a *app) tuiDeps(out io.Writer) tui.Deps {
	deps := tui.Deps{
		Engine:  a.engine,
		Tasks:   a.store,
		Monitor: a.monitor,
		Loop:    a.loopSettings(),
		Logger:  a.logger("tui"),
		Out:     out,
	}
	if cfg.ShowFileTracking {
		if wd, err := os.Getwd(); err == nil {
			deps.WorkingDirectory = wd
		}
	}
	return deps
}

// withApp wraps a command function to open the store first
func withApp(fn func(*cobra.Command, []string, *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command and prints a one-line message for any error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", userMessage(err))
	}
	return err
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetHelpCommand(helpCmd)
}
