package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/pomo/internal/db"
	"github.com/balkashynov/pomo/internal/engine"
	"github.com/balkashynov/pomo/internal/loop"
	"github.com/balkashynov/pomo/internal/models"
	"github.com/balkashynov/pomo/internal/tracker"
	"github.com/balkashynov/pomo/internal/tui"
)

// now is the clock commands print against. Tests replace it.
var now = time.Now

var startCmd = &cobra.Command{
	Use:   "start [task-ref]",
	Short: "Start a focus session",
	Long: `Start a focus session, optionally against a task. Opens the live timer by
default; --no-ui runs a plain line-based timer instead.

Examples:
  pomo start                          # Unplanned session
  pomo start ABC-12 -i "fix redirect" # Session on task ABC-12
  pomo start 4 --target 50 --no-ui    # Task #4, 50 minute target, no TUI`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(runStart),
}

func init() {
	startCmd.Flags().StringP("intent", "i", "", "What you are trying to accomplish")
	startCmd.Flags().IntP("target", "t", 0, "Target minutes (default from config)")
	startCmd.Flags().Bool("track", true, "Track files changed in the working directory")
	startCmd.Flags().String("dir", "", "Directory to track (default: current directory)")
	startCmd.Flags().Bool("no-ui", false, "Run without the interactive timer")
}

func runStart(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	intent, _ := cmd.Flags().GetString("intent")
	target, _ := cmd.Flags().GetInt("target")
	if target < 0 {
		return engine.ErrInvalidMinutes
	}

	var task *models.Task
	if len(args) == 1 {
		t, err := a.store.ResolveTask(ctx, args[0])
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("task not found: %s", args[0])
		}
		if err != nil {
			return err
		}
		task = t
	}

	dir, err := trackedDir(cmd)
	if err != nil {
		return err
	}

	session, err := a.engine.Start(ctx, engine.StartOptions{
		Task:             task,
		Intent:           intent,
		WorkingDirectory: dir,
		TargetMinutes:    target,
	})
	if err != nil {
		return err
	}

	breakAt := session.StartTime.Add(time.Duration(session.TargetMinutes) * time.Minute)
	fmt.Fprintf(out, "🍅 Session started at %s\n", session.StartTime.Format("15:04"))
	fmt.Fprintf(out, "   Target: %d minutes (break at %s)\n", session.TargetMinutes, breakAt.Format("15:04"))
	if task != nil {
		fmt.Fprintf(out, "   Task: %s\n", task.DisplayName())
		printRecentSessions(ctx, out, a, task.ID, 3)
	}
	if dir != "" {
		fmt.Fprintf(out, "   Tracking: %s\n", dir)
	}

	noUI, _ := cmd.Flags().GetBool("no-ui")
	if noUI || !isTerminal() {
		return runLineLoop(ctx, cmd, a)
	}
	_, err = tui.RunTimer(ctx, a.tuiDeps(out), task)
	return err
}

// trackedDir is the directory to watch, empty when tracking is off.
func trackedDir(cmd *cobra.Command) (string, error) {
	track := cfg.ShowFileTracking
	if cmd.Flags().Changed("track") {
		track, _ = cmd.Flags().GetBool("track")
	}
	if !track {
		return "", nil
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return wd, nil
}

func printRecentSessions(ctx context.Context, out io.Writer, a *app, taskID uint, limit int) {
	sessions, err := a.store.GetTaskSessions(ctx, taskID, limit+1)
	if err != nil {
		a.log.Warn("listing task sessions", "task", taskID, "err", err)
		return
	}
	var shown int
	for _, s := range sessions {
		if s.IsActive() || shown == limit {
			continue
		}
		if shown == 0 {
			fmt.Fprintln(out, "   Recent sessions:")
		}
		fmt.Fprintf(out, "     %s  %s\n", s.StartTime.Format("Jan 02 15:04"), sessionSummary(&s))
		shown++
	}
}

// runLineLoop drives the session with plain text prompts. SIGINT opens the
// interrupt menu instead of killing the process.
func runLineLoop(ctx context.Context, cmd *cobra.Command, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l := loop.New(a.engine, a.loopSettings(), nil)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case <-sigs:
				l.Interrupt()
			case <-ctx.Done():
				return
			}
		}
	}()

	out := cmd.OutOrStdout()
	res, err := l.Run(ctx, newLineDriver(cmd.InOrStdin(), out), time.Second)
	if err != nil {
		return err
	}
	if s := res.Ended; s != nil {
		if files := s.Files(); len(files) > 0 {
			fmt.Fprintf(out, "   Files: %s\n", tracker.Format(files, 5))
		}
	}
	return nil
}

// lineDriver is the loop.Driver for --no-ui: one status line per minute
// and single-key prompts read from stdin.
type lineDriver struct {
	out        io.Writer
	lines      <-chan string
	lastMinute int
}

func newLineDriver(in io.Reader, out io.Writer) *lineDriver {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &lineDriver{out: out, lines: lines, lastMinute: -1}
}

func (d *lineDriver) Render(v engine.View) {
	if v.ElapsedMinutes == d.lastMinute {
		return
	}
	d.lastMinute = v.ElapsedMinutes
	left := fmt.Sprintf("%dm left", v.RemainingMinutes)
	if v.Overtime {
		left = fmt.Sprintf("+%dm over", v.ElapsedMinutes-v.TargetMinutes)
	}
	fmt.Fprintf(d.out, "⏱️  %dm elapsed · %s\n", v.ElapsedMinutes, left)
}

// Ask prints the menu and reads a key. An empty line picks the default.
// Once input is closed the first option that ends the session is chosen.
func (d *lineDriver) Ask(ctx context.Context, m loop.Menu) (string, string, error) {
	fmt.Fprintf(d.out, "\n%s\n%s\n", m.Title, m.Prompt)
	for _, o := range m.Options {
		fmt.Fprintf(d.out, "  [%s] %s\n", o.Key, o.Label)
	}
	fmt.Fprintf(d.out, "Choice [%s]: ", m.Default)

	line, ok, err := d.readLine(ctx)
	if err != nil {
		return "", "", err
	}
	if !ok {
		for _, o := range m.Options {
			if o.NeedsOutcome {
				fmt.Fprintln(d.out, o.Key)
				return o.Key, "", nil
			}
		}
		return m.Default, "", nil
	}

	key := strings.ToLower(strings.TrimSpace(line))
	if key == "" {
		key = m.Default
	}
	for _, o := range m.Options {
		if o.Key != key || !o.NeedsOutcome {
			continue
		}
		fmt.Fprint(d.out, "What did you actually accomplish? ")
		outcome, _, err := d.readLine(ctx)
		if err != nil {
			return "", "", err
		}
		return key, strings.TrimSpace(outcome), nil
	}
	return key, "", nil
}

func (d *lineDriver) Notify(msg string) {
	fmt.Fprintf(d.out, "✅ %s\n", msg)
}

func (d *lineDriver) Warn(msg string) {
	fmt.Fprintf(d.out, "⚠️  %s\n", msg)
}

// readLine waits for the next input line. ok is false once input is closed.
func (d *lineDriver) readLine(ctx context.Context) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok := <-d.lines:
		return line, ok, nil
	}
}
