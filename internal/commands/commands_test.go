package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/balkashynov/pomo/internal/config"
	"github.com/balkashynov/pomo/internal/db"
	"github.com/balkashynov/pomo/internal/engine"
	"github.com/balkashynov/pomo/internal/loop"
	"github.com/balkashynov/pomo/internal/models"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// resetFlags puts every flag back to its default so values from one run do
// not leak into the next.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// setupEnv points config and data at temp dirs and freezes the clock.
func setupEnv(t *testing.T, at time.Time) string {
	t.Helper()
	tmp := t.TempDir()
	data := filepath.Join(tmp, "data")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("POMO_DATA_DIR", data)
	for _, key := range []string{
		"WORK_START", "WORK_END", "LUNCH_START", "LUNCH_END",
		"DEFAULT_POMODORO_MINUTES", "IDLE_WARNING_MINUTES", "SLEEP_GAP_THRESHOLD_MINUTES",
		"AUTO_PAUSE_ON_SLEEP", "SHOW_FILE_TRACKING", "POMO_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	prevNow, prevTerm := now, isTerminal
	now = func() time.Time { return at }
	isTerminal = func() bool { return false }
	t.Cleanup(func() {
		now, isTerminal = prevNow, prevTerm
		resetFlags(rootCmd)
	})
	resetFlags(rootCmd)
	return data
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags(rootCmd)
	out, err := executeCommand(rootCmd, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

var afternoon = time.Date(2026, 3, 4, 14, 0, 0, 0, time.Local)

func TestTaskAddParsesInlineMetadata(t *testing.T) {
	setupEnv(t, afternoon)

	out := run(t, "task", "add", "Fix login WEB-42 due:2days")
	if !strings.Contains(out, "✅ Task created: Fix login (WEB-42)") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "📅 Due 06/03/2026 (in 2 days)") {
		t.Errorf("due date missing:\n%s", out)
	}

	out = run(t, "task", "show", "web-42")
	if !strings.Contains(out, "#1 Fix login (WEB-42)") || !strings.Contains(out, "No sessions logged yet") {
		t.Errorf("unexpected show output:\n%s", out)
	}
}

func TestTaskAddFlagsWin(t *testing.T) {
	setupEnv(t, afternoon)

	out := run(t, "task", "add", "Write docs ABC-1", "--ref", "doc-7", "--source", "todo", "--notes", "api section")
	if !strings.Contains(out, "Write docs (DOC-7)") {
		t.Errorf("flag ref should win:\n%s", out)
	}
	out = run(t, "task", "show", "#1")
	if !strings.Contains(out, "Source: todo") || !strings.Contains(out, "Notes: api section") {
		t.Errorf("unexpected show output:\n%s", out)
	}
}

func TestTaskAddErrors(t *testing.T) {
	setupEnv(t, afternoon)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"only a ref", []string{"task", "add", "WEB-1"}, "task name is required"},
		{"bad source", []string{"task", "add", "Thing", "--source", "jira"}, "invalid task source"},
		{"bad due flag", []string{"task", "add", "Thing", "--due", "someday"}, "parsing due date"},
		{"bad inline due", []string{"task", "add", "Thing due:later"}, "Invalid due date 'later'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			_, err := executeCommand(rootCmd, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("want error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTaskListAndSearch(t *testing.T) {
	setupEnv(t, afternoon)

	out := run(t, "task", "ls")
	if !strings.Contains(out, "No tasks found") {
		t.Errorf("empty list:\n%s", out)
	}

	run(t, "task", "add", "Fix login WEB-42")
	run(t, "task", "add", "Quarterly report", "--notes", "finance numbers")

	out = run(t, "task", "ls")
	for _, want := range []string{"LAST WORKED", "Fix login", "Quarterly report", "WEB-42", "never"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}

	out = run(t, "task", "search", "finance")
	if !strings.Contains(out, "Quarterly report") || strings.Contains(out, "Fix login") {
		t.Errorf("search by notes:\n%s", out)
	}
	out = run(t, "task", "search", "nothing here")
	if !strings.Contains(out, "No tasks found matching 'nothing here'") {
		t.Errorf("search miss:\n%s", out)
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	setupEnv(t, afternoon)

	resetFlags(rootCmd)
	_, err := executeCommand(rootCmd, "start", "NOPE-1", "--no-ui")
	if err == nil || err.Error() != "task not found: NOPE-1" {
		t.Fatalf("unknown task: %v", err)
	}

	resetFlags(rootCmd)
	_, err = executeCommand(rootCmd, "start", "--target", "-5", "--no-ui")
	if !errors.Is(err, engine.ErrInvalidMinutes) {
		t.Fatalf("negative target: %v", err)
	}
}

func TestStatusCountsToday(t *testing.T) {
	data := setupEnv(t, afternoon)
	ctx := context.Background()

	st, err := db.Open(ctx, filepath.Join(data, "pomo.db"), db.Options{})
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	logSession := func(start time.Time, minutes int, paused int) {
		t.Helper()
		s := &models.Session{StartTime: start, TargetMinutes: 25, TaskDescription: "Fix login (WEB-42)"}
		if err := st.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		if paused > 0 {
			if err := st.SetPausedDuration(ctx, s.ID, paused); err != nil {
				t.Fatalf("SetPausedDuration: %v", err)
			}
		}
		end := start.Add(time.Duration(minutes) * time.Minute)
		if _, err := st.CompleteSession(ctx, s.ID, end, minutes, "done", ""); err != nil {
			t.Fatalf("CompleteSession: %v", err)
		}
	}
	yesterday := afternoon.AddDate(0, 0, -1)
	logSession(yesterday, 50, 0)
	logSession(time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local), 30, 0)
	logSession(time.Date(2026, 3, 4, 11, 0, 0, 0, time.Local), 35, 10)
	_ = st.Close()

	out := run(t, "status")
	for _, want := range []string{
		"⏱️  Last session: Fix login (WEB-42) (25 minutes)",
		"Last session ended 145 minutes ago",
		"📊 Today: 2 session(s), 55 minutes",
		"💡 You've been idle for 145 minutes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestStatusFirstRun(t *testing.T) {
	setupEnv(t, time.Date(2026, 3, 4, 21, 0, 0, 0, time.Local))

	out := run(t, "status")
	if !strings.Contains(out, "No sessions yet") || !strings.Contains(out, "Welcome to pomo!") {
		t.Errorf("unexpected output:\n%s", out)
	}

	// Without a terminal the bare command prints the same status.
	if got := run(t); !strings.Contains(got, "📊 Today: 0 session(s), 0 minutes") {
		t.Errorf("bare command:\n%s", got)
	}
}

func TestConfigCommand(t *testing.T) {
	data := setupEnv(t, afternoon)
	t.Setenv("WORK_START", "08:30")

	out := run(t, "config")
	for _, want := range []string{
		"Work hours: 08:30 - 17:00",
		"Lunch: 12:00 - 13:00",
		"Default pomodoro: 25 minutes",
		"Database: " + filepath.Join(data, "pomo.db"),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("config missing %q:\n%s", want, out)
		}
	}

	out = run(t, "config", "--toml")
	if !strings.Contains(out, "work_start") || !strings.Contains(out, "08:30") {
		t.Errorf("toml dump:\n%s", out)
	}
}

func TestConfigParseErrorMessage(t *testing.T) {
	setupEnv(t, afternoon)
	path, err := config.Path()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("default_target_minutes = ["), 0o644); err != nil {
		t.Fatal(err)
	}

	resetFlags(rootCmd)
	_, err = executeCommand(rootCmd, "status")
	var parseErr *config.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want ParseError, got %v", err)
	}
	if msg := userMessage(err); !strings.HasSuffix(msg, "Fix or remove the file and try again") {
		t.Errorf("message = %q", msg)
	}
}

func TestVersionAndHelp(t *testing.T) {
	setupEnv(t, afternoon)
	SetVersion("1.2.3", "abc123", "2026-03-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	if out := run(t, "version"); out != "pomo 1.2.3 (commit abc123, built 2026-03-01)\n" {
		t.Errorf("version = %q", out)
	}
	if out := run(t, "help"); !strings.Contains(out, "start [task-ref]") {
		t.Errorf("help output:\n%s", out)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{engine.ErrAlreadyActive, "A session is already active"},
		{fmt.Errorf("extend: %w", engine.ErrNoActiveSession), "No active session"},
		{&db.LockedError{Op: "create session", Attempts: 3}, "The database is locked"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); !strings.HasPrefix(got, tt.want) {
			t.Errorf("userMessage(%v) = %q, want prefix %q", tt.err, got, tt.want)
		}
	}
}

func TestLineDriverAsk(t *testing.T) {
	menu := loop.Menu{
		Title:  "Pomodoro complete: 25 minutes",
		Prompt: "What next?",
		Options: []loop.Option{
			{Key: "d", Label: "Done, log it", NeedsOutcome: true},
			{Key: "c", Label: "Continue (+25 min)"},
		},
		Default: "d",
	}
	tests := []struct {
		name        string
		input       string
		wantKey     string
		wantOutcome string
	}{
		{"plain choice", "c\n", "c", ""},
		{"upper case", "C\n", "c", ""},
		{"default asks outcome", "\nshipped it\n", "d", "shipped it"},
		{"closed input stops", "", "d", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d := newLineDriver(strings.NewReader(tt.input), &out)
			key, outcome, err := d.Ask(context.Background(), menu)
			if err != nil {
				t.Fatalf("Ask: %v", err)
			}
			if key != tt.wantKey || outcome != tt.wantOutcome {
				t.Errorf("got (%q, %q), want (%q, %q)", key, outcome, tt.wantKey, tt.wantOutcome)
			}
			if !strings.Contains(out.String(), "[c] Continue (+25 min)") {
				t.Errorf("menu not printed:\n%s", out.String())
			}
		})
	}
}

func TestLineDriverRendersOncePerMinute(t *testing.T) {
	var out bytes.Buffer
	d := newLineDriver(strings.NewReader(""), &out)

	d.Render(engine.View{Active: true, ElapsedMinutes: 0, RemainingMinutes: 25, TargetMinutes: 25})
	d.Render(engine.View{Active: true, ElapsedMinutes: 0, RemainingMinutes: 25, TargetMinutes: 25})
	d.Render(engine.View{Active: true, ElapsedMinutes: 27, TargetMinutes: 25, Overtime: true})

	want := "⏱️  0m elapsed · 25m left\n⏱️  27m elapsed · +2m over\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestLineDriverSeparatesFailures(t *testing.T) {
	var out bytes.Buffer
	d := newLineDriver(strings.NewReader(""), &out)

	d.Notify("Session logged: 25 minutes")
	d.Warn("failed to stop session: database locked")

	want := "✅ Session logged: 25 minutes\n⚠️  failed to stop session: database locked\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}
