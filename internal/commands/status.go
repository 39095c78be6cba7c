package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/pomo/internal/idle"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last session and today's totals",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return runStatus(cmd, a)
	}),
}

func runStatus(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	t := now()

	last, err := a.store.LastCompletedSession(ctx)
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Fprintln(out, "No sessions yet. Start one with 'pomo start'")
	} else {
		name := last.TaskDescription
		if name == "" {
			name = "Unplanned session"
		}
		fmt.Fprintf(out, "⏱️  Last session: %s (%d minutes)\n", name, last.ActualMinutes())
		fmt.Fprintf(out, "Last session ended %d minutes ago\n", int(t.Sub(*last.EndTime)/time.Minute))
	}

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	sessions, err := a.store.GetSessionsInRange(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	total := 0
	for i := range sessions {
		total += sessions[i].ActualMinutes()
	}
	fmt.Fprintf(out, "📊 Today: %d session(s), %d minutes\n", len(sessions), total)

	in, err := idle.ReadInput(ctx, a.engine)
	if err != nil {
		return err
	}
	switch sig := a.monitor.Evaluate(t, in); sig.Kind {
	case idle.Idle:
		fmt.Fprintf(out, "💡 You've been idle for %d minutes. Start a session with 'pomo start'\n", sig.IdleMinutes)
	case idle.FirstRun:
		fmt.Fprintln(out, "💡 Welcome to pomo! Add a task with 'pomo task add' or just run 'pomo start'")
	}
	return nil
}
