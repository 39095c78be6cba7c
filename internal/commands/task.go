package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/pomo/internal/db"
	"github.com/balkashynov/pomo/internal/models"
	"github.com/balkashynov/pomo/internal/parser"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the tasks sessions are logged against",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new task",
	Long: `Create a new task. The name may carry inline metadata:

  ABC-123       Quick reference (auto-detected, normalized to upper case)
  due:3days     Due date (dd/mm/yyyy, today, tomorrow, X days, X hours, X weeks)
  https://...   Link to the task in its tracker

Flags win over inline metadata.

Example:
  pomo task add "Fix login redirect WEB-42 due:2days"`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runTaskAdd),
}

var taskListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks, most recently worked first",
	Args:    cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		recent, _ := cmd.Flags().GetInt("recent")
		var tasks []models.Task
		var err error
		if recent > 0 {
			tasks, err = a.store.RecentTasks(cmd.Context(), recent)
		} else {
			tasks, err = a.store.ListTasks(cmd.Context())
		}
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks found. Use 'pomo task add \"task name\"' to create your first task.")
			return nil
		}
		printTaskTable(cmd.OutOrStdout(), tasks)
		return nil
	}),
}

var taskShowCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Show a task and its latest sessions",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		task, err := a.store.ResolveTask(ctx, args[0])
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("task not found: %s", args[0])
		}
		if err != nil {
			return err
		}
		printTask(out, task)

		sessions, err := a.store.GetTaskSessions(ctx, task.ID, 5)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "\nNo sessions logged yet")
			return nil
		}
		fmt.Fprintln(out, "\nRecent sessions:")
		for i := range sessions {
			fmt.Fprintf(out, "  %s  %s\n", sessions[i].StartTime.Format("Jan 02 15:04"), sessionSummary(&sessions[i]))
		}
		return nil
	}),
}

var taskSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search tasks by name, quick ref, external id or notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		term := strings.Join(args, " ")
		tasks, err := a.store.SearchTasks(cmd.Context(), term)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No tasks found matching '%s'\n", term)
			return nil
		}
		printTaskTable(cmd.OutOrStdout(), tasks)
		return nil
	}),
}

func init() {
	taskAddCmd.Flags().String("ref", "", "Quick reference, e.g. ABC-123")
	taskAddCmd.Flags().String("url", "", "Link to the task")
	taskAddCmd.Flags().String("id", "", "External task ID")
	taskAddCmd.Flags().String("source", "", "Where the task comes from: planner|todo|local")
	taskAddCmd.Flags().String("notes", "", "Additional notes")
	taskAddCmd.Flags().String("due", "", "Due date (dd/mm/yyyy, today, tomorrow, 3 days, 4h, 2w)")

	taskListCmd.Flags().Int("recent", 0, "Only the N most recently worked tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskSearchCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string, a *app) error {
	t := now()
	parsed := parser.ParseTaskName(strings.Join(args, " "), t)
	if len(parsed.Errors) > 0 {
		return errors.New(strings.Join(parsed.Errors, ", "))
	}

	req := db.CreateTaskRequest{
		Name:     parsed.Name,
		QuickRef: parsed.QuickRef,
		URL:      parsed.URL,
		DueDate:  parsed.DueDate,
	}
	flags := cmd.Flags()
	if v, _ := flags.GetString("ref"); v != "" {
		req.QuickRef = v
	}
	if v, _ := flags.GetString("url"); v != "" {
		req.URL = v
	}
	req.ExternalID, _ = flags.GetString("id")
	req.Source, _ = flags.GetString("source")
	req.Notes, _ = flags.GetString("notes")
	if v, _ := flags.GetString("due"); v != "" {
		due, err := parser.ParseDueDate(v, t)
		if err != nil {
			return fmt.Errorf("parsing due date: %w", err)
		}
		req.DueDate = due
	}
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("task name is required")
	}

	task, err := a.store.CreateTask(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Task created: %s\n", task.DisplayName())
	fmt.Fprintf(out, "   ID: #%d\n", task.ID)
	if task.DueDate != nil {
		fmt.Fprintf(out, "   %s\n", parser.FormatDueDate(task.DueDate, t))
	}
	if task.URL != "" {
		fmt.Fprintf(out, "   URL: %s\n", task.URL)
	}
	return nil
}

func printTaskTable(out io.Writer, tasks []models.Task) {
	fmt.Fprintf(out, "%-4s %-10s %-40s %-12s %s\n", "ID", "REF", "NAME", "LAST WORKED", "DUE")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	t := now()
	for i := range tasks {
		task := &tasks[i]
		ref := "-"
		if task.QuickRef != nil {
			ref = *task.QuickRef
		}
		name := task.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		worked := "never"
		if task.LastWorked != nil {
			worked = task.LastWorked.Format("Jan 02")
		}
		due := ""
		if task.DueDate != nil {
			due = parser.FormatDueDate(task.DueDate, t)
		}
		fmt.Fprintf(out, "%-4d %-10s %-40s %-12s %s\n", task.ID, ref, name, worked, due)
	}
}

func printTask(out io.Writer, task *models.Task) {
	fmt.Fprintf(out, "#%d %s\n", task.ID, task.DisplayName())
	fmt.Fprintf(out, "  Source: %s\n", task.Source)
	if task.ExternalID != "" {
		fmt.Fprintf(out, "  External ID: %s\n", task.ExternalID)
	}
	if task.URL != "" {
		fmt.Fprintf(out, "  URL: %s\n", task.URL)
	}
	if task.DueDate != nil {
		fmt.Fprintf(out, "  %s\n", parser.FormatDueDate(task.DueDate, now()))
	}
	if task.Notes != "" {
		fmt.Fprintf(out, "  Notes: %s\n", task.Notes)
	}
	fmt.Fprintf(out, "  Created: %s\n", task.CreatedDate.Format("Jan 02, 2006"))
	if task.LastWorked != nil {
		fmt.Fprintf(out, "  Last worked: %s\n", task.LastWorked.Format("Jan 02, 2006 15:04"))
	}
}

// sessionSummary is one line per session: minutes, status and outcome.
func sessionSummary(s *models.Session) string {
	var line string
	switch s.Status {
	case models.StatusCompleted:
		line = fmt.Sprintf("%3dm", s.ActualMinutes())
	case models.StatusCancelled:
		line = "cancelled"
	default:
		line = "running"
	}
	if s.Outcome != "" {
		line += "  " + s.Outcome
	} else if s.Intent != "" {
		line += "  (" + s.Intent + ")"
	}
	return line
}
