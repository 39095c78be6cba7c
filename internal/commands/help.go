package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for pomo",
	Long:  `Display detailed help for all pomo commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		showCustomHelp(cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pomo %s (commit %s, built %s)\n", version, commit, date)
	},
}

func showCustomHelp(out io.Writer) {
	fmt.Fprint(out, `
██████╗  ██████╗ ███╗   ███╗ ██████╗
██╔══██╗██╔═══██╗████╗ ████║██╔═══██╗
██████╔╝██║   ██║██╔████╔██║██║   ██║
██╔═══╝ ██║   ██║██║╚██╔╝██║██║   ██║
██║     ╚██████╔╝██║ ╚═╝ ██║╚██████╔╝
╚═╝      ╚═════╝ ╚═╝     ╚═╝ ╚═════╝

pomo - pomodoro timer + work log

COMMANDS:

  pomo                    Home screen: idle nudges, recent tasks, new session
                          (prints status when not on a terminal)

  start [task-ref]        Start a focus session
    -i, --intent          What you are trying to accomplish
    -t, --target          Target minutes (default 25)
    --track               Track changed files (default from config)
    --dir                 Directory to track (default: current directory)
    --no-ui               Plain line-based timer

    While running:
      s             Stop and log (asks for the outcome)
      e             Extend by one pomodoro
      x             Cancel without logging
      ctrl+c        Open the session menu

  status                  Last session, minutes since and today's totals

  task add <name>         Create a task
    --ref                 Quick reference (ABC-123)
    --url                 Link to the task
    --id                  External task ID
    --source              planner|todo|local
    --notes               Additional notes
    --due                 Due date (dd/mm/yyyy, today, 3 days, 4h, 2w)

    Smart syntax:
      ABC-123       Quick reference
      due:3days     Due date

    Example:
      pomo task add "Fix login redirect WEB-42 due:2days"

  task ls                 List tasks (--recent N for the latest)
  task show <ref>         Task details and latest sessions
  task search <term>      Search tasks

  config                  Show the resolved configuration (--toml to dump it)
  version                 Print the version
  help                    Show this help

`)
}
