package commands

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/balkashynov/pomo/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if dump, _ := cmd.Flags().GetBool("toml"); dump {
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = out.Write(data)
			return err
		}

		path, err := config.Path()
		if err != nil {
			path = "unknown"
		}
		fmt.Fprintln(out, "Configuration:")
		fmt.Fprintf(out, "Config file: %s\n", path)
		fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "Database: %s\n", cfg.DBPath())
		fmt.Fprintf(out, "Log: %s\n", cfg.LogPath())
		fmt.Fprintf(out, "Work hours: %s - %s\n", cfg.WorkStart, cfg.WorkEnd)
		fmt.Fprintf(out, "Lunch: %s - %s\n", cfg.LunchStart, cfg.LunchEnd)
		fmt.Fprintf(out, "Default pomodoro: %d minutes\n", cfg.DefaultTargetMinutes)
		fmt.Fprintf(out, "Idle warning: %d minutes\n", cfg.IdleWarningMinutes)
		fmt.Fprintf(out, "Sleep gap threshold: %d minutes\n", cfg.SleepGapThresholdMinutes)
		fmt.Fprintf(out, "Long session warning: %d minutes\n", cfg.LongSessionMinutes)
		fmt.Fprintf(out, "Auto-pause on sleep: %t\n", cfg.AutoPauseOnSleep)
		fmt.Fprintf(out, "File tracking: %t\n", cfg.ShowFileTracking)
		return nil
	},
}

func init() {
	configCmd.Flags().Bool("toml", false, "Print the configuration as TOML")
}
