package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// lookupFunc matches os.LookupEnv so tests can supply their own environment.
type lookupFunc func(key string) (string, bool)

// applyEnv overrides file values with environment variables. Variable names
// are shared with the .env files users already keep for the tracker.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	if v, ok := lookup("POMO_DATA_DIR"); ok && v != "" {
		cfg.DataDir = v
	}

	clocks := []struct {
		key string
		dst *ClockTime
	}{
		{"WORK_START", &cfg.WorkStart},
		{"WORK_END", &cfg.WorkEnd},
		{"LUNCH_START", &cfg.LunchStart},
		{"LUNCH_END", &cfg.LunchEnd},
	}
	for _, c := range clocks {
		v, ok := lookup(c.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := ParseClockTime(v)
		if err != nil {
			return fmt.Errorf("%s: %w", c.key, err)
		}
		*c.dst = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"DEFAULT_POMODORO_MINUTES", &cfg.DefaultTargetMinutes},
		{"IDLE_WARNING_MINUTES", &cfg.IdleWarningMinutes},
		{"SLEEP_GAP_THRESHOLD_MINUTES", &cfg.SleepGapThresholdMinutes},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", i.key, v)
		}
		*i.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"AUTO_PAUSE_ON_SLEEP", &cfg.AutoPauseOnSleep},
		{"SHOW_FILE_TRACKING", &cfg.ShowFileTracking},
	}
	for _, b := range bools {
		if v, ok := lookup(b.key); ok && v != "" {
			*b.dst = parseBool(v)
		}
	}

	if v, ok := lookup("POMO_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// defaultDataDir prefers a synced folder (OneDrive) so history follows the
// user between machines, then falls back to ~/.pomo.
func defaultDataDir(lookup lookupFunc) (string, error) {
	for _, key := range []string{"ONEDRIVE_PATH", "OneDriveCommercial", "OneDrive"} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		if info, err := os.Stat(v); err == nil && info.IsDir() {
			return filepath.Join(v, "PomodoroTracker"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".pomo"), nil
}
