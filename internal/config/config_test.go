package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// isolateEnv clears every variable Load consults so the host environment
// cannot leak into a test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	for _, key := range []string{
		"POMO_DATA_DIR", "ONEDRIVE_PATH", "OneDriveCommercial", "OneDrive",
		"WORK_START", "WORK_END", "LUNCH_START", "LUNCH_END",
		"DEFAULT_POMODORO_MINUTES", "IDLE_WARNING_MINUTES", "SLEEP_GAP_THRESHOLD_MINUTES",
		"AUTO_PAUSE_ON_SLEEP", "SHOW_FILE_TRACKING", "POMO_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.DefaultTargetMinutes != 25 {
		t.Errorf("DefaultTargetMinutes: want 25, got %d", d.DefaultTargetMinutes)
	}
	if d.IdleWarningMinutes != 30 {
		t.Errorf("IdleWarningMinutes: want 30, got %d", d.IdleWarningMinutes)
	}
	if d.SleepGapThresholdMinutes != 5 {
		t.Errorf("SleepGapThresholdMinutes: want 5, got %d", d.SleepGapThresholdMinutes)
	}
	if d.WorkStart.String() != "09:00" || d.WorkEnd.String() != "17:00" {
		t.Errorf("work hours: got %s-%s", d.WorkStart, d.WorkEnd)
	}
	if d.LunchStart.String() != "12:00" || d.LunchEnd.String() != "13:00" {
		t.Errorf("lunch: got %s-%s", d.LunchStart, d.LunchEnd)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Load(filepath.Join(home, "nope", "config.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultTargetMinutes != 25 {
		t.Errorf("DefaultTargetMinutes: want 25, got %d", cfg.DefaultTargetMinutes)
	}
	if want := filepath.Join(home, ".pomo"); cfg.DataDir != want {
		t.Errorf("DataDir: want %q, got %q", want, cfg.DataDir)
	}
	if cfg.DBPath() != filepath.Join(home, ".pomo", "pomo.db") {
		t.Errorf("DBPath: got %q", cfg.DBPath())
	}
}

func TestLoadReadsTOML(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "config.toml")
	content := `
default_target_minutes = 50
idle_warning_minutes = 45
work_start = "08:30"
work_end = "16:30"
ignore_patterns = ["*.log", "dist"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultTargetMinutes != 50 || cfg.IdleWarningMinutes != 45 {
		t.Errorf("minutes not read: %+v", cfg)
	}
	if cfg.WorkStart != (ClockTime{Hour: 8, Minute: 30}) || cfg.WorkEnd != (ClockTime{Hour: 16, Minute: 30}) {
		t.Errorf("work hours not read: %s-%s", cfg.WorkStart, cfg.WorkEnd)
	}
	if len(cfg.IgnorePatterns) != 2 {
		t.Errorf("ignore patterns: got %v", cfg.IgnorePatterns)
	}
	// Untouched keys keep their defaults.
	if cfg.SleepGapThresholdMinutes != 5 {
		t.Errorf("SleepGapThresholdMinutes: want default 5, got %d", cfg.SleepGapThresholdMinutes)
	}
}

func TestLoadParseError(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte("default_target_minutes = = 3"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.Path != path {
		t.Errorf("ParseError.Path: want %q, got %q", path, parseErr.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	home := isolateEnv(t)
	data := filepath.Join(home, "data")
	t.Setenv("POMO_DATA_DIR", data)
	t.Setenv("WORK_START", "07:45")
	t.Setenv("DEFAULT_POMODORO_MINUTES", "40")
	t.Setenv("AUTO_PAUSE_ON_SLEEP", "off")

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != data {
		t.Errorf("DataDir: want %q, got %q", data, cfg.DataDir)
	}
	if cfg.WorkStart != (ClockTime{Hour: 7, Minute: 45}) {
		t.Errorf("WorkStart: got %s", cfg.WorkStart)
	}
	if cfg.DefaultTargetMinutes != 40 {
		t.Errorf("DefaultTargetMinutes: got %d", cfg.DefaultTargetMinutes)
	}
	if cfg.AutoPauseOnSleep {
		t.Error("AUTO_PAUSE_ON_SLEEP=off should disable auto pause")
	}
}

func TestLoadRejectsBadEnvTime(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("LUNCH_START", "noon")

	if _, err := Load(filepath.Join(home, "missing.toml")); err == nil {
		t.Fatal("expected error for malformed LUNCH_START")
	}
}

func TestDefaultDataDirPrefersSyncFolder(t *testing.T) {
	home := isolateEnv(t)
	sync := filepath.Join(home, "OneDrive - Corp")
	if err := os.MkdirAll(sync, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OneDriveCommercial", sync)
	t.Setenv("OneDrive", filepath.Join(home, "does-not-exist"))

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(sync, "PomodoroTracker"); cfg.DataDir != want {
		t.Errorf("DataDir: want %q, got %q", want, cfg.DataDir)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.DefaultTargetMinutes = 0 }},
		{"negative idle", func(c *Config) { c.IdleWarningMinutes = -1 }},
		{"zero gap threshold", func(c *Config) { c.SleepGapThresholdMinutes = 0 }},
		{"inverted work hours", func(c *Config) { c.WorkStart, c.WorkEnd = c.WorkEnd, c.WorkStart }},
		{"inverted lunch", func(c *Config) { c.LunchStart, c.LunchEnd = c.LunchEnd, c.LunchStart }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseClockTime(t *testing.T) {
	valid := map[string]ClockTime{
		"09:00": {Hour: 9},
		"7:05":  {Hour: 7, Minute: 5},
		"23:59": {Hour: 23, Minute: 59},
	}
	for in, want := range valid {
		got, err := ParseClockTime(in)
		if err != nil || got != want {
			t.Errorf("ParseClockTime(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		if _, err := ParseClockTime(in); err == nil {
			t.Errorf("ParseClockTime(%q): expected error", in)
		}
	}
}

func TestIsWorkHours(t *testing.T) {
	cfg := Defaults()
	day := func(h, m int) time.Time { return time.Date(2026, 3, 4, h, m, 0, 0, time.Local) }

	tests := []struct {
		at   time.Time
		want bool
	}{
		{day(8, 59), false},
		{day(9, 0), true},
		{day(11, 59), true},
		{day(12, 0), false},
		{day(12, 15), false},
		{day(13, 0), true},
		{day(13, 15), true},
		{day(16, 59), true},
		{day(17, 0), false},
		{day(22, 0), false},
	}
	for _, tt := range tests {
		if got := cfg.IsWorkHours(tt.at); got != tt.want {
			t.Errorf("IsWorkHours(%s) = %v, want %v", tt.at.Format("15:04"), got, tt.want)
		}
	}
}

// Work hours are the half-open work window minus the half-open lunch window.
func TestIsWorkHoursProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := rapid.IntRange(0, 22*60).Draw(t, "workStart")
		we := rapid.IntRange(ws+1, 24*60-1).Draw(t, "workEnd")
		ls := rapid.IntRange(ws, we).Draw(t, "lunchStart")
		le := rapid.IntRange(ls, we).Draw(t, "lunchEnd")
		at := rapid.IntRange(0, 24*60-1).Draw(t, "at")

		clock := func(m int) ClockTime { return ClockTime{Hour: m / 60, Minute: m % 60} }
		cfg := Defaults()
		cfg.WorkStart, cfg.WorkEnd = clock(ws), clock(we)
		cfg.LunchStart, cfg.LunchEnd = clock(ls), clock(le)

		now := time.Date(2026, 1, 5, at/60, at%60, 30, 0, time.Local)
		want := at >= ws && at < we && !(at >= ls && at < le)
		if got := cfg.IsWorkHours(now); got != want {
			t.Fatalf("IsWorkHours(%s) with %s-%s lunch %s-%s = %v, want %v",
				now.Format("15:04"), cfg.WorkStart, cfg.WorkEnd, cfg.LunchStart, cfg.LunchEnd, got, want)
		}
	})
}
