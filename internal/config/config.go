package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const configFileName = "config.toml"

// ClockTime is a time of day with minute precision, written as "HH:MM".
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("invalid time format: %q. Expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("invalid time format: %q. Expected HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("invalid time format: %q. Expected HH:MM", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalText implements encoding.TextMarshaler.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// minutes is the offset from midnight.
func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is earlier in the day than o.
func (c ClockTime) Before(o ClockTime) bool {
	return c.minutes() < o.minutes()
}

// Config holds every value resolved once at startup.
type Config struct {
	DataDir string `toml:"data_dir"`

	DefaultTargetMinutes     int `toml:"default_target_minutes"`
	IdleWarningMinutes       int `toml:"idle_warning_minutes"`
	SleepGapThresholdMinutes int `toml:"sleep_gap_threshold_minutes"`
	LongSessionMinutes       int `toml:"long_session_minutes"`
	IdleSnoozeMinutes        int `toml:"idle_snooze_minutes"`

	WorkStart  ClockTime `toml:"work_start"`
	WorkEnd    ClockTime `toml:"work_end"`
	LunchStart ClockTime `toml:"lunch_start"`
	LunchEnd   ClockTime `toml:"lunch_end"`

	AutoPauseOnSleep bool     `toml:"auto_pause_on_sleep"`
	ShowFileTracking bool     `toml:"show_file_tracking"`
	IgnorePatterns   []string `toml:"ignore_patterns"`

	LogLevel string `toml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DefaultTargetMinutes:     25,
		IdleWarningMinutes:       30,
		SleepGapThresholdMinutes: 5,
		LongSessionMinutes:       120,
		IdleSnoozeMinutes:        30,
		WorkStart:                ClockTime{Hour: 9},
		WorkEnd:                  ClockTime{Hour: 17},
		LunchStart:               ClockTime{Hour: 12},
		LunchEnd:                 ClockTime{Hour: 13},
		AutoPauseOnSleep:         true,
		ShowFileTracking:         true,
		IgnorePatterns:           []string{},
		LogLevel:                 "info",
	}
}

// Path returns the location of the config file, honouring XDG_CONFIG_HOME.
func Path() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "pomo", configFileName), nil
}

// Load reads the config file at path (defaults when absent), applies
// environment overrides, fills the data directory and validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &ParseError{Path: path, Err: err}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir, err = defaultDataDir(os.LookupEnv)
		if err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDefault loads from Path().
func LoadDefault() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, fmt.Errorf("resolving config path: %w", err)
	}
	return Load(path)
}

// Validate rejects values the engine cannot work with.
func (c Config) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"default_target_minutes", c.DefaultTargetMinutes},
		{"idle_warning_minutes", c.IdleWarningMinutes},
		{"sleep_gap_threshold_minutes", c.SleepGapThresholdMinutes},
		{"long_session_minutes", c.LongSessionMinutes},
		{"idle_snooze_minutes", c.IdleSnoozeMinutes},
	} {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", f.name, f.value)
		}
	}
	if !c.WorkStart.Before(c.WorkEnd) {
		return fmt.Errorf("work_start %s must be before work_end %s", c.WorkStart, c.WorkEnd)
	}
	if c.LunchEnd.Before(c.LunchStart) {
		return fmt.Errorf("lunch_start %s must not be after lunch_end %s", c.LunchStart, c.LunchEnd)
	}
	return nil
}

// IsWorkHours reports whether t falls inside the work window and outside lunch.
func (c Config) IsWorkHours(t time.Time) bool {
	now := ClockTime{Hour: t.Hour(), Minute: t.Minute()}.minutes()
	if now < c.WorkStart.minutes() || now >= c.WorkEnd.minutes() {
		return false
	}
	if now >= c.LunchStart.minutes() && now < c.LunchEnd.minutes() {
		return false
	}
	return true
}

// DBPath is the SQLite file inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "pomo.db")
}

// LogPath is the structured log file inside the data directory.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "pomo.log")
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
