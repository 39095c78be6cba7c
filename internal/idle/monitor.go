// Package idle decides when to nudge the user to start a session. It only
// reads session state; starting a session is left to the caller.
package idle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/balkashynov/pomo/internal/logging"
)

// Kind classifies a Signal.
type Kind int

const (
	None Kind = iota
	// Idle means no session has run for at least the warning threshold.
	Idle
	// FirstRun means no session was ever completed.
	FirstRun
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case FirstRun:
		return "first-run"
	default:
		return "none"
	}
}

// Signal is the outcome of one evaluation.
type Signal struct {
	Kind        Kind
	IdleMinutes int
	At          time.Time
}

// Input is the session state an evaluation looks at.
type Input struct {
	Active           bool
	LastCompletedEnd time.Time
	// HasCompleted is false when no session was ever completed.
	HasCompleted bool
}

// WorkHours reports whether nudging is appropriate at a given time.
// config.Config implements it.
type WorkHours interface {
	IsWorkHours(t time.Time) bool
}

// Settings configure a Monitor.
type Settings struct {
	WarningMinutes int
	SnoozeMinutes  int
	Hours          WorkHours
}

// Monitor applies the idle policy. Safe for concurrent use.
type Monitor struct {
	mu           sync.Mutex
	warning      time.Duration
	snooze       time.Duration
	hours        WorkHours
	nextEligible time.Time
	firstRunSent bool
}

const checkInterval = time.Minute

// New creates a Monitor. A nil Hours treats every moment as work hours.
func New(s Settings) *Monitor {
	if s.WarningMinutes <= 0 {
		s.WarningMinutes = 30
	}
	if s.SnoozeMinutes <= 0 {
		s.SnoozeMinutes = 30
	}
	return &Monitor{
		warning: time.Duration(s.WarningMinutes) * time.Minute,
		snooze:  time.Duration(s.SnoozeMinutes) * time.Minute,
		hours:   s.Hours,
	}
}

// Evaluate decides whether to prompt at now. Outside work hours nothing is
// consumed; inside them at most one idle check runs per minute.
func (m *Monitor) Evaluate(now time.Time, in Input) Signal {
	m.mu.Lock()
	defer m.mu.Unlock()

	none := Signal{Kind: None, At: now}
	if in.Active {
		return none
	}
	if !in.HasCompleted {
		if m.firstRunSent {
			return none
		}
		m.firstRunSent = true
		return Signal{Kind: FirstRun, At: now}
	}
	if m.hours != nil && !m.hours.IsWorkHours(now) {
		return none
	}
	if now.Before(m.nextEligible) {
		return none
	}
	m.nextEligible = now.Add(checkInterval)

	idle := now.Sub(in.LastCompletedEnd)
	if idle < m.warning {
		return none
	}
	return Signal{Kind: Idle, IdleMinutes: int(idle / time.Minute), At: now}
}

// Snooze suppresses idle signals until the given instant.
func (m *Monitor) Snooze(until time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if until.After(m.nextEligible) {
		m.nextEligible = until
	}
}

// SnoozeFrom snoozes for the configured duration and returns when prompts resume.
func (m *Monitor) SnoozeFrom(now time.Time) time.Time {
	until := now.Add(m.snooze)
	m.Snooze(until)
	return until
}

// Source is what Watch polls. *engine.Engine implements it.
type Source interface {
	Active() bool
	LastCompletedEnd(ctx context.Context) (time.Time, bool, error)
}

// ReadInput builds an Input from src.
func ReadInput(ctx context.Context, src Source) (Input, error) {
	if src.Active() {
		return Input{Active: true}, nil
	}
	end, ok, err := src.LastCompletedEnd(ctx)
	if err != nil {
		return Input{}, err
	}
	return Input{LastCompletedEnd: end, HasCompleted: ok}, nil
}

// WatchOptions tune Watch. Zero values poll every minute on the real clock.
type WatchOptions struct {
	Interval time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// Watch polls src in a goroutine and delivers every non-None signal. The
// channel closes when ctx is done. Store errors are logged and skipped.
func (m *Monitor) Watch(ctx context.Context, src Source, opts WatchOptions) <-chan Signal {
	interval := opts.Interval
	if interval <= 0 {
		interval = checkInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	out := make(chan Signal)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			in, err := ReadInput(ctx, src)
			if err != nil {
				log.Warn("idle check failed", "err", err)
			} else if sig := m.Evaluate(now(), in); sig.Kind != None {
				select {
				case out <- sig:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
