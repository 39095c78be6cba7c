// Package engine owns the single current work session: starting, stopping
// and adjusting it, and the time math the live timer shows.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/balkashynov/pomo/internal/db"
	"github.com/balkashynov/pomo/internal/logging"
	"github.com/balkashynov/pomo/internal/models"
)

var (
	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("a session is already active")
	// ErrNoActiveSession is returned by Stop, Cancel and Extend when idle,
	// and by any write once the session was ended by another process.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidMinutes is returned for a non-positive extension or target.
	ErrInvalidMinutes = errors.New("minutes must be positive")
)

// Store is the persistence the engine needs. *db.Store implements it.
type Store interface {
	ActiveSession(ctx context.Context) (*models.Session, error)
	CreateSession(ctx context.Context, s *models.Session) error
	CompleteSession(ctx context.Context, id uint, end time.Time, durationMinutes int, outcome, files string) (*models.Session, error)
	CancelSession(ctx context.Context, id uint, end time.Time) (*models.Session, error)
	SetTargetMinutes(ctx context.Context, id uint, target int) error
	SetPausedDuration(ctx context.Context, id uint, paused int) error
	TouchTask(ctx context.Context, id uint, at time.Time) error
	LastCompletedSession(ctx context.Context) (*models.Session, error)
}

// ChangeSet reports files changed since a snapshot was taken.
type ChangeSet interface {
	Modified() ([]string, error)
	Close() error
}

// Snapshotter starts change tracking for a working directory.
type Snapshotter interface {
	Take(ctx context.Context, dir string) (ChangeSet, error)
}

// SnapshotFunc adapts a function to Snapshotter.
type SnapshotFunc func(ctx context.Context, dir string) (ChangeSet, error)

func (f SnapshotFunc) Take(ctx context.Context, dir string) (ChangeSet, error) {
	return f(ctx, dir)
}

// Settings are the configured values the engine reads.
type Settings struct {
	DefaultTargetMinutes     int
	SleepGapThresholdMinutes int
}

// Options configure an Engine. Zero values pick the real clock, no file
// tracking and a discarding logger.
type Options struct {
	Settings Settings
	Clock    Clock
	Files    Snapshotter
	Logger   *slog.Logger
}

// StartOptions describe a new session. Every field is optional.
type StartOptions struct {
	Task             *models.Task
	Intent           string
	WorkingDirectory string
	// TargetMinutes of zero means the configured default.
	TargetMinutes int
}

// Engine owns the current session. Its methods are safe for concurrent use;
// mutations are serialized.
type Engine struct {
	mu sync.Mutex

	store    Store
	clock    Clock
	files    Snapshotter
	log      *slog.Logger
	settings Settings

	current   *models.Session
	startMono time.Duration
	hasMono   bool
	lastTick  time.Time
	changes   ChangeSet
}

// New creates an idle engine over store.
func New(store Store, opts Options) *Engine {
	settings := opts.Settings
	if settings.DefaultTargetMinutes <= 0 {
		settings.DefaultTargetMinutes = 25
	}
	if settings.SleepGapThresholdMinutes <= 0 {
		settings.SleepGapThresholdMinutes = 5
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{
		store:    store,
		clock:    clock,
		files:    opts.Files,
		log:      log,
		settings: settings,
	}
}

// Settings returns the values the engine was configured with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Start persists a new active session and starts its timer.
func (e *Engine) Start(ctx context.Context, opts StartOptions) (*models.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		return nil, ErrAlreadyActive
	}
	if opts.TargetMinutes < 0 {
		return nil, ErrInvalidMinutes
	}
	existing, err := e.store.ActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active session: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyActive
	}

	target := opts.TargetMinutes
	if target == 0 {
		target = e.settings.DefaultTargetMinutes
	}
	now := e.clock.Now()
	session := &models.Session{
		StartTime:        now,
		TargetMinutes:    target,
		Intent:           opts.Intent,
		WorkingDirectory: opts.WorkingDirectory,
	}
	if opts.Task != nil {
		session.TaskID = &opts.Task.ID
		session.TaskDescription = opts.Task.DisplayName()
	}

	if err := e.store.CreateSession(ctx, session); err != nil {
		if errors.Is(err, db.ErrActiveSessionExists) {
			return nil, ErrAlreadyActive
		}
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	e.current = session
	e.lastTick = now
	if mc, ok := e.clock.(MonotonicClock); ok {
		e.startMono, e.hasMono = mc.Monotonic(), true
	}

	if opts.WorkingDirectory != "" && e.files != nil {
		changes, err := e.files.Take(ctx, opts.WorkingDirectory)
		if err != nil {
			e.log.Warn("file tracking unavailable", "dir", opts.WorkingDirectory, "err", err)
		} else {
			e.changes = changes
		}
	}

	// The session is already running; a stale last_worked is not worth failing it.
	if opts.Task != nil {
		if err := e.store.TouchTask(ctx, opts.Task.ID, now); err != nil {
			e.log.Warn("failed to update task last_worked", "task", opts.Task.ID, "err", err)
		}
	}

	e.log.Info("session started", "session", session.ID, "task", session.TaskDescription, "target", target)
	return copySession(session), nil
}

// Stop completes the running session. Its duration is the wall-clock time
// since the persisted start, in whole minutes. A nil files list records the
// changes seen by file tracking.
func (e *Engine) Stop(ctx context.Context, outcome string, files []string) (*models.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNoActiveSession
	}
	if files == nil {
		files = e.modifiedLocked()
	}

	now := e.clock.Now()
	duration := max(0, int(now.Sub(e.current.StartTime)/time.Minute))

	done, err := e.store.CompleteSession(ctx, e.current.ID, now, duration, outcome, models.JoinFiles(files))
	if err != nil {
		return nil, e.writeFailedLocked("stop", err)
	}
	e.log.Info("session completed", "session", done.ID, "duration", duration, "paused", done.PausedDuration)
	e.clearLocked()
	return done, nil
}

// Cancel discards the running session. It keeps no duration and does not
// count toward totals.
func (e *Engine) Cancel(ctx context.Context) (*models.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNoActiveSession
	}
	done, err := e.store.CancelSession(ctx, e.current.ID, e.clock.Now())
	if err != nil {
		return nil, e.writeFailedLocked("cancel", err)
	}
	e.log.Info("session cancelled", "session", done.ID)
	e.clearLocked()
	return done, nil
}

// Extend adds minutes to the target and returns the new target.
func (e *Engine) Extend(ctx context.Context, minutes int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return 0, ErrNoActiveSession
	}
	if minutes <= 0 {
		return 0, ErrInvalidMinutes
	}
	target := e.current.TargetMinutes + minutes
	if err := e.store.SetTargetMinutes(ctx, e.current.ID, target); err != nil {
		return 0, e.writeFailedLocked("extend", err)
	}
	e.current.TargetMinutes = target
	e.log.Info("session extended", "session", e.current.ID, "target", target)
	return target, nil
}

// Pause records minutes the user was away. Without a running session, or
// with nothing to record, it does nothing.
func (e *Engine) Pause(ctx context.Context, minutes int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || minutes <= 0 {
		return nil
	}
	paused := e.current.PausedDuration + minutes
	if err := e.store.SetPausedDuration(ctx, e.current.ID, paused); err != nil {
		return e.writeFailedLocked("pause", err)
	}
	e.current.PausedDuration = paused
	e.log.Info("session paused", "session", e.current.ID, "minutes", minutes, "total", paused)
	return nil
}

// Tick marks the loop as alive now. It is the only input to gap detection.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastTick = e.clock.Now()
}

// CheckForGap reports the whole minutes since the last tick when that
// count exceeds the sleep-gap threshold.
func (e *Engine) CheckForGap() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || e.lastTick.IsZero() {
		return 0, false
	}
	minutes := int(e.clock.Now().Sub(e.lastTick) / time.Minute)
	if minutes <= e.settings.SleepGapThresholdMinutes {
		return 0, false
	}
	return minutes, true
}

// ElapsedMinutes is the live session age in whole minutes.
func (e *Engine) ElapsedMinutes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.elapsedLocked() / time.Minute)
}

// RemainingMinutes is the time left before the target, never negative.
func (e *Engine) RemainingMinutes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return 0
	}
	return max(0, e.current.TargetMinutes-int(e.elapsedLocked()/time.Minute))
}

// IsOvertime reports whether the running session has reached its target.
func (e *Engine) IsOvertime() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && int(e.elapsedLocked()/time.Minute) >= e.current.TargetMinutes
}

// Active reports whether a session is running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Current returns a copy of the running session, or nil.
func (e *Engine) Current() *models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copySession(e.current)
}

// ModifiedFiles lists files changed in the working directory since start.
func (e *Engine) ModifiedFiles() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modifiedLocked()
}

// LastCompletedEnd returns when the most recent completed session ended.
func (e *Engine) LastCompletedEnd(ctx context.Context) (time.Time, bool, error) {
	last, err := e.store.LastCompletedSession(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if last == nil || last.EndTime == nil {
		return time.Time{}, false, nil
	}
	return *last.EndTime, true, nil
}

// View is a read-only picture of the running session for rendering.
type View struct {
	Active           bool
	SessionID        uint
	Task             string
	Intent           string
	WorkingDirectory string
	Started          time.Time
	Elapsed          time.Duration
	ElapsedMinutes   int
	RemainingMinutes int
	TargetMinutes    int
	PausedMinutes    int
	Overtime         bool
}

// View snapshots the running session. The zero View means idle.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return View{}
	}
	elapsed := e.elapsedLocked()
	minutes := int(elapsed / time.Minute)
	return View{
		Active:           true,
		SessionID:        e.current.ID,
		Task:             e.current.TaskDescription,
		Intent:           e.current.Intent,
		WorkingDirectory: e.current.WorkingDirectory,
		Started:          e.current.StartTime,
		Elapsed:          elapsed,
		ElapsedMinutes:   minutes,
		RemainingMinutes: max(0, e.current.TargetMinutes-minutes),
		TargetMinutes:    e.current.TargetMinutes,
		PausedMinutes:    e.current.PausedDuration,
		Overtime:         minutes >= e.current.TargetMinutes,
	}
}

// elapsedLocked prefers the monotonic reading so the live counter never
// runs backward when the wall clock is corrected.
func (e *Engine) elapsedLocked() time.Duration {
	if e.current == nil {
		return 0
	}
	if mc, ok := e.clock.(MonotonicClock); ok && e.hasMono {
		return max(0, mc.Monotonic()-e.startMono)
	}
	return max(0, e.clock.Now().Sub(e.current.StartTime))
}

func (e *Engine) modifiedLocked() []string {
	if e.changes == nil {
		return nil
	}
	files, err := e.changes.Modified()
	if err != nil {
		e.log.Warn("failed to list modified files", "err", err)
		return nil
	}
	return files
}

// writeFailedLocked wraps a failed write to the current session. When the
// row is no longer active another process has ended it (every process
// sweeps active rows at startup). The store wins: the engine drops the
// session and reports ErrNoActiveSession.
func (e *Engine) writeFailedLocked(op string, err error) error {
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("failed to %s session: %w", op, err)
	}
	id := e.current.ID
	e.log.Warn("session ended outside this process", "session", id, "op", op)
	e.clearLocked()
	return fmt.Errorf("session %d was ended by another pomo process: %w", id, ErrNoActiveSession)
}

func (e *Engine) clearLocked() {
	if e.changes != nil {
		if err := e.changes.Close(); err != nil {
			e.log.Debug("closing file tracking", "err", err)
		}
	}
	e.current = nil
	e.changes = nil
	e.hasMono = false
	e.startMono = 0
	e.lastTick = time.Time{}
}

func copySession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
