// Package loop drives a running session once per second and turns the
// conditions the engine raises into menus.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/balkashynov/pomo/internal/engine"
	"github.com/balkashynov/pomo/internal/models"
)

// ErrUnknownChoice is returned by Choose for a key the current menu lacks.
var ErrUnknownChoice = errors.New("unknown choice")

// ErrNotSuspended is returned by Choose while the loop is ticking.
var ErrNotSuspended = errors.New("loop is not waiting for a choice")

// Engine is the part of *engine.Engine the loop drives.
type Engine interface {
	Active() bool
	Tick()
	CheckForGap() (int, bool)
	View() engine.View
	Stop(ctx context.Context, outcome string, files []string) (*models.Session, error)
	Cancel(ctx context.Context) (*models.Session, error)
	Extend(ctx context.Context, minutes int) (int, error)
	Pause(ctx context.Context, minutes int) error
}

// State is where the loop is in its cycle.
type State int

const (
	Ticking State = iota
	Suspended
	AwaitingChoice
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case AwaitingChoice:
		return "awaiting-choice"
	default:
		return "ticking"
	}
}

// Reason says why the loop suspended.
type Reason int

const (
	NoReason Reason = iota
	Gap
	TargetReached
	LongSession
	Interrupt
)

func (r Reason) String() string {
	switch r {
	case Gap:
		return "gap"
	case TargetReached:
		return "target-reached"
	case LongSession:
		return "long-session"
	case Interrupt:
		return "interrupt"
	default:
		return "none"
	}
}

// Event is what one Step observed.
type Event struct {
	Reason         Reason
	GapMinutes     int
	ElapsedMinutes int
}

// Next is what the caller should do after a session ends.
type Next int

const (
	NextNone Next = iota
	// NextStart asks for a new session right away.
	NextStart
	// NextBreak means the user is taking a break.
	NextBreak
)

// Result reports the effect of a choice.
type Result struct {
	Resumed bool
	Ended   *models.Session
	Next    Next
	Message string
}

// Settings configure a Loop.
type Settings struct {
	// ExtendMinutes is added by the "continue" and "extend" choices.
	ExtendMinutes      int
	LongSessionMinutes int
	// AutoPauseOnSleep records a confirmed gap as paused time.
	AutoPauseOnSleep bool
}

// longSessionCooldown keeps the long-session warning from repeating while
// elapsed stays on the same multiple.
const longSessionCooldown = 5 * time.Minute

// Loop is the live-session state machine. Interrupt may be called from any
// goroutine; everything else belongs to the driving goroutine.
type Loop struct {
	e        Engine
	settings Settings
	now      func() time.Time

	mu          sync.Mutex
	state       State
	event       Event
	interrupted bool
	wake        chan struct{}

	targetNotified int
	lastLongWarn   time.Time
}

// New creates a Loop in the Ticking state. A nil now uses the system clock.
func New(e Engine, s Settings, now func() time.Time) *Loop {
	if s.ExtendMinutes <= 0 {
		s.ExtendMinutes = 25
	}
	if now == nil {
		now = time.Now
	}
	return &Loop{e: e, settings: s, now: now, wake: make(chan struct{}, 1)}
}

// State returns the current state and, when suspended, why.
func (l *Loop) State() (State, Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.event
}

// Done reports whether the session has ended.
func (l *Loop) Done() bool {
	return !l.e.Active()
}

// Interrupt asks the loop to suspend with the interrupt menu at the next step.
func (l *Loop) Interrupt() {
	l.mu.Lock()
	l.interrupted = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Step runs one cycle: gap check, tick, then target and long-session
// checks. A detected gap suspends before the tick so its length survives
// until the user answers.
func (l *Loop) Step(ctx context.Context) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Ticking || !l.e.Active() {
		return l.event
	}

	if l.interrupted {
		l.interrupted = false
		return l.suspend(Event{Reason: Interrupt, ElapsedMinutes: l.e.View().ElapsedMinutes})
	}
	if gap, ok := l.e.CheckForGap(); ok {
		return l.suspend(Event{Reason: Gap, GapMinutes: gap, ElapsedMinutes: l.e.View().ElapsedMinutes})
	}

	l.e.Tick()
	v := l.e.View()

	if v.Overtime && v.ElapsedMinutes == v.TargetMinutes && l.targetNotified != v.TargetMinutes {
		l.targetNotified = v.TargetMinutes
		return l.suspend(Event{Reason: TargetReached, ElapsedMinutes: v.ElapsedMinutes})
	}

	if long := l.settings.LongSessionMinutes; long > 0 && v.ElapsedMinutes > 0 && v.ElapsedMinutes%long == 0 {
		now := l.now()
		if now.Sub(l.lastLongWarn) > longSessionCooldown {
			l.lastLongWarn = now
			return l.suspend(Event{Reason: LongSession, ElapsedMinutes: v.ElapsedMinutes})
		}
	}
	return Event{ElapsedMinutes: v.ElapsedMinutes}
}

func (l *Loop) suspend(ev Event) Event {
	l.state = Suspended
	l.event = ev
	return ev
}

// Option is one menu entry.
type Option struct {
	Key   string
	Label string
	// NeedsOutcome means the choice ends the session and an outcome
	// prompt should come first.
	NeedsOutcome bool
}

// Menu is what the user is asked after a suspension.
type Menu struct {
	Reason  Reason
	Title   string
	Prompt  string
	Options []Option
	Default string
}

// arm is one row of a transition table.
type arm struct {
	Option
	run func(ctx context.Context, l *Loop, outcome string) (Result, error)
}

// Menu returns the choices for the current suspension and moves the loop
// to AwaitingChoice. ok is false while ticking.
func (l *Loop) Menu() (Menu, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Ticking {
		return Menu{}, false
	}
	l.state = AwaitingChoice
	return l.menuLocked(), true
}

func (l *Loop) menuLocked() Menu {
	ev := l.event
	m := Menu{Reason: ev.Reason}
	switch ev.Reason {
	case Gap:
		m.Title = fmt.Sprintf("Sleep detected: %d minutes away", ev.GapMinutes)
		m.Prompt = "Still working?"
		m.Default = "y"
	case TargetReached:
		m.Title = fmt.Sprintf("Pomodoro complete: %d minutes", ev.ElapsedMinutes)
		m.Prompt = "What next?"
		m.Default = "d"
	case LongSession:
		m.Title = fmt.Sprintf("Long session: %d minutes. Consider taking a break!", ev.ElapsedMinutes)
		m.Prompt = "Continue session?"
		m.Default = "y"
	case Interrupt:
		m.Title = "Session interrupted"
		m.Prompt = "What now?"
		m.Default = "r"
	}
	for _, a := range l.arms(ev.Reason) {
		m.Options = append(m.Options, a.Option)
	}
	return m
}

// arms is the transition table: one engine operation per choice.
func (l *Loop) arms(r Reason) []arm {
	switch r {
	case Gap:
		return []arm{
			{Option{Key: "y", Label: "Yes, keep going"}, pauseGap},
			{Option{Key: "n", Label: "No, stop the session", NeedsOutcome: true}, stop(NextNone, "")},
		}
	case TargetReached:
		return []arm{
			{Option{Key: "d", Label: "Done, log it", NeedsOutcome: true}, stop(NextNone, "")},
			{Option{Key: "c", Label: fmt.Sprintf("Continue (+%d min)", l.settings.ExtendMinutes)}, extend},
			{Option{Key: "s", Label: "Switch task", NeedsOutcome: true}, stop(NextStart, "")},
			{Option{Key: "b", Label: "Take a break", NeedsOutcome: true}, stop(NextBreak, "Enjoy your break!")},
		}
	case LongSession:
		return []arm{
			{Option{Key: "y", Label: "Continue"}, resume},
			{Option{Key: "n", Label: "Stop the session", NeedsOutcome: true}, stop(NextNone, "")},
		}
	case Interrupt:
		return []arm{
			{Option{Key: "s", Label: "Stop and log", NeedsOutcome: true}, stop(NextNone, "")},
			{Option{Key: "e", Label: fmt.Sprintf("Extend (+%d min)", l.settings.ExtendMinutes)}, extend},
			{Option{Key: "x", Label: "Cancel without logging"}, cancel},
			{Option{Key: "r", Label: "Resume"}, resume},
		}
	default:
		return nil
	}
}

// Choose runs the arm for key. On failure the loop keeps waiting so the
// choice can be retried.
func (l *Loop) Choose(ctx context.Context, key, outcome string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Ticking {
		return Result{}, ErrNotSuspended
	}
	for _, a := range l.arms(l.event.Reason) {
		if a.Key != key {
			continue
		}
		res, err := a.run(ctx, l, outcome)
		if err != nil {
			l.state = AwaitingChoice
			return Result{}, err
		}
		l.state = Ticking
		l.event = Event{}
		return res, nil
	}
	return Result{}, fmt.Errorf("%w %q", ErrUnknownChoice, key)
}

func pauseGap(ctx context.Context, l *Loop, _ string) (Result, error) {
	gap := l.event.GapMinutes
	msg := fmt.Sprintf("Paused %d minutes from session time", gap)
	if l.settings.AutoPauseOnSleep {
		if err := l.e.Pause(ctx, gap); err != nil {
			return Result{}, err
		}
	} else {
		msg = "Gap kept as session time"
	}
	// Restart gap measurement from now.
	l.e.Tick()
	return Result{Resumed: true, Message: msg}, nil
}

// resume leaves the last tick alone: a prompt left open past the gap
// threshold is treated like sleep on the next step.
func resume(context.Context, *Loop, string) (Result, error) {
	return Result{Resumed: true}, nil
}

func extend(ctx context.Context, l *Loop, _ string) (Result, error) {
	target, err := l.e.Extend(ctx, l.settings.ExtendMinutes)
	if err != nil {
		return Result{}, err
	}
	return Result{Resumed: true, Message: fmt.Sprintf("Extended to %d minutes", target)}, nil
}

func cancel(ctx context.Context, l *Loop, _ string) (Result, error) {
	s, err := l.e.Cancel(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Ended: s, Message: "Session cancelled"}, nil
}

func stop(next Next, extra string) func(ctx context.Context, l *Loop, outcome string) (Result, error) {
	return func(ctx context.Context, l *Loop, outcome string) (Result, error) {
		s, err := l.e.Stop(ctx, outcome, nil)
		if err != nil {
			return Result{}, err
		}
		msg := fmt.Sprintf("Session logged: %d minutes", s.ActualMinutes())
		if extra != "" {
			msg += ". " + extra
		}
		return Result{Ended: s, Next: next, Message: msg}, nil
	}
}
