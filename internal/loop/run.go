package loop

import (
	"context"
	"errors"
	"time"

	"github.com/balkashynov/pomo/internal/engine"
)

// Driver is the user-facing side of Run.
type Driver interface {
	// Render shows the session once per step.
	Render(v engine.View)
	// Ask presents a menu and returns the chosen key, plus an outcome when
	// the chosen option needs one.
	Ask(ctx context.Context, m Menu) (key, outcome string, err error)
	// Notify shows a one-line message.
	Notify(msg string)
	// Warn shows a failed choice before the menu is offered again.
	Warn(msg string)
}

// Run drives the loop until the session ends or ctx is done, sleeping
// interval between steps (one second when zero). It returns the result of
// the choice that ended the session.
func (l *Loop) Run(ctx context.Context, d Driver, interval time.Duration) (Result, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !l.Done() {
		if ev := l.Step(ctx); ev.Reason != NoReason {
			res, err := l.ask(ctx, d)
			if err != nil {
				return Result{}, err
			}
			if res.Message != "" {
				d.Notify(res.Message)
			}
			if res.Ended != nil {
				return res, nil
			}
		}
		d.Render(l.e.View())

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-l.wake:
		case <-ticker.C:
		}
	}
	return Result{}, nil
}

// ask repeats the menu until a choice succeeds. Store errors are shown and
// the same menu is offered again, unless the session is gone: then there
// is nothing left to choose for.
func (l *Loop) ask(ctx context.Context, d Driver) (Result, error) {
	m, _ := l.Menu()
	for {
		key, outcome, err := d.Ask(ctx, m)
		if err != nil {
			return Result{}, err
		}
		res, err := l.Choose(ctx, key, outcome)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, ErrUnknownChoice):
			continue
		case errors.Is(err, engine.ErrNoActiveSession):
			return Result{}, err
		default:
			d.Warn(err.Error())
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}
}
