package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/pomo/internal/engine"
	"github.com/balkashynov/pomo/internal/idle"
	"github.com/balkashynov/pomo/internal/logging"
	"github.com/balkashynov/pomo/internal/loop"
	"github.com/balkashynov/pomo/internal/models"
)

var logoLines = []string{
	"██████╗  ██████╗ ███╗   ███╗ ██████╗ ",
	"██╔══██╗██╔═══██╗████╗ ████║██╔═══██╗",
	"██████╔╝██║   ██║██╔████╔██║██║   ██║",
	"██╔═══╝ ██║   ██║██║╚██╔╝██║██║   ██║",
	"██║     ╚██████╔╝██║ ╚═╝ ██║╚██████╔╝",
	"╚═╝      ╚═════╝ ╚═╝     ╚═╝ ╚═════╝ ",
}

// TaskStore is the task lookup the home screen needs. *db.Store implements it.
type TaskStore interface {
	ResolveTask(ctx context.Context, ref string) (*models.Task, error)
	RecentTasks(ctx context.Context, limit int) ([]models.Task, error)
}

// Deps wires the screens to the rest of the program.
type Deps struct {
	Engine  *engine.Engine
	Tasks   TaskStore
	Monitor *idle.Monitor
	Loop    loop.Settings
	// WorkingDirectory is tracked for sessions started from the home
	// screen. Empty disables file tracking.
	WorkingDirectory string
	Now              func() time.Time
	Logger           *slog.Logger
	Out              io.Writer
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Out == nil {
		d.Out = io.Discard
	}
	return d
}

func tickEvery(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// RunTimer runs the live session screen for the session the engine holds
// until it ends or the program exits.
func RunTimer(ctx context.Context, deps Deps, task *models.Task) (loop.Result, error) {
	deps = deps.withDefaults()
	l := loop.New(deps.Engine, deps.Loop, deps.Now)
	model := NewTimerModel(ctx, l, deps.Engine, task)
	model.now = deps.Now

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return loop.Result{}, err
	}
	res := finalModel.(TimerModel).Result()
	printResult(deps.Out, res)
	return res, nil
}

// RunHome shows the home screen, runs a timer for every session started
// from it and returns when the user quits.
func RunHome(ctx context.Context, deps Deps) error {
	deps = deps.withDefaults()
	openForm := false

	for {
		session, task, err := runHomeOnce(ctx, deps, openForm)
		if err != nil || session == nil {
			return err
		}
		deps.Logger.Debug("session started from home", "session", session.ID)

		res, err := RunTimer(ctx, deps, task)
		if err != nil {
			return err
		}
		if res.Ended == nil {
			if deps.Engine.Active() {
				fmt.Fprintln(deps.Out, "💡 Session left running. It is cancelled the next time pomo starts.")
			} else {
				fmt.Fprintln(deps.Out, "💡 Session was ended by another pomo process.")
			}
			return nil
		}
		openForm = res.Next == loop.NextStart
	}
}

func runHomeOnce(ctx context.Context, deps Deps, openForm bool) (*models.Session, *models.Task, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var signals <-chan idle.Signal
	if deps.Monitor != nil {
		signals = deps.Monitor.Watch(watchCtx, deps.Engine, idle.WatchOptions{
			Now:    deps.Now,
			Logger: deps.Logger,
		})
	}

	p := tea.NewProgram(NewHomeModel(ctx, deps, signals, openForm), tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return nil, nil, err
	}
	session, task := finalModel.(HomeModel).Started()
	return session, task, nil
}

func printResult(out io.Writer, res loop.Result) {
	s := res.Ended
	if s == nil {
		return
	}
	icon := "✅"
	if s.Status == models.StatusCancelled {
		icon = "❌"
	}
	fmt.Fprintf(out, "%s %s\n", icon, res.Message)
	if s.TaskDescription != "" {
		fmt.Fprintf(out, "   Task: %s\n", s.TaskDescription)
	}
	if files := s.Files(); len(files) > 0 {
		fmt.Fprintf(out, "   Files: %d file(s) logged\n", len(files))
	}
}
