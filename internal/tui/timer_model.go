package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/pomo/internal/engine"
	"github.com/balkashynov/pomo/internal/loop"
	"github.com/balkashynov/pomo/internal/models"
	"github.com/balkashynov/pomo/internal/parser"
)

// TimerModel is the live session screen. It steps a loop.Loop once per
// second and shows the loop's menus as a modal.
type TimerModel struct {
	ctx  context.Context
	loop *loop.Loop
	eng  loop.Engine
	task *models.Task
	now  func() time.Time

	width  int
	height int

	view     engine.View
	progress progress.Model

	// Animation state
	timerAnimation int

	// Menu state
	menu    *loop.Menu
	pending string // option key waiting for an outcome
	outcome textinput.Model

	notice    string
	noticeErr bool

	result loop.Result
	done   bool
}

// timerTickMsg is sent every second to step the loop
type timerTickMsg struct{}

// animationTickMsg is sent for faster animations
type animationTickMsg struct{}

// NewTimerModel creates the live session screen for a started session.
func NewTimerModel(ctx context.Context, l *loop.Loop, e loop.Engine, task *models.Task) TimerModel {
	in := textinput.New()
	in.Placeholder = "What did you actually accomplish?"
	in.CharLimit = 200
	in.Width = 48

	bar := progress.New(
		progress.WithGradient(ColorAccentMain, ColorAccentBright),
		progress.WithoutPercentage(),
	)
	bar.Width = 40

	return TimerModel{
		ctx:      ctx,
		loop:     l,
		eng:      e,
		task:     task,
		now:      time.Now,
		view:     e.View(),
		progress: bar,
		outcome:  in,
	}
}

// Init starts the step and animation tickers
func (m TimerModel) Init() tea.Cmd {
	return tea.Batch(
		tickEvery(time.Second, timerTickMsg{}),
		tickEvery(250*time.Millisecond, animationTickMsg{}),
	)
}

// Result is the choice that ended the session. Ended is nil when the
// program exited with the session still running.
func (m TimerModel) Result() loop.Result {
	return m.result
}

// Update handles messages
func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		if m.done {
			return m, nil
		}
		m = m.step()
		if m.done {
			return m, tea.Quit
		}
		return m, tickEvery(time.Second, timerTickMsg{})

	case animationTickMsg:
		m.timerAnimation = (m.timerAnimation + 1) % 4
		if m.done {
			return m, nil
		}
		return m, tickEvery(250*time.Millisecond, animationTickMsg{})

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, min(msg.Width/2-10, 50))
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.pending != "":
			return m.updateOutcome(msg)
		case m.menu != nil:
			return m.updateMenu(msg)
		default:
			return m.updateTicking(msg)
		}
	}
	return m, nil
}

// step advances the loop unless a menu is open.
func (m TimerModel) step() TimerModel {
	if m.menu == nil {
		if ev := m.loop.Step(m.ctx); ev.Reason != loop.NoReason {
			if menu, ok := m.loop.Menu(); ok {
				m.menu = &menu
			}
		}
	}
	m.view = m.eng.View()
	if !m.view.Active {
		m.done = true
	}
	return m
}

// updateTicking maps the running-screen shortcuts onto the interrupt menu.
func (m TimerModel) updateTicking(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "s", "e", "x":
		m = m.interrupt()
		if m.menu == nil {
			return m, nil
		}
		return m.pick(key)
	case "ctrl+c", "esc", "q":
		return m.interrupt(), nil
	}
	return m, nil
}

func (m TimerModel) interrupt() TimerModel {
	m.loop.Interrupt()
	return m.step()
}

func (m TimerModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c":
		// Repeated ctrl+c stops and logs the session.
		for _, o := range m.menu.Options {
			if o.NeedsOutcome {
				return m.pick(o.Key)
			}
		}
		return m, nil
	case "enter":
		return m.pick(m.menu.Default)
	default:
		return m.pick(strings.ToLower(key))
	}
}

func (m TimerModel) updateOutcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "ctrl+c":
		return m.choose(m.pending, strings.TrimSpace(m.outcome.Value()))
	case "esc":
		m.pending = ""
		m.outcome.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.outcome, cmd = m.outcome.Update(msg)
	return m, cmd
}

// pick selects a menu option, asking for an outcome first when the option
// ends the session.
func (m TimerModel) pick(key string) (tea.Model, tea.Cmd) {
	for _, o := range m.menu.Options {
		if o.Key != key {
			continue
		}
		if o.NeedsOutcome {
			m.pending = key
			m.outcome.Reset()
			return m, m.outcome.Focus()
		}
		return m.choose(key, "")
	}
	return m, nil
}

func (m TimerModel) choose(key, outcome string) (tea.Model, tea.Cmd) {
	res, err := m.loop.Choose(m.ctx, key, outcome)
	if err != nil {
		// The menu stays open so the choice can be retried, unless the
		// session was ended elsewhere.
		m.pending = ""
		m.outcome.Blur()
		m.notice, m.noticeErr = err.Error(), true
		if m.view = m.eng.View(); !m.view.Active {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	}

	m.menu, m.pending = nil, ""
	m.outcome.Blur()
	m.notice, m.noticeErr = res.Message, false
	m.view = m.eng.View()
	if res.Ended != nil {
		m.result = res
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the timer TUI
func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpBar := m.renderHelpBar()
	contentHeight := m.height - 2

	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderTimerPanel(m.width, contentHeight),
			helpBar,
		)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderTimerPanel(leftWidth, contentHeight),
		"  ",
		m.renderDetailsPanel(rightWidth, contentHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, content, helpBar)
}

func (m TimerModel) renderTimerPanel(width, height int) string {
	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(width)
	var components []string

	animChars := []string{"◐", "◓", "◑", "◒"}
	header := fmt.Sprintf("%s  FOCUS  %s", animChars[m.timerAnimation], animChars[m.timerAnimation])
	headerColor := ColorAccentBright
	switch {
	case m.menu != nil:
		header, headerColor = "WAITING FOR YOU", ColorWarning
	case m.view.Overtime:
		header, headerColor = "OVERTIME", ColorWarning
	}
	components = append(components, center.
		Foreground(lipgloss.Color(headerColor)).
		Bold(true).
		Render(header))

	title := "No task"
	if m.view.Task != "" {
		title = m.view.Task
	}
	if len(title) > width-4 && width > 8 {
		title = title[:width-7] + "..."
	}
	components = append(components, center.
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Bold(true).
		Render(title))

	clockColor := ColorAccentBright
	if m.view.Overtime {
		clockColor = ColorWarning
	}
	var clock []string
	for _, line := range strings.Split(renderBigClock(m.view.Elapsed, clockColor), "\n") {
		clock = append(clock, center.Render(line))
	}
	components = append(components, strings.Join(clock, "\n"))

	components = append(components, center.Render(m.progress.ViewAs(m.ratio())))

	components = append(components, center.
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Italic(true).
		Render(m.statusLine()))

	if m.notice != "" {
		color := ColorSuccess
		if m.noticeErr {
			color = ColorError
		}
		components = append(components, center.Foreground(lipgloss.Color(color)).Render(m.notice))
	}

	if m.menu != nil {
		components = append(components, center.Render(m.renderMenu(min(width-4, 60))))
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(components, "\n\n"))
}

func (m TimerModel) ratio() float64 {
	if m.view.TargetMinutes <= 0 {
		return 0
	}
	r := float64(m.view.Elapsed) / float64(time.Duration(m.view.TargetMinutes)*time.Minute)
	return min(1, r)
}

func (m TimerModel) statusLine() string {
	parts := []string{fmt.Sprintf("Started %s", m.view.Started.Format("15:04"))}
	parts = append(parts, fmt.Sprintf("target %s", formatMinutes(m.view.TargetMinutes)))
	if m.view.Overtime {
		parts = append(parts, fmt.Sprintf("+%s over", formatMinutes(m.view.ElapsedMinutes-m.view.TargetMinutes)))
	} else {
		parts = append(parts, fmt.Sprintf("%s left", formatMinutes(m.view.RemainingMinutes)))
	}
	if m.view.PausedMinutes > 0 {
		parts = append(parts, fmt.Sprintf("paused %s", formatMinutes(m.view.PausedMinutes)))
	}
	return strings.Join(parts, " · ")
}

func (m TimerModel) renderMenu(width int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Bold(true).
		Render(m.menu.Title))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Render(m.menu.Prompt))
	b.WriteString("\n\n")

	if m.pending != "" {
		b.WriteString(m.outcome.View())
	} else {
		for _, o := range m.menu.Options {
			keyColor := ColorAccentMain
			if o.Key == m.menu.Default {
				keyColor = ColorAccentBright
			}
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(keyColor)).Bold(true).Render("[" + o.Key + "]"))
			b.WriteString(" ")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText)).Render(o.Label))
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Padding(0, 2).
		Width(width).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m TimerModel) renderDetailsPanel(width, height int) string {
	var b strings.Builder
	inner := max(10, width-8)
	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(inner)

	b.WriteString("\n")
	b.WriteString(center.
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Render(strings.Join(logoLines, "\n")))
	b.WriteString("\n\n")
	b.WriteString(center.
		Foreground(lipgloss.Color(ColorBorder)).
		Render(strings.Repeat("─", max(1, min(inner-4, 40)))))
	b.WriteString("\n\n")

	title := "Unplanned session"
	if m.task != nil {
		title = m.task.Name
	}
	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Width(max(10, width-12)).
		Padding(0, 1).
		Render(title))
	b.WriteString("\n\n")

	field := func(icon, label, value, color string) {
		if value == "" {
			value, color = "none", ColorDisabledText
		}
		line := fmt.Sprintf("%s %s: %s", icon, label,
			lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(value))
		b.WriteString(center.Render(line))
		b.WriteString("\n")
	}

	field("🎯", "Intent", m.view.Intent, ColorAccentBright)
	if m.task != nil {
		ref := ""
		if m.task.QuickRef != nil {
			ref = *m.task.QuickRef
		}
		field("🔖", "Ref", ref, ColorAccentMain)
		if m.task.DueDate != nil {
			field("📅", "Due", parser.FormatDueDate(m.task.DueDate, m.now()), ColorWarning)
		}
	}
	field("📁", "Tracking", m.view.WorkingDirectory, ColorSecondaryText)
	field("📝", "Session", fmt.Sprintf("#%d", m.view.SessionID), ColorSecondaryText)

	return lipgloss.NewStyle().Height(height).Render(b.String())
}

func (m TimerModel) renderHelpBar() string {
	help := "s stop · e extend · x cancel · ctrl+c menu"
	switch {
	case m.pending != "":
		help = "enter save · esc back"
	case m.menu != nil:
		keys := make([]string, 0, len(m.menu.Options))
		for _, o := range m.menu.Options {
			keys = append(keys, o.Key)
		}
		help = fmt.Sprintf("%s choose · enter %s", strings.Join(keys, "/"), m.menu.Default)
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render(help)
}
