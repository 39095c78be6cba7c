package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/pomo/internal/db"
	"github.com/balkashynov/pomo/internal/engine"
	"github.com/balkashynov/pomo/internal/idle"
	"github.com/balkashynov/pomo/internal/models"
)

type homeMode int

const (
	homeBrowse homeMode = iota
	homePrompt          // idle or first-run prompt is showing
	homeForm            // new session form
)

const (
	fieldTask = iota
	fieldIntent
)

// recentLimit is how many tasks the home screen offers by number.
const recentLimit = 5

// HomeModel is the screen shown between sessions. It listens for idle
// signals and collects what the next session is about.
type HomeModel struct {
	ctx     context.Context
	deps    Deps
	signals <-chan idle.Signal

	width  int
	height int

	mode    homeMode
	signal  idle.Signal
	shimmer *Shimmer

	inputs []textinput.Model
	focus  int

	lastEnd time.Time
	hasLast bool
	recent  []models.Task

	notice    string
	noticeErr bool

	started *models.Session
	task    *models.Task
}

// idleSignalMsg carries one idle monitor signal. ok is false once the
// monitor has stopped.
type idleSignalMsg struct {
	sig idle.Signal
	ok  bool
}

// homeInfoMsg refreshes the status line and the recent task list
type homeInfoMsg struct {
	lastEnd time.Time
	hasLast bool
	recent  []models.Task
	err     error
}

// NewHomeModel builds the home screen. signals may be nil when idle
// prompts are not wanted; openForm starts on the new session form.
func NewHomeModel(ctx context.Context, deps Deps, signals <-chan idle.Signal, openForm bool) HomeModel {
	inputs := make([]textinput.Model, 2)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 200
		inputs[i].Width = 40
	}
	inputs[fieldTask].Prompt = "Task: "
	inputs[fieldTask].Placeholder = "ABC-123, #4 or empty"
	inputs[fieldIntent].Prompt = "Intent: "
	inputs[fieldIntent].Placeholder = "What are you trying to accomplish?"

	m := HomeModel{
		ctx:     ctx,
		deps:    deps.withDefaults(),
		signals: signals,
		shimmer: NewShimmer(true),
		inputs:  inputs,
	}
	if openForm {
		m, _ = m.openForm("")
	}
	return m
}

// Init starts listening for idle signals and loads the status line
func (m HomeModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadInfo(), shimmerTick()}
	if m.signals != nil {
		cmds = append(cmds, waitForSignal(m.signals))
	}
	if m.mode == homeForm {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Started is the session the form started, nil when the user quit.
func (m HomeModel) Started() (*models.Session, *models.Task) {
	return m.started, m.task
}

func waitForSignal(ch <-chan idle.Signal) tea.Cmd {
	return func() tea.Msg {
		sig, ok := <-ch
		return idleSignalMsg{sig: sig, ok: ok}
	}
}

func (m HomeModel) loadInfo() tea.Cmd {
	ctx, eng, tasks := m.ctx, m.deps.Engine, m.deps.Tasks
	return func() tea.Msg {
		end, ok, err := eng.LastCompletedEnd(ctx)
		if err != nil {
			return homeInfoMsg{err: err}
		}
		recent, err := tasks.RecentTasks(ctx, recentLimit)
		return homeInfoMsg{lastEnd: end, hasLast: ok, recent: recent, err: err}
	}
}

// Update handles messages
func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case homeInfoMsg:
		if msg.err != nil {
			m.notice, m.noticeErr = msg.err.Error(), true
			return m, nil
		}
		m.lastEnd, m.hasLast, m.recent = msg.lastEnd, msg.hasLast, msg.recent
		return m, nil

	case idleSignalMsg:
		if !msg.ok {
			return m, nil
		}
		// A prompt never interrupts someone filling in the form.
		if m.mode == homeBrowse {
			m.mode = homePrompt
			m.signal = msg.sig
		}
		return m, waitForSignal(m.signals)

	case shimmerTickMsg:
		if m.mode == homePrompt {
			m.shimmer.Advance(m.deps.Now(), len([]rune(m.promptText())))
		}
		return m, shimmerTick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case homePrompt:
			return m.updatePrompt(msg)
		case homeForm:
			return m.updateForm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m HomeModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "n", "enter":
		return m.openForm("")
	case "q", "esc":
		return m, tea.Quit
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 1 && i <= len(m.recent) {
		return m.openForm(taskRef(&m.recent[i-1]))
	}
	return m, nil
}

func (m HomeModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		return m.openForm("")
	case "n", "esc":
		m.mode = homeBrowse
		m.notice, m.noticeErr = "", false
	case "s":
		until := m.deps.Monitor.SnoozeFrom(m.deps.Now())
		m.mode = homeBrowse
		m.notice, m.noticeErr = fmt.Sprintf("Snoozed until %s", until.Format("15:04")), false
	}
	return m, nil
}

func (m HomeModel) openForm(ref string) (HomeModel, tea.Cmd) {
	m.mode = homeForm
	m.notice = ""
	for i := range m.inputs {
		m.inputs[i].Reset()
		m.inputs[i].Blur()
	}
	m.inputs[fieldTask].SetValue(ref)
	m.focus = fieldTask
	if ref != "" {
		m.focus = fieldIntent
	}
	return m, tea.Batch(m.inputs[m.focus].Focus(), textinput.Blink)
}

func (m HomeModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = homeBrowse
		return m, nil
	case "tab", "down", "shift+tab", "up":
		return m.moveFocus((m.focus + 1) % len(m.inputs))
	case "enter":
		if m.focus < len(m.inputs)-1 {
			return m.moveFocus(m.focus + 1)
		}
		return m.submit()
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m HomeModel) moveFocus(i int) (tea.Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m, m.inputs[m.focus].Focus()
}

// submit resolves the task and starts the session. Failures keep the form
// open with the error shown.
func (m HomeModel) submit() (tea.Model, tea.Cmd) {
	ref := strings.TrimSpace(m.inputs[fieldTask].Value())
	intent := strings.TrimSpace(m.inputs[fieldIntent].Value())

	var task *models.Task
	if ref != "" {
		t, err := m.deps.Tasks.ResolveTask(m.ctx, ref)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				err = fmt.Errorf("task not found: %s", ref)
			}
			m.notice, m.noticeErr = err.Error(), true
			return m, nil
		}
		task = t
	}

	session, err := m.deps.Engine.Start(m.ctx, engine.StartOptions{
		Task:             task,
		Intent:           intent,
		WorkingDirectory: m.deps.WorkingDirectory,
	})
	if err != nil {
		m.notice, m.noticeErr = err.Error(), true
		return m, nil
	}
	m.started, m.task = session, task
	return m, tea.Quit
}

func (m HomeModel) promptText() string {
	if m.signal.Kind == idle.FirstRun {
		return "Welcome to pomo! Start your first session?"
	}
	return fmt.Sprintf("You've been idle for %s. Start a session?", formatMinutes(m.signal.IdleMinutes))
}

// View renders the home screen
func (m HomeModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	width := min(m.width, 70)
	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(width)

	var components []string
	components = append(components, center.
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Render(strings.Join(logoLines, "\n")))

	components = append(components, center.
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Italic(true).
		Render(m.statusLine()))

	switch m.mode {
	case homePrompt:
		box := m.shimmer.Render(m.promptText()) + "\n\n" +
			lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).
				Render("[y] start · [n] not now · [s] snooze")
		components = append(components, center.Render(modalStyle(width-4).Render(box)))
	case homeForm:
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText)).Bold(true).Render("New session"))
		b.WriteString("\n\n")
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString("\n")
		}
		if m.deps.WorkingDirectory != "" {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).
				Render("Tracking " + m.deps.WorkingDirectory))
		}
		components = append(components, center.Render(modalStyle(width-4).Render(strings.TrimRight(b.String(), "\n"))))
	default:
		if list := m.renderRecent(); list != "" {
			components = append(components, center.Render(list))
		}
	}

	if m.notice != "" {
		color := ColorSuccess
		if m.noticeErr {
			color = ColorError
		}
		components = append(components, center.Foreground(lipgloss.Color(color)).Render(m.notice))
	}

	content := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(components, "\n\n"))
	return lipgloss.JoinVertical(lipgloss.Left, content, m.renderHelpBar())
}

func (m HomeModel) statusLine() string {
	now := m.deps.Now()
	if !m.hasLast {
		return fmt.Sprintf("%s · no sessions yet", now.Format("15:04"))
	}
	ago := int(now.Sub(m.lastEnd) / time.Minute)
	return fmt.Sprintf("%s · last session ended %s ago", now.Format("15:04"), formatMinutes(max(0, ago)))
}

func (m HomeModel) renderRecent() string {
	if len(m.recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render("Recent tasks"))
	b.WriteString("\n")
	for i := range m.recent {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain)).Bold(true).
			Render(fmt.Sprintf("[%d]", i+1)))
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText)).
			Render(m.recent[i].DisplayName()))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m HomeModel) renderHelpBar() string {
	help := "n new session · 1-5 recent task · q quit"
	switch m.mode {
	case homePrompt:
		help = "y start · n dismiss · s snooze"
	case homeForm:
		help = "tab next field · enter start · esc back"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render(help)
}

func modalStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Padding(1, 2).
		Width(max(20, width))
}

// taskRef is what the form needs to find t again.
func taskRef(t *models.Task) string {
	if t.QuickRef != nil && *t.QuickRef != "" {
		return *t.QuickRef
	}
	return "#" + strconv.FormatUint(uint64(t.ID), 10)
}
