package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// shimmerInterval is how often the highlight moves.
const shimmerInterval = 100 * time.Millisecond

// shimmerTickMsg advances the idle prompt highlight
type shimmerTickMsg struct{}

func shimmerTick() tea.Cmd {
	return tickEvery(shimmerInterval, shimmerTickMsg{})
}

// Shimmer sweeps a soft highlight across a line of text, pausing between
// sweeps. The home screen uses it to draw the eye to the idle prompt.
type Shimmer struct {
	Enabled    bool
	WidthRatio float64       // highlight width relative to the text
	Cycle      time.Duration // one sweep
	Pause      time.Duration // rest between sweeps

	center     float64
	pausedAt   time.Time
	lastUpdate time.Time
}

// NewShimmer returns the default sweep: 1.8s across, 0.5s rest.
func NewShimmer(enabled bool) *Shimmer {
	return &Shimmer{
		Enabled:    enabled,
		WidthRatio: 0.25,
		Cycle:      1800 * time.Millisecond,
		Pause:      500 * time.Millisecond,
	}
}

// Advance moves the highlight for a line of n glyphs.
func (s *Shimmer) Advance(now time.Time, n int) {
	if !s.Enabled || n <= 0 {
		return
	}
	if s.lastUpdate.IsZero() {
		s.lastUpdate = now
		s.center = -float64(n) * s.WidthRatio
		return
	}
	step := now.Sub(s.lastUpdate)
	s.lastUpdate = now

	if !s.pausedAt.IsZero() {
		if now.Sub(s.pausedAt) >= s.Pause {
			s.pausedAt = time.Time{}
			s.center = -float64(n) * s.WidthRatio
		}
		return
	}

	// travel from before the text to after it in one cycle
	distance := float64(n) * (1 + 2*s.WidthRatio)
	s.center += distance * float64(step) / float64(s.Cycle)

	if end := float64(n) * (1 + s.WidthRatio); s.center >= end {
		s.center = end
		s.pausedAt = now
	}
}

// Render colors text with the highlight at its current position.
func (s *Shimmer) Render(text string) string {
	runes := []rune(text)
	if !s.Enabled || len(runes) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true).Render(text)
	}

	sigma := math.Max(1, s.WidthRatio*float64(len(runes))/2)
	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.center
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(blend(ColorSecondaryText, ColorPrimaryText, w))).
			Bold(w > 0.5).
			Render(string(r)))
	}
	return b.String()
}

// blend mixes two #RRGGBB colors, w=0 is a and w=1 is b.
func blend(a, b string, w float64) string {
	var ar, ag, ab, br, bg, bb int
	fmt.Sscanf(a, "#%02x%02x%02x", &ar, &ag, &ab)
	fmt.Sscanf(b, "#%02x%02x%02x", &br, &bg, &bb)
	mix := func(x, y int) int {
		return int(float64(x)*(1-w) + float64(y)*w)
	}
	return fmt.Sprintf("#%02X%02X%02X", mix(ar, br), mix(ag, bg), mix(ab, bb))
}
