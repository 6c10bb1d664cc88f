package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"leetbot-cli/internal/theme"
)

// Palette. Adaptive colors follow lipgloss's dark-background flag, which the
// theme controller sets through theme.LipglossApplier.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted      = ac("240", "243")
	colorSurfaceFg  = ac("235", "252")
	colorControlBg  = ac("252", "235")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorAccent     = ac("27", "62")
	colorBorder     = ac("250", "243")
	colorError      = ac("160", "203")

	colorEasy   = ac("28", "42")
	colorMedium = ac("130", "214")
	colorHard   = ac("160", "203")
)

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

type chrome struct {
	header      lipgloss.Style
	pane        lipgloss.Style
	paneFocused lipgloss.Style
	paneTitle   lipgloss.Style
	muted       lipgloss.Style
	err         lipgloss.Style
	badge       lipgloss.Style
}

// newChrome builds the chrome for t. The header bar carries the theme's hint
// color as its border.
func newChrome(t theme.Theme) chrome {
	hint := lipgloss.Color(theme.HintColor(t))
	return chrome{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSurfaceFg).
			Background(colorControlBg).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(hint).
			Padding(0, 1),
		pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder),
		paneFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent),
		paneTitle: lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg),
		muted:     faintIfDark(lipgloss.NewStyle().Foreground(colorMuted)),
		err:       lipgloss.NewStyle().Bold(true).Foreground(colorError),
		badge:     lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Padding(0, 1),
	}
}

func difficultyColor(d string) lipgloss.AdaptiveColor {
	switch strings.ToLower(d) {
	case "easy":
		return colorEasy
	case "medium":
		return colorMedium
	case "hard":
		return colorHard
	}
	return colorMuted
}

// applyColorProfilePreference sets Lip Gloss's color profile for the interactive TUI.
//
// termenv.EnvColorProfile respects CLICOLOR/CLICOLOR_FORCE, which suits piped CLI
// output but can disable colors in a TUI. Here only NO_COLOR is honored and the
// terminal's capabilities are followed otherwise.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()

	// Trust TERM/COLORTERM when they claim more than the detector reports.
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") {
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}

	lipgloss.SetColorProfile(profile)
}
