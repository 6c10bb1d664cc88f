package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"leetbot-cli/internal/model"
	"leetbot-cli/internal/publish"
	"leetbot-cli/internal/theme"
)

var (
	mdRendererMu sync.Mutex
	// Renderers are cached by style + wrap width. The style is always passed in
	// explicitly; glamour's auto style would query the terminal.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// RenderMarkdown renders md for a terminal of the given width using the
// palette for t. On any renderer error the input is returned unchanged.
func RenderMarkdown(md string, width int, t theme.Theme) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	styleName := markdownStyle(t)
	key := styleName + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(markdownStyleConfig(styleName)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		// Re-check in case a concurrent goroutine filled it.
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// RenderProblemsTerminal renders pl the same way `export` writes it, styled for
// the terminal.
func RenderProblemsTerminal(pl model.ProblemList, d model.Difficulty, limit int, t theme.Theme, width int) string {
	doc := publish.RenderProblemsMarkdown(pl, publish.RenderOptions{Difficulty: d, Limit: limit})
	return RenderMarkdown(doc, width, t)
}

func markdownStyle(t theme.Theme) string {
	if t == theme.Dark {
		return styles.DarkStyle
	}
	return styles.LightStyle
}

func markdownStyleConfig(styleName string) ansi.StyleConfig {
	if styleName == styles.LightStyle {
		cfg := styles.LightStyleConfig
		applyMarkdownPalette(&cfg, styleName)
		return cfg
	}
	cfg := styles.DarkStyleConfig
	applyMarkdownPalette(&cfg, styleName)
	return cfg
}

// applyMarkdownPalette aligns headings, code and body text with the TUI's
// surface colors. Link styles are left as glamour ships them.
func applyMarkdownPalette(cfg *ansi.StyleConfig, styleName string) {
	headingColor := mdColor(colorSurfaceFg, styleName)
	cfg.Heading.Color = headingColor
	cfg.H1.Color = headingColor
	cfg.H2.Color = headingColor
	cfg.H3.Color = headingColor

	cfg.Code.Color = mdColor(colorSurfaceFg, styleName)
	cfg.CodeBlock.Color = mdColor(colorSurfaceFg, styleName)
	if cfg.CodeBlock.BackgroundColor == nil {
		cfg.CodeBlock.BackgroundColor = mdColor(colorControlBg, styleName)
	}
	cfg.Text.Color = mdColor(colorSurfaceFg, styleName)

	cfg.Strong.Color = nil
	cfg.Emph.Color = nil
	cfg.BlockQuote.Faint = mdBoolPtr(false)
}

func mdColor(c lipgloss.AdaptiveColor, styleName string) *string {
	if styleName == styles.LightStyle {
		return mdStrPtr(c.Light)
	}
	return mdStrPtr(c.Dark)
}

func mdStrPtr(s string) *string { return &s }
func mdBoolPtr(b bool) *bool    { return &b }
