package tui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"leetbot-cli/internal/docs"
	"leetbot-cli/internal/model"
	"leetbot-cli/internal/selection"
	"leetbot-cli/internal/theme"
)

type pane int

const (
	paneCompanies pane = iota
	paneTimeframes
	paneProblems
	paneCount
)

// viewChangedMsg signals that the selection controller published a view.
// The model re-reads the controller instead of trusting a possibly dropped
// or reordered payload.
type viewChangedMsg struct{}

type themeChangedMsg struct{ theme theme.Theme }

type appModel struct {
	sel    *selection.Controller
	themes *theme.Controller
	log    *slog.Logger

	viewSub  int
	viewCh   <-chan selection.View
	themeSub int
	themeCh  <-chan theme.Theme

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	companies  list.Model
	timeframes list.Model
	problems   table.Model
	rows       []model.Problem
	docs       viewport.Model
	showDocs   bool

	focus  pane
	view   selection.View
	theme  theme.Theme
	chrome chrome
	status string

	width  int
	height int
}

func newAppModel(sel *selection.Controller, themes *theme.Controller, log *slog.Logger) appModel {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	m := appModel{
		sel:        sel,
		themes:     themes,
		log:        log,
		keys:       defaultKeyMap(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		companies:  newList("Companies", true),
		timeframes: newList("Timeframes", false),
		problems: table.New(
			table.WithColumns(problemColumns(60)),
			table.WithFocused(false),
		),
		docs:  viewport.New(0, 0),
		theme: themes.Theme(),
	}
	m.chrome = newChrome(m.theme)
	m.problems.SetStyles(tableStyles())
	m.viewSub, m.viewCh = sel.Subscribe(16)
	m.themeSub, m.themeCh = themes.Subscribe(4)
	m.applyView(sel.View())
	return m
}

// close drops the model's subscriptions.
func (m appModel) close() {
	m.sel.Unsubscribe(m.viewSub)
	m.themes.Unsubscribe(m.themeSub)
}

func waitForView(ch <-chan selection.View) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return viewChangedMsg{}
	}
}

func waitForTheme(ch <-chan theme.Theme) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return themeChangedMsg{theme: t}
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitForView(m.viewCh), waitForTheme(m.themeCh), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case viewChangedMsg:
		m.applyView(m.sel.View())
		return m, waitForView(m.viewCh)

	case themeChangedMsg:
		m.theme = msg.theme
		m.chrome = newChrome(msg.theme)
		m.problems.SetStyles(tableStyles())
		if m.showDocs {
			m.renderDocs()
		}
		return m, waitForTheme(m.themeCh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clipboardDoneMsg:
		m.status = "Copied URL"
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		}
		return m, nil

	case urlOpenDoneMsg:
		if msg.err != nil {
			m.status = "Open failed: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showDocs {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Back):
			m.showDocs = false
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.docs, cmd = m.docs.Update(msg)
		return m, cmd
	}

	// While typing a filter every key belongs to the list.
	if m.focus == paneCompanies && m.companies.FilterState() == list.Filtering {
		return m.updateCompanies(msg)
	}

	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showDocs = true
		m.renderDocs()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.log.Debug("refresh requested")
		m.sel.Refresh()
		return m, nil
	case key.Matches(msg, m.keys.Theme):
		t := m.themes.Toggle()
		m.log.Debug("theme toggled", "theme", string(t))
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.setFocus((m.focus + 1) % paneCount)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.setFocus((m.focus + paneCount - 1) % paneCount)
		return m, nil
	case key.Matches(msg, m.keys.Select):
		return m.selectFocused()
	case key.Matches(msg, m.keys.Back):
		if m.focus == paneCompanies {
			if m.companies.FilterState() != list.Unfiltered {
				m.companies.ResetFilter()
			}
			m.sel.Preview("")
			return m, nil
		}
		m.setFocus(m.focus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if p, ok := m.selectedProblem(); ok {
			return m, openURLCmd(p.URL)
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		if p, ok := m.selectedProblem(); ok {
			return m, copyToClipboardCmd(p.URL)
		}
		return m, nil
	}

	switch m.focus {
	case paneCompanies:
		return m.updateCompanies(msg)
	case paneTimeframes:
		var cmd tea.Cmd
		m.timeframes, cmd = m.timeframes.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.problems, cmd = m.problems.Update(msg)
		return m, cmd
	}
}

// updateCompanies forwards msg to the company list and previews the company
// under the cursor when it moves.
func (m appModel) updateCompanies(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := selectedID(m.companies)
	var cmd tea.Cmd
	m.companies, cmd = m.companies.Update(msg)
	if after := selectedID(m.companies); after != "" && after != before {
		m.sel.Preview(after)
	}
	return m, cmd
}

func (m appModel) selectFocused() (tea.Model, tea.Cmd) {
	switch m.focus {
	case paneCompanies:
		id := selectedID(m.companies)
		if id == "" {
			return m, nil
		}
		m.sel.SetCompany(id)
		m.setFocus(paneTimeframes)
	case paneTimeframes:
		id := selectedID(m.timeframes)
		if id == "" {
			return m, nil
		}
		m.sel.SetTimeframe(id)
		m.setFocus(paneProblems)
	case paneProblems:
		if p, ok := m.selectedProblem(); ok {
			return m, openURLCmd(p.URL)
		}
	}
	return m, nil
}

func (m *appModel) setFocus(p pane) {
	if p < 0 || p >= paneCount {
		return
	}
	m.focus = p
	if p == paneProblems {
		m.problems.Focus()
	} else {
		m.problems.Blur()
	}
}

func (m appModel) selectedProblem() (model.Problem, bool) {
	if m.focus != paneProblems {
		return model.Problem{}, false
	}
	i := m.problems.Cursor()
	if i < 0 || i >= len(m.rows) {
		return model.Problem{}, false
	}
	return m.rows[i], true
}

// applyView syncs the lists and table with v.
func (m *appModel) applyView(v selection.View) {
	m.view = v
	sel := v.Selection

	setListItems(&m.companies, v.CompanyList(), sel.ActiveCompany(), func(id string) list.Item { return companyItem{id: id} })
	setListItems(&m.timeframes, v.TimeframeList(), sel.Timeframe, func(id string) list.Item { return timeframeItem{id: id} })

	var problems []model.Problem
	if pl, ok := v.ProblemList(); ok && v.ProblemsEnabled {
		problems = pl.Problems
	}
	if !sameProblems(m.rows, problems) {
		m.rows = problems
		m.problems.SetRows(problemRows(problems))
		m.problems.SetCursor(0)
	}
}

func sameProblems(a, b []model.Problem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *appModel) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.help.Width = m.width
	cw, tw, pw := paneWidths(m.width)
	h := m.bodyHeight() - 3 // border plus pane title
	if h < 1 {
		h = 1
	}
	m.companies.SetSize(cw-2, h)
	m.timeframes.SetSize(tw-2, h)
	m.problems.SetColumns(problemColumns(pw - 2))
	m.problems.SetWidth(pw - 2)
	m.problems.SetHeight(h)

	m.docs.Width = m.width
	m.docs.Height = m.height - 2
	if m.showDocs {
		m.renderDocs()
	}
}

func (m appModel) bodyHeight() int {
	// Header (text + border) and footer (status + help).
	return m.height - 4
}

func (m *appModel) renderDocs() {
	body, _ := docs.Get("overview")
	m.docs.SetContent(RenderMarkdown(body, m.width, m.theme))
	m.docs.GotoTop()
}

func problemColumns(width int) []table.Column {
	const (
		idW    = 5
		diffW  = 10
		pctW   = 7
		spacer = 10
	)
	titleW := width - idW - diffW - 2*pctW - spacer
	if titleW < 12 {
		titleW = 12
	}
	return []table.Column{
		{Title: "#", Width: idW},
		{Title: "Title", Width: titleW},
		{Title: "Difficulty", Width: diffW},
		{Title: "Acc.", Width: pctW},
		{Title: "Freq.", Width: pctW},
	}
}

func problemRows(problems []model.Problem) []table.Row {
	rows := make([]table.Row, 0, len(problems))
	for _, p := range problems {
		rows = append(rows, table.Row{
			strconv.Itoa(p.ID),
			p.Title,
			string(p.Difficulty),
			fmt.Sprintf("%.1f%%", p.Acceptance),
			fmt.Sprintf("%.1f%%", p.Frequency),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(false)
	return s
}

func (m appModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	if m.showDocs {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.chrome.header.Width(m.width).Render("leetbot · help (esc to close)"),
			m.docs.View(),
		)
	}

	cw, tw, pw := paneWidths(m.width)
	bh := m.bodyHeight()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPane(paneCompanies, "Companies", m.companies.View(), cw, bh),
		m.renderPane(paneTimeframes, "Timeframes", m.timeframes.View(), tw, bh),
		m.renderPane(paneProblems, m.problemsTitle(), m.problemsBody(), pw, bh),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		normalizePane(m.statusLine(), m.width, 1),
		m.help.View(m.keys),
	)
}

func (m appModel) renderHeader() string {
	sel := m.view.Selection
	crumbs := []string{"leetbot"}
	if c := sel.ActiveCompany(); c != "" {
		label := model.CompanyLabel(c)
		if sel.PreviewCompany != "" && sel.PreviewCompany != sel.Company {
			label += " (preview)"
		}
		crumbs = append(crumbs, label)
	}
	if sel.Timeframe != "" {
		crumbs = append(crumbs, model.TimeframeLabel(sel.Timeframe))
	}
	left := strings.Join(crumbs, " › ")
	badge := m.chrome.badge.Render(string(m.theme))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - 2
	if gap < 1 {
		gap = 1
	}
	return m.chrome.header.Width(m.width).Render(left + strings.Repeat(" ", gap) + badge)
}

func (m appModel) renderPane(p pane, title, content string, width, height int) string {
	st := m.chrome.pane
	if m.focus == p {
		st = m.chrome.paneFocused
	}
	inner := m.chrome.paneTitle.Render(truncate(title, width-2)) + "\n" + content
	return st.Render(normalizePane(inner, width-2, height-2))
}

func (m appModel) problemsTitle() string {
	pl, ok := m.view.ProblemList()
	if !ok || !m.view.ProblemsEnabled {
		return "Problems"
	}
	counts := map[model.Difficulty]int{}
	for _, p := range pl.Problems {
		counts[p.Difficulty]++
	}
	parts := []string{fmt.Sprintf("Problems (%d)", len(pl.Problems))}
	for _, d := range []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard} {
		if n := counts[d]; n > 0 {
			parts = append(parts, lipgloss.NewStyle().Foreground(difficultyColor(string(d))).Render(fmt.Sprintf("%s %d", d, n)))
		}
	}
	return strings.Join(parts, "  ")
}

func (m appModel) problemsBody() string {
	v := m.view
	switch {
	case !v.ProblemsEnabled:
		return m.chrome.muted.Render("Select a company and a timeframe.")
	case !v.Problems.HasValue && v.Problems.Err != nil:
		return m.chrome.err.Render(v.Error)
	case !v.Problems.HasValue:
		return m.spinner.View() + " Loading problems…"
	}
	return m.problems.View()
}

func (m appModel) statusLine() string {
	switch {
	case m.status != "":
		return m.chrome.muted.Render(m.status)
	case m.view.Error != "":
		return m.chrome.err.Render(m.view.Error)
	case m.view.Loading:
		return m.spinner.View() + m.chrome.muted.Render(" Loading…")
	}
	return ""
}
