package tui

import (
	"github.com/charmbracelet/bubbles/list"

	"leetbot-cli/internal/model"
)

type companyItem struct{ id string }

func (i companyItem) Title() string       { return model.CompanyLabel(i.id) }
func (i companyItem) Description() string { return i.id }
func (i companyItem) FilterValue() string { return i.id }

type timeframeItem struct{ id string }

func (i timeframeItem) Title() string       { return model.TimeframeLabel(i.id) }
func (i timeframeItem) Description() string { return i.id }
func (i timeframeItem) FilterValue() string { return i.id }

func newList(title string, filtering bool) list.Model {
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	d.SetSpacing(0)

	l := list.New(nil, d, 0, 0)
	l.Title = title
	// The app renders its own pane titles and footer.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(filtering)
	l.DisableQuitKeybindings()

	// Emacs-style aliases.
	l.KeyMap.CursorUp.SetKeys(append(l.KeyMap.CursorUp.Keys(), "ctrl+p")...)
	l.KeyMap.CursorDown.SetKeys(append(l.KeyMap.CursorDown.Keys(), "ctrl+n")...)
	l.KeyMap.GoToStart.SetKeys(append(l.KeyMap.GoToStart.Keys(), "<")...)
	l.KeyMap.GoToEnd.SetKeys(append(l.KeyMap.GoToEnd.Keys(), ">")...)
	// Left/right move between panes.
	l.KeyMap.PrevPage.SetKeys("pgup")
	l.KeyMap.NextPage.SetKeys("pgdown")
	return l
}

// setListItems replaces l's items when ids differ and moves the cursor to
// want when present. A filtered list keeps its cursor.
func setListItems(l *list.Model, ids []string, want string, mk func(string) list.Item) {
	cur := l.Items()
	same := len(cur) == len(ids)
	for i := 0; same && i < len(ids); i++ {
		same = cur[i].FilterValue() == ids[i]
	}
	if !same {
		items := make([]list.Item, 0, len(ids))
		for _, id := range ids {
			items = append(items, mk(id))
		}
		l.SetItems(items)
	}
	if l.FilterState() != list.Unfiltered || want == "" {
		return
	}
	for i, id := range ids {
		if id == want {
			if l.Index() != i {
				l.Select(i)
			}
			return
		}
	}
}

func selectedID(l list.Model) string {
	if it := l.SelectedItem(); it != nil {
		return it.FilterValue()
	}
	return ""
}
