package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"plannerd/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}) + "\n" + views.RenderMarkdown(commandReference),
	})
}

const commandReference = `## Commands

- ` + "`event <name> from <t> to <t>`" + ` add a timed event
- ` + "`task <name> due <t> [need <d>] [session <d>]`" + ` add a deadline task
- ` + "`plan <task>`" + ` schedule work sessions
- ` + "`done <task> <session>`" + ` mark a session complete
- ` + "`remove <ref>`" + ` delete an event
- ` + "`show day|agenda|free [date]`" + ` switch views

Times use ` + "`2006-01-02 15:04`" + `; durations use Go syntax like ` + "`90m`" + `.`

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Agenda, Action: "switch to Agenda"},
		{Key: m.Keys.Day, Action: "switch to Day"},
		{Key: m.Keys.Sessions, Action: "switch to Sessions"},
		{Key: m.Keys.Free, Action: "switch to Free"},
		{Key: "/", Action: "open command line"},
		{Key: "S", Action: "refresh schedule and alerts"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewAgenda:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "enter", Action: "open selected day"},
		}
	case ViewDay, ViewFree:
		return []KeyBinding{
			{Key: "h/l", Action: "previous/next day"},
			{Key: "t", Action: "jump to today"},
			{Key: "j/k", Action: "move table cursor"},
		}
	case ViewSessions:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "space", Action: "toggle session done"},
			{Key: "p", Action: "replan sessions"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	for _, kb := range m.viewBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
