package update

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"plannerd/internal/alert"
	"plannerd/internal/config"
	"plannerd/internal/recurrence"
	"plannerd/internal/store"
	"plannerd/internal/worksession"
)

// Deps carries the domain services the TUI operates on. Alerts and Cfg may
// be nil; everything else is required.
type Deps struct {
	Store   *store.Store
	Engine  *recurrence.Engine
	Planner *worksession.Scheduler
	Alerts  *alert.Engine
	Cfg     *config.Config
	Now     func() time.Time
}

func NewModel(deps Deps) Model {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	commandInput := textinput.New()
	commandInput.Placeholder = "event Lecture from 2026-03-02 09:00 to 2026-03-02 10:30"
	commandInput.CharLimit = 200
	commandInput.Width = 56

	agendaList := list.New(nil, list.NewDefaultDelegate(), 58, 14)
	agendaList.Title = "Agenda"
	agendaList.SetShowStatusBar(false)
	agendaList.SetFilteringEnabled(false)
	agendaList.SetShowHelp(false)

	dayTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Start", Width: 7},
			{Title: "End", Width: 7},
			{Title: "What", Width: 30},
			{Title: "Kind", Width: 9},
		}),
		table.WithHeight(12),
	)

	syncSpinner := spinner.New()
	syncSpinner.Spinner = spinner.Dot

	m := Model{
		CurrentView: ViewAgenda,
		Status:      StatusBar{Text: "ready", IsError: false},
		Keys: GlobalKeyMap{
			Agenda:   "1",
			Day:      "2",
			Sessions: "3",
			Free:     "4",
			Help:     "?",
			Quit:     "q",
		},
		Store:   deps.Store,
		Engine:  deps.Engine,
		Planner: deps.Planner,
		Alerts:  deps.Alerts,
		Cfg:     deps.Cfg,
		Day:     DayState{Date: dayOf(now())},

		now:          now,
		notifier:     NoopNotifier{},
		agendaList:   agendaList,
		dayTable:     dayTable,
		commandInput: commandInput,
		syncSpinner:  syncSpinner,
		helpModel:    help.New(),
	}
	m.refreshAgenda()
	m.refreshDay()
	return m
}

// SetNotifier swaps the desktop notification backend.
func (m *Model) SetNotifier(n DesktopNotifier) {
	if n != nil {
		m.notifier = n
	}
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type RefreshMsg struct{}

type AlertDueMsg struct {
	Alert alert.Alert
}

func waitForAlertCmd(ch <-chan alert.Alert) tea.Cmd {
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return nil
		}
		return AlertDueMsg{Alert: a}
	}
}

// rearmAlerts rebuilds the alert queue from the current schedule. Called
// after every mutation so trigger times track the data.
func (m *Model) rearmAlerts() {
	if m.Alerts == nil {
		return
	}
	lead := 10 * time.Minute
	m.Alerts.Reset()
	for _, a := range alert.PlanSchedule(m.Store, m.now(), lead) {
		if err := m.Alerts.Schedule(a); err != nil {
			m.LastError = err
		}
	}
}

func (m *Model) notify(title, body, level string) {
	if m.notifier == nil {
		return
	}
	_ = m.notifier.Send(title, body, level)
}

func levelFromError(isError bool) string {
	if isError {
		return "error"
	}
	return "info"
}

type DesktopNotifier interface {
	Send(title, body, level string) error
}

type NoopNotifier struct{}

func (NoopNotifier) Send(string, string, string) error { return nil }

// ExecNotifier shells out to the platform notification tool. Errors are
// returned but callers treat delivery as best-effort.
type ExecNotifier struct{}

func (ExecNotifier) Send(title, body, _ string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		return exec.Command("osascript", "-e", script).Run()
	case "linux":
		return exec.Command("notify-send", title, body).Run()
	default:
		return fmt.Errorf("update: desktop notifications unsupported on %s", runtime.GOOS)
	}
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
