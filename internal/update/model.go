package update

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"

	"plannerd/internal/alert"
	"plannerd/internal/config"
	"plannerd/internal/recurrence"
	"plannerd/internal/store"
	"plannerd/internal/worksession"
)

type View string

const (
	ViewAgenda   View = "Agenda"
	ViewDay      View = "Day"
	ViewSessions View = "Sessions"
	ViewFree     View = "Free"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Agenda   string
	Day      string
	Sessions string
	Free     string
	Help     string
	Quit     string
}

type AgendaItem struct {
	ID    string
	Title string
	Date  string
	Time  string
	Kind  string
}

type AgendaState struct {
	Items  []AgendaItem
	Cursor int
}

type DayRow struct {
	ID    string
	Start string
	End   string
	Title string
	Kind  string
	Done  bool
}

type DayState struct {
	Date time.Time
	Rows []DayRow
}

type SessionsState struct {
	TaskID string
	Cursor int
}

type CommandLineState struct {
	Active bool
	Input  string
}

type Model struct {
	CurrentView     View
	SelectedEventID string
	Agenda          AgendaState
	Day             DayState
	Sessions        SessionsState
	CommandLine     CommandLineState
	HelpVisible     bool
	Status          StatusBar
	Keys            GlobalKeyMap
	AlertLog        []alert.Alert
	Quitting        bool
	LastError       error

	Store   *store.Store
	Engine  *recurrence.Engine
	Planner *worksession.Scheduler
	Alerts  *alert.Engine
	Cfg     *config.Config

	now      func() time.Time
	notifier DesktopNotifier

	// Bubble components used for rich TUI controls
	agendaList   list.Model
	dayTable     table.Model
	commandInput textinput.Model
	syncSpinner  spinner.Model
	helpModel    help.Model

	spinnerActive bool
}

type listItem struct {
	title       string
	description string
}

func (i listItem) FilterValue() string { return i.title + " " + i.description }
func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.description }
