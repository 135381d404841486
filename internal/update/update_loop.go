package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"plannerd/internal/views"
)

func (m Model) Init() tea.Cmd {
	if m.Alerts != nil {
		return waitForAlertCmd(m.Alerts.C())
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.CommandLine.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			next := m.handleCommandKey(typed)
			return next, nil
		}

		switch typed.String() {
		case "/":
			m.CommandLine.Active = true
			m.CommandLine.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command line active", IsError: false}
			return m, nil
		case m.Keys.Agenda:
			m.CurrentView = ViewAgenda
			m.refreshAgenda()
			return m, nil
		case m.Keys.Day:
			m.CurrentView = ViewDay
			m.refreshDay()
			return m, nil
		case m.Keys.Sessions:
			m.CurrentView = ViewSessions
			return m, nil
		case m.Keys.Free:
			m.CurrentView = ViewFree
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case "S":
			if !m.spinnerActive {
				m.spinnerActive = true
				m.Status = StatusBar{Text: "refreshing schedule", IsError: false}
				return m, tea.Batch(m.syncSpinner.Tick, tea.Tick(time.Second, func(time.Time) tea.Msg { return RefreshMsg{} }))
			}
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		switch m.CurrentView {
		case ViewAgenda:
			return m.handleAgendaKey(typed), nil
		case ViewDay, ViewFree:
			return m.handleDayKey(typed), nil
		case ViewSessions:
			return m.handleSessionsKey(typed), nil
		}
	case spinner.TickMsg:
		if m.spinnerActive {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case RefreshMsg:
		m.refreshAgenda()
		m.refreshDay()
		m.rearmAlerts()
		if m.spinnerActive {
			m.spinnerActive = false
			m.Status = StatusBar{Text: "schedule refreshed", IsError: false}
		}
		return m, nil
	case AlertDueMsg:
		m.AlertLog = append(m.AlertLog, typed.Alert)
		if len(m.AlertLog) > 20 {
			m.AlertLog = m.AlertLog[len(m.AlertLog)-20:]
		}
		m.Status = StatusBar{
			Text:    fmt.Sprintf("upcoming %s: %s at %s", typed.Alert.Kind, typed.Alert.Name, typed.Alert.At.Format("15:04")),
			IsError: false,
		}
		m.notify("Upcoming", m.Status.Text, "info")
		if m.Alerts != nil {
			return m, waitForAlertCmd(m.Alerts.C())
		}
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := ""
	switch m.CurrentView {
	case ViewAgenda:
		leftPane = m.renderAgendaView()
	case ViewDay:
		leftPane = m.renderDayView()
	case ViewSessions:
		leftPane = m.renderSessionsView()
	case ViewFree:
		leftPane = m.renderFreeView()
	}
	rightPane := strings.TrimSpace(strings.Join([]string{
		m.renderCommandLine(),
		m.renderHelpIfVisible(),
	}, "\n"))

	alertLine := ""
	if len(m.AlertLog) > 0 {
		last := m.AlertLog[len(m.AlertLog)-1]
		alertLine = fmt.Sprintf("last alert: [%s] %s @ %s", last.Kind, last.Name, last.At.Format("15:04:05"))
	}
	if m.spinnerActive {
		alertLine = strings.TrimSpace(m.syncSpinner.View() + " refreshing | " + alertLine)
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("plannerd | view: %s | selected: %s", m.CurrentView, m.SelectedEventID),
		LeftPane:   leftPane,
		RightPane:  rightPane,
		StatusLine: status,
		AlertLine:  alertLine,
		Footer:     fmt.Sprintf("keys: %s agenda | %s day | %s sessions | %s free | / cmd | %s help | %s quit", m.Keys.Agenda, m.Keys.Day, m.Keys.Sessions, m.Keys.Free, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewAgenda, ViewDay, ViewSessions, ViewFree:
		return true
	default:
		return false
	}
}
