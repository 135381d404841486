package update

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"plannerd/internal/model"
	"plannerd/internal/store"
	"plannerd/internal/views"
)

func (m Model) handleSessionsKey(msg tea.KeyMsg) Model {
	task, err := m.sessionsTask()
	if err != nil {
		return m
	}
	sessions := store.TimeOrder(task.WorkSessions)

	switch msg.String() {
	case "j", "down":
		if m.Sessions.Cursor < len(sessions)-1 {
			m.Sessions.Cursor++
		}
	case "k", "up":
		if m.Sessions.Cursor > 0 {
			m.Sessions.Cursor--
		}
	case " ":
		if m.Sessions.Cursor >= 0 && m.Sessions.Cursor < len(sessions) {
			session := sessions[m.Sessions.Cursor]
			var err error
			if session.Completed {
				err = m.Planner.MarkIncomplete(task.ID, session.ID)
			} else {
				err = m.Planner.MarkComplete(task.ID, session.ID)
			}
			if err != nil {
				m.Status = StatusBar{Text: err.Error(), IsError: true}
			} else {
				m.refreshAgenda()
				m.refreshDay()
			}
		}
	case "p":
		if err := m.Planner.Schedule(task.ID, m.sessionLengthFor(task.SessionLength)); err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
		} else {
			m.Status = StatusBar{Text: "sessions replanned for " + task.Name, IsError: false}
		}
		m.refreshAgenda()
		m.refreshDay()
		m.rearmAlerts()
	}
	return m
}

func (m Model) renderSessionsView() string {
	task, err := m.sessionsTask()
	if err != nil {
		return views.RenderSessionsPanel(views.SessionsPanelData{})
	}

	now := m.now()
	sessions := store.TimeOrder(task.WorkSessions)
	rows := make([]views.SessionRowData, 0, len(sessions))
	selectedID := ""
	var scheduled time.Duration
	for i, session := range sessions {
		if i == m.Sessions.Cursor {
			selectedID = session.ID
		}
		scheduled += session.Duration()
		rows = append(rows, views.SessionRowData{
			ID:    session.ID,
			Start: session.EffectiveStart().Format("2006-01-02 15:04"),
			End:   session.End.Format("15:04"),
			Done:  session.Completed,
			Past:  session.End.Before(now),
		})
	}
	return views.RenderSessionsPanel(views.SessionsPanelData{
		TaskTitle:  task.Name,
		Due:        task.End.Format("2006-01-02 15:04"),
		Needed:     task.HoursNeeded.String(),
		Scheduled:  scheduled.String(),
		Rows:       rows,
		SelectedID: selectedID,
	})
}

func (m Model) sessionsTask() (model.Event, error) {
	return m.Store.Get(m.Sessions.TaskID)
}

func (m Model) sessionLengthFor(configured time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	if m.Cfg != nil {
		return m.Cfg.SessionDuration()
	}
	return time.Hour
}
