package update

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"plannerd/internal/views"
)

func (m Model) handleAgendaKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "j", "down":
		if m.Agenda.Cursor < len(m.Agenda.Items)-1 {
			m.Agenda.Cursor++
			m.agendaList.Select(m.Agenda.Cursor)
			m.syncSelectionToAgendaCursor()
		}
	case "k", "up":
		if m.Agenda.Cursor > 0 {
			m.Agenda.Cursor--
			m.agendaList.Select(m.Agenda.Cursor)
			m.syncSelectionToAgendaCursor()
		}
	case "enter":
		if m.Agenda.Cursor >= 0 && m.Agenda.Cursor < len(m.Agenda.Items) {
			item := m.Agenda.Items[m.Agenda.Cursor]
			if day, err := time.ParseInLocation("2006-01-02", item.Date, m.Day.Date.Location()); err == nil {
				m.Day.Date = day
				m.refreshDay()
				m.CurrentView = ViewDay
			}
		}
	}
	return m
}

func (m Model) renderAgendaView() string {
	from := dayOf(m.now())
	to := from.AddDate(0, 0, m.horizonDays())

	items := make([]views.AgendaItemData, 0, len(m.Agenda.Items))
	for _, item := range m.Agenda.Items {
		items = append(items, views.AgendaItemData{
			ID:    item.ID,
			Title: item.Title,
			Date:  item.Date,
			Time:  item.Time,
			Kind:  item.Kind,
		})
	}
	var selected *views.AgendaItemData
	description := ""
	if m.Agenda.Cursor >= 0 && m.Agenda.Cursor < len(items) {
		selected = &items[m.Agenda.Cursor]
		if ev, err := m.Store.Get(selected.ID); err == nil {
			description = ev.Description
		}
	}
	return views.RenderAgendaPanel(views.AgendaPanelData{
		From:                from.Format("2006-01-02"),
		To:                  to.Format("2006-01-02"),
		Items:               items,
		Selected:            selected,
		SelectedDescription: description,
	})
}
