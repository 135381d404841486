package update

import (
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"

	"plannerd/internal/model"
	"plannerd/internal/store"
)

const clockLayout = "15:04"

// sessionIndex maps work-session identifiers to their parent deadline task.
func (m *Model) sessionIndex() map[string]model.Event {
	out := make(map[string]model.Event)
	for _, ev := range m.Store.AllEvents() {
		for _, session := range ev.WorkSessions {
			out[session.ID] = ev
		}
	}
	return out
}

func (m *Model) kindOf(ev model.Event, sessions map[string]model.Event) string {
	if _, ok := sessions[ev.ID]; ok {
		return "session"
	}
	if ev.SeriesID != "" {
		return "series"
	}
	if !ev.HasStart() {
		return "deadline"
	}
	return "event"
}

func (m *Model) horizonDays() int {
	if m.Cfg != nil && m.Cfg.HorizonDays > 0 {
		return m.Cfg.HorizonDays
	}
	return 7
}

func (m *Model) refreshAgenda() {
	from := dayOf(m.now())
	to := from.AddDate(0, 0, m.horizonDays())
	sessions := m.sessionIndex()

	schedule := m.Store.GetRange(from, to)
	days := make([]time.Time, 0, len(schedule))
	for day := range schedule {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	items := make([]AgendaItem, 0)
	for _, day := range days {
		for _, ev := range schedule[day] {
			clock := ev.End.Format(clockLayout)
			if ev.HasStart() {
				clock = ev.Start.Format(clockLayout)
			}
			items = append(items, AgendaItem{
				ID:    ev.ID,
				Title: ev.Name,
				Date:  day.Format("2006-01-02"),
				Time:  clock,
				Kind:  m.kindOf(ev, sessions),
			})
		}
	}
	m.Agenda.Items = items
	if m.Agenda.Cursor >= len(items) {
		m.Agenda.Cursor = 0
	}
	m.syncSelectionToAgendaCursor()

	listItems := make([]list.Item, 0, len(items))
	for _, item := range items {
		listItems = append(listItems, listItem{
			title:       item.Title,
			description: item.Date + " " + item.Time + " [" + item.Kind + "]",
		})
	}
	m.agendaList.SetItems(listItems)
}

func (m *Model) refreshDay() {
	day := m.Day.Date
	sessions := m.sessionIndex()
	schedule := m.Store.GetRange(day, day)

	rows := make([]DayRow, 0)
	for _, ev := range schedule[day] {
		start := "--:--"
		if ev.HasStart() {
			start = ev.Start.Format(clockLayout)
		}
		done := false
		if parent, ok := sessions[ev.ID]; ok {
			for _, s := range parent.WorkSessions {
				if s.ID == ev.ID && s.Completed {
					done = true
				}
			}
		}
		rows = append(rows, DayRow{
			ID:    ev.ID,
			Start: start,
			End:   ev.End.Format(clockLayout),
			Title: ev.Name,
			Kind:  m.kindOf(ev, sessions),
			Done:  done,
		})
	}
	m.Day.Rows = rows

	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, table.Row{row.Start, row.End, row.Title, row.Kind})
	}
	m.dayTable.SetRows(tableRows)
}

func (m *Model) syncSelectionToAgendaCursor() {
	if m.Agenda.Cursor >= 0 && m.Agenda.Cursor < len(m.Agenda.Items) {
		m.SelectedEventID = m.Agenda.Items[m.Agenda.Cursor].ID
	}
}

// freeWindow resolves the interval the free-time view covers: the rest of
// the focused day, or the full day when it lies in the future.
func (m *Model) freeWindow() (time.Time, time.Time) {
	now := m.now()
	start := m.Day.Date
	if start.Before(now) {
		start = now
	}
	end := m.Day.Date.Add(23*time.Hour + 59*time.Minute)
	return start, end
}

func (m *Model) freeSlots() map[time.Time]time.Duration {
	start, end := m.freeWindow()
	if !start.Before(end) {
		return map[time.Time]time.Duration{}
	}
	return store.FreeSlots(start, m.Store.AllEventsFlatSplit(), end)
}
