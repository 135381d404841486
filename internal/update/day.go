package update

import (
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"plannerd/internal/views"
)

func (m Model) handleDayKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "h", "left":
		m.Day.Date = m.Day.Date.AddDate(0, 0, -1)
		m.refreshDay()
	case "l", "right":
		m.Day.Date = m.Day.Date.AddDate(0, 0, 1)
		m.refreshDay()
	case "t":
		m.Day.Date = dayOf(m.now())
		m.refreshDay()
	case "j", "down":
		m.dayTable.MoveDown(1)
	case "k", "up":
		m.dayTable.MoveUp(1)
	}
	return m
}

func (m Model) renderDayView() string {
	rows := make([]views.DayRowData, 0, len(m.Day.Rows))
	for _, row := range m.Day.Rows {
		rows = append(rows, views.DayRowData{
			ID:    row.ID,
			Start: row.Start,
			End:   row.End,
			Title: row.Title,
			Kind:  row.Kind,
			Done:  row.Done,
		})
	}
	return views.RenderDayPanel(views.DayPanelData{
		Date:      m.Day.Date.Format("2006-01-02 Mon"),
		TableView: m.dayTable.View(),
		Rows:      rows,
	})
}

func (m Model) renderFreeView() string {
	start, end := m.freeWindow()
	free := m.freeSlots()

	starts := make([]time.Time, 0, len(free))
	for at := range free {
		starts = append(starts, at)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	slots := make([]views.FreeSlotData, 0, len(starts))
	var total time.Duration
	for _, at := range starts {
		slots = append(slots, views.FreeSlotData{
			Start:  at.Format("15:04"),
			Length: free[at].String(),
		})
		total += free[at]
	}
	return views.RenderFreePanel(views.FreePanelData{
		From:  start.Format("2006-01-02 15:04"),
		To:    end.Format("2006-01-02 15:04"),
		Slots: slots,
		Total: fmt.Sprintf("%v", total),
	})
}
