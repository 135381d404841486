package views

import (
	"fmt"
	"sort"
	"strings"
)

type AgendaItemData struct {
	ID    string
	Title string
	Date  string
	Time  string
	Kind  string
}

type AgendaPanelData struct {
	From                string
	To                  string
	Items               []AgendaItemData
	Selected            *AgendaItemData
	SelectedDescription string
}

type DayRowData struct {
	ID    string
	Start string
	End   string
	Title string
	Kind  string
	Done  bool
}

type DayPanelData struct {
	Date      string
	TableView string
	Rows      []DayRowData
}

type SessionRowData struct {
	ID    string
	Start string
	End   string
	Done  bool
	Past  bool
}

type SessionsPanelData struct {
	TaskTitle  string
	Due        string
	Needed     string
	Scheduled  string
	Rows       []SessionRowData
	SelectedID string
}

type FreeSlotData struct {
	Start  string
	Length string
}

type FreePanelData struct {
	From  string
	To    string
	Slots []FreeSlotData
	Total string
}

type CommandLineData struct {
	Active    bool
	InputView string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderAgendaPanel(data AgendaPanelData) string {
	var b strings.Builder
	b.WriteString("agenda:\n")
	b.WriteString(fmt.Sprintf("window: %s .. %s\n", data.From, data.To))
	b.WriteString("actions: [j/k]move [enter]open day\n")

	grouped := make(map[string][]AgendaItemData)
	keys := make([]string, 0)
	for _, item := range data.Items {
		if _, ok := grouped[item.Date]; !ok {
			keys = append(keys, item.Date)
		}
		grouped[item.Date] = append(grouped[item.Date], item)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		b.WriteString("(nothing scheduled)")
		return b.String()
	}

	for _, day := range keys {
		b.WriteString(fmt.Sprintf("\n%s:\n", day))
		items := grouped[day]
		sort.SliceStable(items, func(i, j int) bool { return items[i].Time < items[j].Time })
		for _, item := range items {
			cursor := " "
			if data.Selected != nil && data.Selected.ID == item.ID {
				cursor = ">"
			}
			b.WriteString(fmt.Sprintf("%s [%s] %s %s\n", cursor, strings.ToUpper(item.Kind), item.Time, item.Title))
		}
	}

	if data.Selected != nil {
		desc := data.SelectedDescription
		if desc == "" {
			desc = "No description provided"
		}
		b.WriteString("\nselected:\n")
		b.WriteString(fmt.Sprintf("id: %s\n", data.Selected.ID))
		b.WriteString(fmt.Sprintf("kind: %s\n", data.Selected.Kind))
		b.WriteString(fmt.Sprintf("when: %s %s\n", data.Selected.Date, data.Selected.Time))
		b.WriteString(fmt.Sprintf("description: %s\n", desc))
	}
	return strings.TrimSpace(b.String())
}

func RenderDayPanel(data DayPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("day: %s\n", data.Date))
	b.WriteString("actions: [h/l]prev/next day [t]today [j/k]move\n")
	if data.TableView != "" {
		b.WriteString(data.TableView + "\n")
	}
	if len(data.Rows) == 0 {
		b.WriteString("(free all day)")
		return b.String()
	}
	for _, row := range data.Rows {
		mark := " "
		if row.Done {
			mark = "x"
		}
		b.WriteString(fmt.Sprintf("[%s] %s-%s %s (%s)\n", mark, row.Start, row.End, row.Title, row.Kind))
	}
	return strings.TrimSpace(b.String())
}

func RenderSessionsPanel(data SessionsPanelData) string {
	var b strings.Builder
	b.WriteString("work sessions:\n")
	if data.TaskTitle == "" {
		b.WriteString("(no deadline task selected; use: plan <task>)")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("task: %s\n", data.TaskTitle))
	b.WriteString(fmt.Sprintf("due: %s | needed: %s | scheduled: %s\n", data.Due, data.Needed, data.Scheduled))
	b.WriteString("actions: [j/k]move [space]toggle done [p]replan\n")
	if len(data.Rows) == 0 {
		b.WriteString("(no sessions planned)")
		return b.String()
	}
	for _, row := range data.Rows {
		cursor := " "
		if row.ID == data.SelectedID {
			cursor = ">"
		}
		mark := " "
		if row.Done {
			mark = "x"
		}
		tag := ""
		if row.Past && !row.Done {
			tag = " (missed)"
		}
		b.WriteString(fmt.Sprintf("%s [%s] %s-%s%s\n", cursor, mark, row.Start, row.End, tag))
	}
	return strings.TrimSpace(b.String())
}

func RenderFreePanel(data FreePanelData) string {
	var b strings.Builder
	b.WriteString("free time:\n")
	b.WriteString(fmt.Sprintf("window: %s .. %s\n", data.From, data.To))
	if len(data.Slots) == 0 {
		b.WriteString("(no free slots)")
		return b.String()
	}
	for _, slot := range data.Slots {
		b.WriteString(fmt.Sprintf("  %s for %s\n", slot.Start, slot.Length))
	}
	b.WriteString(fmt.Sprintf("total free: %s", data.Total))
	return strings.TrimSpace(b.String())
}

func RenderCommandLine(data CommandLineData) string {
	if !data.Active {
		return ""
	}
	var b strings.Builder
	b.WriteString("command:\n")
	b.WriteString(data.InputView + "\n")
	b.WriteString("syntax: event <name> from <t> to <t> | task <name> due <t> [need <d>] [session <d>]\n")
	b.WriteString("        plan <task> | done <task> <session> | remove <ref> | show day|agenda|free\n")
	return strings.TrimSpace(b.String())
}

func RenderHelpPanel(data HelpPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("help (%s):\n", data.CurrentView))
	for _, binding := range data.Bindings {
		b.WriteString(binding + "\n")
	}
	if data.HelpView != "" {
		b.WriteString(data.HelpView)
	}
	return strings.TrimSpace(b.String())
}
