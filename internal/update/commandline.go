package update

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"plannerd/internal/commands"
	"plannerd/internal/model"
	"plannerd/internal/store"
	"plannerd/internal/views"
	"plannerd/internal/worksession"
)

func (m Model) handleCommandKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.CommandLine.Active = false
		m.CommandLine.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command line closed", IsError: false}
	case "enter":
		m.CommandLine.Input = m.commandInput.Value()
		m = m.executeCommand()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.CommandLine.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.CommandLine.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) executeCommand() Model {
	raw := strings.TrimSpace(m.CommandLine.Input)
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.CommandLine.Active = false
		m.CommandLine.Input = ""
		return m
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Event:  m.handleEventCommand,
		Task:   m.handleTaskCommand,
		Plan:   m.handlePlanCommand,
		Done:   m.handleDoneCommand,
		Remove: m.handleRemoveCommand,
		Show:   m.handleShowCommand,
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
	} else {
		m.Status = StatusBar{Text: res.Message, IsError: false}
		m.notify("Command", res.Message, "info")
		m.refreshAgenda()
		m.refreshDay()
		m.rearmAlerts()
	}

	m.CommandLine.Active = false
	m.CommandLine.Input = ""
	m.commandInput.SetValue("")
	return m
}

func (m Model) handleEventCommand(a commands.EventArgs) (commands.Result, error) {
	loc := m.now().Location()
	start, err := time.ParseInLocation(store.TimeLayout, a.Start, loc)
	if err != nil {
		return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("bad start time %q, want %s", a.Start, store.TimeLayout)}
	}
	end, err := time.ParseInLocation(store.TimeLayout, a.End, loc)
	if err != nil {
		return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("bad end time %q, want %s", a.End, store.TimeLayout)}
	}
	ev, err := m.Store.CreateTimed(a.Name, start, end)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("event added: %s (%s)", ev.Name, ev.ID)}, nil
}

func (m Model) handleTaskCommand(a commands.TaskArgs) (commands.Result, error) {
	loc := m.now().Location()
	due, err := time.ParseInLocation(store.TimeLayout, a.Due, loc)
	if err != nil {
		return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("bad due time %q, want %s", a.Due, store.TimeLayout)}
	}
	ev, err := m.Store.Create(a.Name, due)
	if err != nil {
		return commands.Result{}, err
	}
	if a.Need != "" {
		need, err := time.ParseDuration(a.Need)
		if err != nil {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("bad need duration %q", a.Need)}
		}
		if err := m.Store.SetHoursNeeded(ev.ID, need); err != nil {
			return commands.Result{}, err
		}
	}
	if a.Session != "" {
		length, err := time.ParseDuration(a.Session)
		if err != nil {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("bad session duration %q", a.Session)}
		}
		if err := m.Store.SetSessionLength(ev.ID, length); err != nil {
			return commands.Result{}, err
		}
	}
	return commands.Result{Message: fmt.Sprintf("task added: %s due %s", ev.Name, due.Format(store.TimeLayout))}, nil
}

func (m *Model) handlePlanCommand(p commands.PlanArgs) (commands.Result, error) {
	task, err := m.findEvent(p.Target)
	if err != nil {
		return commands.Result{}, err
	}
	err = m.Planner.Schedule(task.ID, m.sessionLengthFor(task.SessionLength))
	m.Sessions = SessionsState{TaskID: task.ID}
	m.CurrentView = ViewSessions
	if errors.Is(err, worksession.ErrInsufficientTime) {
		return commands.Result{Message: fmt.Sprintf("planned %s with a shortfall: %v", task.Name, err)}, nil
	}
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("sessions planned for %s", task.Name)}, nil
}

func (m Model) handleDoneCommand(d commands.DoneArgs) (commands.Result, error) {
	task, err := m.findEvent(d.Target)
	if err != nil {
		return commands.Result{}, err
	}
	session, err := resolveSession(task, d.Session)
	if err != nil {
		return commands.Result{}, err
	}
	if err := m.Planner.MarkComplete(task.ID, session.ID); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("session done: %s @ %s", task.Name, session.EffectiveStart().Format(store.TimeLayout))}, nil
}

func (m Model) handleRemoveCommand(r commands.RemoveArgs) (commands.Result, error) {
	if ev, err := m.findEvent(r.Target); err == nil {
		removed, err := m.Store.Remove(ev.ID)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("removed: %s", removed.Name)}, nil
	}
	// Recurring instances live in the engine's cycles, not the store.
	if m.Engine != nil {
		for _, inst := range m.Engine.Instances() {
			if inst.ID == r.Target || strings.EqualFold(inst.Name, r.Target) {
				if err := m.Engine.RemoveInstance(inst.ID); err != nil {
					return commands.Result{}, err
				}
				return commands.Result{Message: fmt.Sprintf("removed instance: %s", inst.Name)}, nil
			}
		}
	}
	return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no event matches %q", r.Target)}
}

func (m *Model) handleShowCommand(s commands.ShowArgs) (commands.Result, error) {
	when := dayOf(m.now())
	if s.When != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s.When, m.now().Location())
		if err != nil {
			return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("bad date %q, want 2006-01-02", s.When)}
		}
		when = parsed
	}
	switch s.Subject {
	case "agenda":
		m.CurrentView = ViewAgenda
	case "day":
		m.Day.Date = when
		m.refreshDay()
		m.CurrentView = ViewDay
	case "free":
		m.Day.Date = when
		m.CurrentView = ViewFree
	}
	return commands.Result{Message: fmt.Sprintf("showing %s", s.Subject)}, nil
}

// findEvent resolves a command target: an exact identifier first, then a
// case-insensitive name match over top-level events.
func (m Model) findEvent(target string) (model.Event, error) {
	if ev, err := m.Store.Get(target); err == nil {
		return ev, nil
	}
	for _, ev := range m.Store.AllEvents() {
		if strings.EqualFold(ev.Name, target) {
			return ev, nil
		}
	}
	return model.Event{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no event matches %q", target)}
}

// resolveSession accepts a session identifier or a 1-based position within
// the task's time-ordered sessions.
func resolveSession(task model.Event, ref string) (model.Event, error) {
	sessions := store.TimeOrder(task.WorkSessions)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return model.Event{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("session %d out of range (task has %d)", n, len(sessions))}
		}
		return sessions[n-1], nil
	}
	for _, session := range sessions {
		if session.ID == ref {
			return session, nil
		}
	}
	return model.Event{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no session matches %q", ref)}
}

func (m Model) renderCommandLine() string {
	return views.RenderCommandLine(views.CommandLineData{
		Active:    m.CommandLine.Active,
		InputView: m.commandInput.View(),
	})
}
