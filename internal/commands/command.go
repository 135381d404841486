// Package commands parses the quick-entry command line used by the TUI and
// dispatches the parsed command to configured handlers.
package commands

import (
	"fmt"
	"strings"
)

type Type string

const (
	TypeEvent  Type = "event"
	TypeTask   Type = "task"
	TypePlan   Type = "plan"
	TypeDone   Type = "done"
	TypeRemove Type = "remove"
	TypeShow   Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// EventArgs describes "event <name> from <start> to <end>". Start and End
// stay raw "2006-01-02 15:04" strings; parsing happens in the handler.
type EventArgs struct {
	Name  string
	Start string
	End   string
}

// TaskArgs describes "task <name> due <when> [need <dur>] [session <dur>]".
type TaskArgs struct {
	Name    string
	Due     string
	Need    string
	Session string
}

type PlanArgs struct {
	Target string
}

type DoneArgs struct {
	Target  string
	Session string
}

type RemoveArgs struct {
	Target string
}

// ShowArgs describes "show day|agenda|free [when]".
type ShowArgs struct {
	Subject string
	When    string
}

type Command struct {
	Type   Type
	Raw    string
	Event  *EventArgs
	Task   *TaskArgs
	Plan   *PlanArgs
	Done   *DoneArgs
	Remove *RemoveArgs
	Show   *ShowArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeEvent:
		return parseEvent(input, args)
	case TypeTask:
		return parseTask(input, args)
	case TypePlan:
		return parsePlan(input, args)
	case TypeDone:
		return parseDone(input, args)
	case TypeRemove:
		return parseRemove(input, args)
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseEvent(raw string, args []string) (Command, error) {
	fromAt := indexOfKeyword(args, "from")
	toAt := indexOfKeyword(args, "to")
	if fromAt <= 0 || toAt <= fromAt+1 || toAt == len(args)-1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "event requires: event <name> from <start> to <end>"}
	}
	return Command{Type: TypeEvent, Raw: raw, Event: &EventArgs{
		Name:  strings.Join(args[:fromAt], " "),
		Start: strings.Join(args[fromAt+1:toAt], " "),
		End:   strings.Join(args[toAt+1:], " "),
	}}, nil
}

func parseTask(raw string, args []string) (Command, error) {
	dueAt := indexOfKeyword(args, "due")
	if dueAt <= 0 || dueAt == len(args)-1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "task requires: task <name> due <when>"}
	}
	out := TaskArgs{Name: strings.Join(args[:dueAt], " ")}

	rest := args[dueAt+1:]
	needAt := indexOfKeyword(rest, "need")
	sessionAt := indexOfKeyword(rest, "session")
	dueEnd := len(rest)
	if needAt >= 0 && needAt < dueEnd {
		dueEnd = needAt
	}
	if sessionAt >= 0 && sessionAt < dueEnd {
		dueEnd = sessionAt
	}
	out.Due = strings.Join(rest[:dueEnd], " ")
	if out.Due == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "task requires a due time"}
	}
	if needAt >= 0 {
		end := len(rest)
		if sessionAt > needAt {
			end = sessionAt
		}
		out.Need = strings.Join(rest[needAt+1:end], " ")
		if out.Need == "" {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "need requires a duration"}
		}
	}
	if sessionAt >= 0 {
		end := len(rest)
		if needAt > sessionAt {
			end = needAt
		}
		out.Session = strings.Join(rest[sessionAt+1:end], " ")
		if out.Session == "" {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "session requires a duration"}
		}
	}
	return Command{Type: TypeTask, Raw: raw, Task: &out}, nil
}

func parsePlan(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "plan requires a task reference"}
	}
	return Command{Type: TypePlan, Raw: raw, Plan: &PlanArgs{Target: args[0]}}, nil
}

func parseDone(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "done requires task and session references"}
	}
	return Command{Type: TypeDone, Raw: raw, Done: &DoneArgs{Target: args[0], Session: args[1]}}, nil
}

func parseRemove(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "remove requires an event reference"}
	}
	return Command{Type: TypeRemove, Raw: raw, Remove: &RemoveArgs{Target: args[0]}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires a subject"}
	}
	subject := strings.ToLower(args[0])
	switch subject {
	case "day", "agenda", "free":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("show subject must be day, agenda or free, got %s", subject)}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{
		Subject: subject,
		When:    strings.Join(args[1:], " "),
	}}, nil
}

func indexOfKeyword(args []string, keyword string) int {
	for i, arg := range args {
		if strings.EqualFold(arg, keyword) {
			return i
		}
	}
	return -1
}
