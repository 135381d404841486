package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Event  func(EventArgs) (Result, error)
	Task   func(TaskArgs) (Result, error)
	Plan   func(PlanArgs) (Result, error)
	Done   func(DoneArgs) (Result, error)
	Remove func(RemoveArgs) (Result, error)
	Show   func(ShowArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeEvent:
		if handlers.Event == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "event handler not configured"}
		}
		return handlers.Event(*cmd.Event)
	case TypeTask:
		if handlers.Task == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "task handler not configured"}
		}
		return handlers.Task(*cmd.Task)
	case TypePlan:
		if handlers.Plan == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "plan handler not configured"}
		}
		return handlers.Plan(*cmd.Plan)
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "done handler not configured"}
		}
		return handlers.Done(*cmd.Done)
	case TypeRemove:
		if handlers.Remove == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "remove handler not configured"}
		}
		return handlers.Remove(*cmd.Remove)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "show handler not configured"}
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
