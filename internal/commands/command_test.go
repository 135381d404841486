package commands

import (
	"errors"
	"testing"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/event Lecture from 2026-03-02 09:00 to 2026-03-02 10:00", TypeEvent},
		{"task Essay due 2026-03-10 23:59 need 4h session 2h", TypeTask},
		{"plan essay", TypePlan},
		{"done essay session-1", TypeDone},
		{"remove lecture", TypeRemove},
		{"show free 2026-03-02", TypeShow},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseEventSplitsNameAndTimes(t *testing.T) {
	cmd, err := Parse("/event Linear Algebra from 2026-03-02 09:00 to 2026-03-02 10:30")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Event.Name != "Linear Algebra" {
		t.Fatalf("unexpected name: %q", cmd.Event.Name)
	}
	if cmd.Event.Start != "2026-03-02 09:00" || cmd.Event.End != "2026-03-02 10:30" {
		t.Fatalf("unexpected times: %q / %q", cmd.Event.Start, cmd.Event.End)
	}
}

func TestParseTaskOptionalClauses(t *testing.T) {
	cmd, err := Parse("task Term paper due 2026-03-10 23:59 need 6h session 90m")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	args := cmd.Task
	if args.Name != "Term paper" || args.Due != "2026-03-10 23:59" {
		t.Fatalf("unexpected task args: %#v", args)
	}
	if args.Need != "6h" || args.Session != "90m" {
		t.Fatalf("unexpected durations: %#v", args)
	}

	cmd, err = Parse("task Reading due 2026-03-05 18:00")
	if err != nil {
		t.Fatalf("parse minimal task failed: %v", err)
	}
	if cmd.Task.Need != "" || cmd.Task.Session != "" {
		t.Fatalf("expected empty optional clauses: %#v", cmd.Task)
	}
}

func TestParseRejectsMalformedEvent(t *testing.T) {
	for _, in := range []string{
		"event from 2026-03-02 09:00 to 2026-03-02 10:00", // no name
		"event Lecture from 2026-03-02 09:00",             // no end
		"event Lecture to 2026-03-02 10:00",               // no start
	} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("parse %q: expected invalid argument, got %v", in, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestParseRejectsUnknownShowSubject(t *testing.T) {
	_, err := Parse("show everything")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/task Essay due 2026-03-10 23:59 need 4h")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Task: func(a TaskArgs) (Result, error) {
			called = true
			if a.Name != "Essay" || a.Need != "4h" {
				t.Fatalf("unexpected args: %#v", a)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("show agenda")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
