package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/planbridge/planbridge/pkg/migrate"
	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	if got := exitCode(nil); got != exitOK {
		t.Fatalf("nil error: got %d", got)
	}
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Fatalf("plain error: got %d", got)
	}
	wrapped := fmt.Errorf("run: %w", withCode(exitUsage, errors.New("bad flag")))
	if got := exitCode(wrapped); got != exitUsage {
		t.Fatalf("wrapped cli error: got %d", got)
	}
}

func TestResultExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"none", nil, exitOK},
		{
			"sheet service",
			fmt.Errorf("add rows: %w", &sheetapi.Error{StatusCode: 500, Message: "oops"}),
			exitTargetWrite,
		},
		{
			"plan service",
			fmt.Errorf("list tasks: %w", &planapi.Error{StatusCode: 502, Message: "down"}),
			exitSourceAPI,
		},
		{
			"validation failure",
			&migrate.FailureError{Kind: migrate.KindValidation, Op: "load", Err: errors.New("bad input")},
			exitValidation,
		},
		{
			"escalated failure",
			&migrate.FailureError{Kind: migrate.KindEscalated, Op: "add rows", Err: errors.New("row count mismatch")},
			exitTargetWrite,
		},
		{
			"failure wrapping sheet error",
			&migrate.FailureError{
				Kind: migrate.KindTransient,
				Op:   "add rows",
				Err:  &sheetapi.Error{StatusCode: 429, Message: "slow down"},
			},
			exitTargetWrite,
		},
		{"unclassified", errors.New("boom"), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resultExitCode(tc.err); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWorstExitCode(t *testing.T) {
	t.Parallel()

	results := []migrate.Result{
		{},
		{Err: &migrate.FailureError{Kind: migrate.KindValidation, Op: "load", Err: errors.New("bad")}},
		{Err: fmt.Errorf("list tasks: %w", &planapi.Error{StatusCode: 503})},
	}
	if got := worstExitCode(results); got != exitSourceAPI {
		t.Fatalf("got %d, want %d", got, exitSourceAPI)
	}
	if got := worstExitCode(nil); got != exitOK {
		t.Fatalf("empty results: got %d", got)
	}
}
