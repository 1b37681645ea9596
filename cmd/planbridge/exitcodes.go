package main

import (
	"github.com/planbridge/planbridge/pkg/migrate"
	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK          = 0
	exitValidation  = 2
	exitUsage       = 3
	exitSourceAPI   = 4
	exitTargetWrite = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if ok := as(err, &ce); ok {
		return ce.code
	}
	return 1
}

// resultExitCode maps one project's failure onto an exit code. Target-side
// errors rank above source-side ones because they can leave partial rows
// behind.
func resultExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var se *sheetapi.Error
	if as(err, &se) {
		return exitTargetWrite
	}
	var pe *planapi.Error
	if as(err, &pe) {
		return exitSourceAPI
	}
	var fe *migrate.FailureError
	if as(err, &fe) {
		if fe.Kind == migrate.KindValidation {
			return exitValidation
		}
		return exitTargetWrite
	}
	return 1
}

func worstExitCode(results []migrate.Result) int {
	worst := exitOK
	for _, res := range results {
		if code := resultExitCode(res.Err); code > worst {
			worst = code
		}
	}
	return worst
}
