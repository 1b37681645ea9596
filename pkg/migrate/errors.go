package migrate

import (
	"errors"
	"fmt"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

type FailureKind string

const (
	// KindValidation marks input that was rejected before any write.
	KindValidation FailureKind = "validation"
	// KindTransient marks a failure that exhausted its retries.
	KindTransient FailureKind = "transient"
	// KindSchemaConflict marks an existing target column whose type is
	// incompatible with the layout this engine maintains.
	KindSchemaConflict FailureKind = "schema_conflict"
	// KindEscalated marks everything that aborts a project load outright.
	KindEscalated FailureKind = "escalated"
)

// FailureError aborts a project migration. The wrapped cause stays
// inspectable for callers that map failures to exit codes.
type FailureError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

func failure(kind FailureKind, op string, err error) *FailureError {
	return &FailureError{Kind: kind, Op: op, Err: err}
}

// KindOf classifies an error for reporting: explicit failure kinds win,
// then the API clients' own transience, then escalated.
func KindOf(err error) FailureKind {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var se *sheetapi.Error
	if errors.As(err, &se) && se.Transient() {
		return KindTransient
	}
	var pe *planapi.Error
	if errors.As(err, &pe) && pe.Transient() {
		return KindTransient
	}
	return KindEscalated
}
