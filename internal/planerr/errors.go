// Package planerr defines the error taxonomy shared by the planning core.
package planerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure class. Concrete errors wrap one of these
// so callers can branch with errors.Is.
var (
	ErrInputShape     = errors.New("malformed input")
	ErrReference      = errors.New("unresolved reference")
	ErrDomain         = errors.New("domain constraint violated")
	ErrDate           = errors.New("unrecognised date")
	ErrNotImplemented = errors.New("not implemented")
	ErrCycle          = errors.New("dependency cycle")
)

// TaskError attaches the owning project and task to an error raised while
// normalizing or scheduling a single entry.
type TaskError struct {
	Project string
	Task    string
	Err     error
}

func (e *TaskError) Error() string {
	if e.Project != "" {
		return fmt.Sprintf("project %q, task %q: %v", e.Project, e.Task, e.Err)
	}
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// RefError reports a name that could not be resolved. Task is the entity that
// holds the reference and Target is the missing name.
type RefError struct {
	Kind   string // "dependency", "resource", "task"
	Task   string
	Target string
}

func (e *RefError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("unknown %s %q", e.Kind, e.Target)
	}
	return fmt.Sprintf("%q references unknown %s %q", e.Task, e.Kind, e.Target)
}

// Unwrap lets errors.Is(err, ErrReference) match every RefError.
func (e *RefError) Unwrap() error { return ErrReference }

// Shape returns an input-shape error with a formatted message.
func Shape(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputShape, fmt.Sprintf(format, args...))
}

// Domain returns a domain-constraint error with a formatted message.
func Domain(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDomain, fmt.Sprintf(format, args...))
}

// WrapTask wraps err with project and task context. A nil err stays nil.
func WrapTask(project, task string, err error) error {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		return err
	}
	return &TaskError{Project: project, Task: task, Err: err}
}
