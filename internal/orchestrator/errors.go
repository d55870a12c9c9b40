package orchestrator

import (
	"errors"
	"fmt"
)

// Stage identifies where inside a task a failure happened.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageProcess Stage = "process"
	StagePersist Stage = "persist"
)

// TaskError is a recoverable failure scoped to one (company, signal_type)
// task. It is caught at the task boundary, recorded in the batch report,
// and never propagated to sibling tasks. The pair's last_updated is left
// untouched so the next due cycle retries naturally.
type TaskError struct {
	CompanyID  string
	SignalType string
	Source     string
	Stage      Stage
	Err        error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %s for %s/%s failed: %v", e.Stage, e.Source, e.CompanyID, e.SignalType, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// ConfigError is a fatal configuration problem (unknown signal type,
// unknown company, malformed frequency policy). It aborts the run before
// any tasks are dispatched and maps to a non-zero exit code.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
