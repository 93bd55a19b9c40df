package global

import "fmt"

// RunError is a coded error for fatal, run-can't-start conditions
// (MissingConfiguration and other initialization failures). Process returns
// only a RunReport; per-line problems (LineParseFailed, UnknownEndpoint)
// are values collected on that report, never an error.
type RunError struct {
	Code    string
	Details string
}

func NewRunError(code, details string) error {
	return &RunError{Code: code, Details: details}
}

func (re *RunError) Error() string {
	return fmt.Sprintf("%s: %s", re.Code, re.Details)
}

const (
	ErrMissingConfiguration = "MissingConfiguration"
	ErrAborted              = "Aborted"
)
