package sparkbatch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies where in the launch lifecycle a step failure
// originated.
type ErrorKind int

const (
	// KindConfiguration means a required parameter or placeholder was
	// unresolved or malformed before any external call was made.
	KindConfiguration ErrorKind = iota
	// KindFilesystem means a distributed filesystem operation failed.
	KindFilesystem
	// KindSubmission means the external job was never accepted by the
	// resource manager.
	KindSubmission
	// KindExternalRuntime means the external job ran and terminated
	// with failure or was killed.
	KindExternalRuntime
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "CONFIGURATION"
	case KindFilesystem:
		return "FILESYSTEM"
	case KindSubmission:
		return "SUBMISSION"
	case KindExternalRuntime:
		return "EXTERNAL-RUNTIME"
	}
	return "UNKNOWN"
}

// StepError is an error captured at a step boundary, tagged with the
// kind of failure it represents.
type StepError struct {
	Kind ErrorKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErrorf(kind ErrorKind, format string, args ...interface{}) *StepError {
	return &StepError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// errorKind extracts the ErrorKind from an error, defaulting to
// KindFilesystem for untagged filesystem-layer errors.
func errorKind(err error, fallback ErrorKind) ErrorKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	return fallback
}
