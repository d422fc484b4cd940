package research

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a stage failed.
type ErrorKind uint8

const (
	KindTransport ErrorKind = iota + 1
	KindSchemaParse
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSchemaParse:
		return "schema_parse"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// StageError is the failure variant of a stage outcome.
type StageError struct {
	Stage Step
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Entry renders the error the way it is recorded in ResearchState.Errors.
func (e *StageError) Entry() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func transportError(stage Step, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindTransport, Err: err}
}

func schemaError(stage Step, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindSchemaParse, Err: err}
}

func inputError(stage Step, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Kind: KindInvalidInput, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the classification of err, or 0 when it is not a StageError.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// ConfigurationError is raised before any run exists, for example when a
// collaborator is constructed without its credential. It is never recorded
// in ResearchState.Errors.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Setting, e.Reason)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ErrMissingCredential is wrapped by collaborators whose credential is unset.
func ErrMissingCredential(envVar string) error {
	return &ConfigurationError{Setting: envVar, Reason: "is not set in environment"}
}
