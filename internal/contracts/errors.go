package contracts

import (
	"errors"
	"fmt"
)

// ErrorKind is the engine's error taxonomy
type ErrorKind string

const (
	KindInvalidSpec ErrorKind = "InvalidSpec"
	KindNoData      ErrorKind = "NoData"
	KindNoScores    ErrorKind = "NoScores"
	KindInternal    ErrorKind = "Internal"
)

// Stage names where an error was raised
type Stage string

const (
	StageResolve Stage = "resolve"
	StageFetch   Stage = "fetch"
	StageScore   Stage = "score"
	StageSelect  Stage = "select"
	StageTask    Stage = "task"
)

// EngineError carries an error kind through component boundaries
type EngineError struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	Cause   error
}

// Sentinels for errors.Is; matching is by Kind only
var (
	ErrInvalidSpec = &EngineError{Kind: KindInvalidSpec}
	ErrNoData      = &EngineError{Kind: KindNoData}
	ErrNoScores    = &EngineError{Kind: KindNoScores}
	ErrInternal    = &EngineError{Kind: KindInternal}
)

// NewError creates an EngineError
func NewError(kind ErrorKind, stage Stage, message string, cause error) *EngineError {
	return &EngineError{Kind: kind, Stage: stage, Message: message, Cause: cause}
}

func (e *EngineError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches any EngineError of the same kind
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the ErrorKind of err, Internal for foreign errors
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// StageOf extracts the stage of err, or "" when unknown
func StageOf(err error) Stage {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Stage
	}
	return ""
}
