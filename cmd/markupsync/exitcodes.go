package main

import (
	"errors"

	"github.com/yungbote/markupsync/internal/modules/markup"
	"github.com/yungbote/markupsync/internal/platform/lock"
	"github.com/yungbote/markupsync/internal/temporalx/ingest"
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
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitLocked     = 5
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
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// classifyRunError assigns an exit code to a pipeline failure.
func classifyRunError(err error) error {
	switch {
	case err == nil:
		return nil
	case markup.IsStructural(err), errors.Is(err, markup.ErrNothingLoaded):
		return withCode(exitValidation, err)
	case errors.Is(err, lock.ErrNotAcquired), errors.Is(err, ingest.ErrAlreadyRunning):
		return withCode(exitLocked, err)
	default:
		return withCode(exitDB, err)
	}
}
