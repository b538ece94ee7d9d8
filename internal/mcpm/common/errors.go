package common

import "errors"

// Exit codes returned by mcpm-setup. Each fatal setup failure has its own
// code so that scripts driving the installer can tell them apart.
const (
	ExitSuccess             = 0 // Success
	ExitGeneralError        = 1 // General error, also used by the wrapper after a self-heal
	ExitPrerequisiteMissing = 2 // Python interpreter missing or too old
	ExitEnvironmentCreation = 3 // Virtual environment could not be created
	ExitDependencyInstall   = 4 // Every package installer failed
	ExitSetupLocked         = 5 // Another setup run holds the lock
	ExitInvalidParameters   = 6 // Invalid flags or configuration
)

// ExitCodeError creates an error that will cause the program to exit with the specified code
type ExitCodeError struct {
	code int
	err  error
}

func (e ExitCodeError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e ExitCodeError) Unwrap() error {
	return e.err
}

func (e ExitCodeError) ExitCode() int {
	return e.code
}

// ExitWithCode returns an error that will cause the program to exit with the specified code
func ExitWithCode(code int, err error) error {
	return ExitCodeError{code: code, err: err}
}

// ExitCodeOf returns the exit code carried by err, [ExitSuccess] for a nil
// error and [ExitGeneralError] for any error without one.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return ExitGeneralError
}

// SilentExit returns an error that carries only an exit code. It is used when
// the diagnostic has already been printed.
func SilentExit(code int) error {
	return ExitCodeError{code: code}
}
