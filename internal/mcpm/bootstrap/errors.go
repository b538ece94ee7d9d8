package bootstrap

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/common"
	"github.com/keppylab/mcpm/internal/mcpm/logging"
)

// Setup failure kinds. Every error returned by [Bootstrapper.Run] wraps
// exactly one of these and carries the matching exit code.
var (
	ErrPrerequisiteMissing = errors.New("python interpreter not available")
	ErrEnvironmentCreation = errors.New("virtual environment creation failed")
	ErrDependencyInstall   = errors.New("dependency installation failed")
	ErrSetupLocked         = errors.New("another setup run is in progress")
	ErrWrapperWrite        = errors.New("wrapper could not be written")
	ErrCompletionReport    = errors.New("completion report could not be printed")
)

var exitCodes = map[error]int{
	ErrPrerequisiteMissing: common.ExitPrerequisiteMissing,
	ErrEnvironmentCreation: common.ExitEnvironmentCreation,
	ErrDependencyInstall:   common.ExitDependencyInstall,
	ErrSetupLocked:         common.ExitSetupLocked,
	ErrWrapperWrite:        common.ExitGeneralError,
	ErrCompletionReport:    common.ExitGeneralError,
}

// fail prints a diagnostic to w and returns kind wrapped with cause and its
// exit code.
func fail(w io.Writer, kind error, message string, cause error) error {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}

	logging.Debug("Setup step failed", zap.Error(err))

	if cause != nil {
		fmt.Fprintf(w, "%s %s: %v\n", color.RedString("❌"), message, cause)
	} else {
		fmt.Fprintf(w, "%s %s\n", color.RedString("❌"), message)
	}

	code, ok := exitCodes[kind]
	if !ok {
		code = common.ExitGeneralError
	}
	return common.ExitWithCode(code, err)
}
