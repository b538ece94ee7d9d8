package util

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTerminal is a helper method for detecting whether an [io.Writer] is a
// interactive terminal / TTY.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// IsCI determines if the current execution context is within a known CI/CD
// system. Setup never prompts or animates when this is true.
func IsCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("BUILD_NUMBER") != "" ||
		os.Getenv("RUN_ID") != ""
}
