package bootstrap

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"al.essio.dev/pkg/shellescape"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/logging"
)

// The wrapper only calls back into mcpm-setup; interpreter resolution,
// self-healing and argument forwarding live in the exec subcommand.
var posixWrapper = template.Must(template.New("mcpm").Parse(`#!/bin/sh
# Generated by mcpm-setup. This file is rewritten on every setup run.
exec {{ .Setup }} exec --home {{ .Home }} --repo-root {{ .RepoRoot }} -- "$@"
`))

var windowsWrapper = template.Must(template.New("mcpm.cmd").Parse("@echo off\r\n" +
	"rem Generated by mcpm-setup. This file is rewritten on every setup run.\r\n" +
	"{{ .Setup }} exec --home {{ .Home }} --repo-root {{ .RepoRoot }} -- %*\r\n" +
	"exit /b %ERRORLEVEL%\r\n"))

type wrapperData struct {
	Setup    string
	Home     string
	RepoRoot string
}

// renderPOSIXWrapper returns the shell wrapper for opts.
func renderPOSIXWrapper(opts Options) ([]byte, error) {
	return render(posixWrapper, wrapperData{
		Setup:    shellescape.QuoteCommand(opts.SetupCommand),
		Home:     shellescape.Quote(opts.HomeDir),
		RepoRoot: shellescape.Quote(opts.RepoRoot),
	})
}

// renderWindowsWrapper returns the batch wrapper for opts.
func renderWindowsWrapper(opts Options) ([]byte, error) {
	setup := make([]string, len(opts.SetupCommand))
	for i, arg := range opts.SetupCommand {
		setup[i] = cmdQuote(arg)
	}
	return render(windowsWrapper, wrapperData{
		Setup:    strings.Join(setup, " "),
		Home:     cmdQuote(opts.HomeDir),
		RepoRoot: cmdQuote(opts.RepoRoot),
	})
}

func render(tmpl *template.Template, data wrapperData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s wrapper: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// cmdQuote quotes s for a batch file line. Percent signs are doubled so
// cmd.exe does not expand them.
func cmdQuote(s string) string {
	s = strings.ReplaceAll(s, `"`, `""`)
	s = strings.ReplaceAll(s, `%`, `%%`)
	return `"` + s + `"`
}

// writeWrapper regenerates the entry point unconditionally: existing content
// is never compared, only replaced. It returns the paths written.
func writeWrapper(opts Options) ([]string, error) {
	if err := os.MkdirAll(opts.WrapperDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.WrapperDir(), err)
	}

	content, err := renderPOSIXWrapper(opts)
	if err != nil {
		return nil, err
	}

	path := opts.WrapperPath()
	if err := os.WriteFile(path, content, 0755); err != nil {
		return nil, fmt.Errorf("failed to write wrapper: %w", err)
	}
	written := []string{path}

	if opts.Platform.IsWindows() {
		content, err := renderWindowsWrapper(opts)
		if err != nil {
			return nil, err
		}
		cmdPath := path + ".cmd"
		if err := os.WriteFile(cmdPath, content, 0644); err != nil {
			return nil, fmt.Errorf("failed to write wrapper: %w", err)
		}
		written = append(written, cmdPath)
	} else {
		// WriteFile only applies the mode to new files.
		if err := os.Chmod(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to mark wrapper executable: %w", err)
		}
	}

	logging.Debug("Wrote wrapper", zap.Strings("paths", written))
	return written, nil
}

// WrapperCandidates lists the wrapper files setup may have produced, for
// status reporting.
func WrapperCandidates(opts Options) []string {
	paths := []string{opts.WrapperPath()}
	if opts.Platform.IsWindows() {
		paths = append(paths, opts.WrapperPath()+".cmd")
	}
	return paths
}
