// Package platform maps a platform identifier to the on-disk layout of a
// Python virtual environment.
package platform

import (
	"path/filepath"
	"runtime"
)

// Platform is an operating system identifier in GOOS form ("windows",
// "linux", "darwin", ...).
type Platform string

const (
	Windows Platform = "windows"
	Linux   Platform = "linux"
	Darwin  Platform = "darwin"
)

// Current returns the platform the process is running on.
func Current() Platform {
	return Platform(runtime.GOOS)
}

// IsWindows reports whether p uses the Windows virtual environment layout.
func (p Platform) IsWindows() bool {
	return p == Windows
}

func (p Platform) String() string {
	return string(p)
}

// Layout describes where a virtual environment keeps its executables on a
// given platform.
type Layout struct {
	Root     string
	Platform Platform
}

// NewLayout returns the layout of the virtual environment rooted at root.
func NewLayout(root string, p Platform) Layout {
	return Layout{Root: root, Platform: p}
}

// ScriptsDir is the directory holding the environment's executables:
// Scripts on Windows, bin everywhere else.
func (l Layout) ScriptsDir() string {
	if l.Platform.IsWindows() {
		return filepath.Join(l.Root, "Scripts")
	}
	return filepath.Join(l.Root, "bin")
}

// Python returns the path of the environment's interpreter.
func (l Layout) Python() string {
	return filepath.Join(l.ScriptsDir(), l.executable("python"))
}

// Pip returns the path of the environment's package installer.
func (l Layout) Pip() string {
	return filepath.Join(l.ScriptsDir(), l.executable("pip"))
}

func (l Layout) executable(name string) string {
	if l.Platform.IsWindows() {
		return name + ".exe"
	}
	return name
}
