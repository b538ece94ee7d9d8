// Package mcpinstall provides a public API for registering an MCP server
// with AI coding assistants and editors.
package mcpinstall

import (
	"context"

	"github.com/keppylab/mcpm/internal/mcpm/mcpconfig"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
)

// Options configures the installation.
type Options struct {
	// ServerName is the name to register the server under (e.g. "mcpm").
	ServerName string
	// Command starts the server (e.g. "npx" or "/opt/mcpm/bin/mcpm").
	Command string
	// Args are passed to Command (e.g. []string{"-y", "@keppylab/mcpm"}).
	Args []string
	// CreateBackup copies the existing config file aside before modifying it.
	CreateBackup bool
	// CustomConfigPath overrides the client's default config file location.
	CustomConfigPath string
}

// Client represents a supported MCP client.
type Client = mcpconfig.Client

// Supported MCP clients.
const (
	ClaudeCode    Client = mcpconfig.ClaudeCode
	ClaudeDesktop Client = mcpconfig.ClaudeDesktop
	Cursor        Client = mcpconfig.Cursor
	Windsurf      Client = mcpconfig.Windsurf
	Codex         Client = mcpconfig.Codex
	Gemini        Client = mcpconfig.Gemini
	VSCode        Client = mcpconfig.VSCode
)

// Result reports the files touched by an installation.
type Result = mcpconfig.InstallResult

// InstallForClient registers the server described by opts with the named
// client (e.g. "claude-code", "cursor", "windsurf"). Clients that ship a CLI
// are configured through it; the others have their JSON config patched in
// place, preserving comments.
//
// ServerName and Command are required.
func InstallForClient(ctx context.Context, clientName string, opts Options) (*Result, error) {
	installer := mcpconfig.NewInstaller(shell.NewExecRunner())
	return installer.Install(ctx, clientName, mcpconfig.InstallOptions{
		Server: mcpconfig.Server{
			Name:    opts.ServerName,
			Command: opts.Command,
			Args:    opts.Args,
		},
		CreateBackup: opts.CreateBackup,
		ConfigPath:   opts.CustomConfigPath,
	})
}

// SupportedClients returns every accepted client name.
func SupportedClients() []string {
	return mcpconfig.ClientNames()
}
