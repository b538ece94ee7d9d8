package mcpconfig

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Client identifies an MCP client MCPM can register itself with.
type Client string

const (
	ClaudeCode    Client = "claude-code"
	ClaudeDesktop Client = "claude-desktop"
	Cursor        Client = "cursor"
	Windsurf      Client = "windsurf"
	Codex         Client = "codex"
	Gemini        Client = "gemini"
	VSCode        Client = "vscode"
)

// clientConfig describes how to register a server with one client. Clients
// with a CLI get InstallCommand; the rest are configured by patching the
// JSON file found in ConfigPaths at ServersPath.
type clientConfig struct {
	Client      Client
	Name        string
	Aliases     []string
	ServersPath string
	// ConfigPaths are candidate config file locations, most likely first.
	// They are backed up for every client and patched for JSON clients.
	ConfigPaths    []string
	InstallCommand func(s Server) ([]string, error)
}

func addWithSeparator(prefix ...string) func(Server) ([]string, error) {
	return func(s Server) ([]string, error) {
		argv := append(append([]string{}, prefix...), s.Name, "--", s.Command)
		return append(argv, s.Args...), nil
	}
}

func vscodeAddMCP(s Server) ([]string, error) {
	data, err := json.Marshal(struct {
		Name string `json:"name"`
		Entry
	}{Name: s.Name, Entry: s.Entry()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal server entry: %w", err)
	}
	return []string{"code", "--add-mcp", string(data)}, nil
}

var supportedClients = []clientConfig{
	{
		Client:         ClaudeCode,
		Name:           "Claude Code",
		Aliases:        []string{"claude-code", "claude"},
		ConfigPaths:    []string{"~/.claude.json"},
		InstallCommand: addWithSeparator("claude", "mcp", "add", "-s", "user"),
	},
	{
		Client:      ClaudeDesktop,
		Name:        "Claude Desktop",
		Aliases:     []string{"claude-desktop"},
		ServersPath: "/mcpServers",
		ConfigPaths: []string{
			"~/Library/Application Support/Claude/claude_desktop_config.json",
			"~/.config/Claude/claude_desktop_config.json",
			"$APPDATA/Claude/claude_desktop_config.json",
		},
	},
	{
		Client:      Cursor,
		Name:        "Cursor",
		Aliases:     []string{"cursor"},
		ServersPath: "/mcpServers",
		ConfigPaths: []string{"~/.cursor/mcp.json"},
	},
	{
		Client:      Windsurf,
		Name:        "Windsurf",
		Aliases:     []string{"windsurf"},
		ServersPath: "/mcpServers",
		ConfigPaths: []string{"~/.codeium/windsurf/mcp_config.json"},
	},
	{
		Client:  Codex,
		Name:    "Codex",
		Aliases: []string{"codex"},
		ConfigPaths: []string{
			"~/.codex/config.toml",
			"$CODEX_HOME/config.toml",
		},
		InstallCommand: addWithSeparator("codex", "mcp", "add"),
	},
	{
		Client:         Gemini,
		Name:           "Gemini CLI",
		Aliases:        []string{"gemini", "gemini-cli"},
		ConfigPaths:    []string{"~/.gemini/settings.json"},
		InstallCommand: addWithSeparator("gemini", "mcp", "add", "-s", "user"),
	},
	{
		Client:  VSCode,
		Name:    "VS Code",
		Aliases: []string{"vscode", "code", "vs-code"},
		ConfigPaths: []string{
			"~/.config/Code/User/mcp.json",
			"~/Library/Application Support/Code/User/mcp.json",
			"~/AppData/Roaming/Code/User/mcp.json",
		},
		InstallCommand: vscodeAddMCP,
	},
}

// findClientConfig looks a client up by any of its names, case-insensitively.
func findClientConfig(name string) (*clientConfig, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range supportedClients {
		for _, alias := range supportedClients[i].Aliases {
			if alias == normalized {
				return &supportedClients[i], nil
			}
		}
	}
	return nil, fmt.Errorf("unsupported client: %s. Supported clients: %s", name, strings.Join(ClientNames(), ", "))
}

// ClientNames returns every accepted client name, aliases included.
func ClientNames() []string {
	var names []string
	for _, cfg := range supportedClients {
		names = append(names, cfg.Aliases...)
	}
	return names
}

// ClientsHelp renders the supported clients for command help text.
func ClientsHelp() string {
	var b strings.Builder
	b.WriteString("Supported Clients:\n")
	for _, cfg := range supportedClients {
		fmt.Fprintf(&b, "  %-24s Configure for %s\n", cfg.Aliases[0], cfg.Name)
	}
	return b.String()
}
