package mcpconfig

import (
	"encoding/json"
	"fmt"
)

// Server is the MCPM server registration handed to MCP clients.
type Server struct {
	Name    string
	Command string
	Args    []string
}

// Entry is the JSON shape of one server under a client's "mcpServers" map.
type Entry struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// NPXServer returns the registration that runs the published package
// through npx, as advertised at the end of setup.
func NPXServer(name, command, pkg string) Server {
	return Server{Name: name, Command: command, Args: []string{"-y", pkg}}
}

// LocalServer returns a registration that runs a locally generated wrapper.
func LocalServer(name, wrapperPath string) Server {
	return Server{Name: name, Command: wrapperPath, Args: []string{}}
}

func (s Server) Entry() Entry {
	args := s.Args
	if args == nil {
		args = []string{}
	}
	return Entry{Command: s.Command, Args: args}
}

// Snippet renders the server as a ready-to-paste JSON fragment keyed by the
// server name, indented by two spaces.
func (s Server) Snippet() ([]byte, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("server name must not be empty")
	}
	data, err := json.MarshalIndent(map[string]Entry{s.Name: s.Entry()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal server entry: %w", err)
	}
	return data, nil
}
