package mcpconfig

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ClientOption is one entry of the interactive client picker.
type ClientOption struct {
	Name       string
	ClientName string
}

func clientOptions() []ClientOption {
	options := make([]ClientOption, 0, len(supportedClients))
	for _, cfg := range supportedClients {
		options = append(options, ClientOption{Name: cfg.Name, ClientName: cfg.Aliases[0]})
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Name < options[j].Name
	})
	return options
}

// SelectClient asks the user to pick a client in the terminal.
func SelectClient(in io.Reader, out io.Writer) (string, error) {
	program := tea.NewProgram(clientSelectModel{options: clientOptions()}, tea.WithInput(in), tea.WithOutput(out))
	finalModel, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("failed to run client selection: %w", err)
	}

	result := finalModel.(clientSelectModel)
	if result.selected == "" {
		return "", fmt.Errorf("no client selected")
	}
	return result.selected, nil
}

type clientSelectModel struct {
	options      []ClientOption
	cursor       int
	selected     string
	numberBuffer string
}

func (m clientSelectModel) Init() tea.Cmd {
	return nil
}

func (m clientSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.numberBuffer = ""
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		m.numberBuffer = ""
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.options[m.cursor].ClientName
		return m, tea.Quit
	case "backspace":
		if len(m.numberBuffer) > 0 {
			m.updateNumberBuffer(m.numberBuffer[:len(m.numberBuffer)-1])
		}
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.updateNumberBuffer(m.numberBuffer + key.String())
	case "ctrl+w", "esc":
		m.numberBuffer = ""
	}
	return m, nil
}

// updateNumberBuffer moves the cursor to the 1-based option typed so far.
// Digits that would point past the list are ignored.
func (m *clientSelectModel) updateNumberBuffer(buffer string) {
	if buffer == "" {
		m.numberBuffer = ""
		return
	}

	num, err := strconv.Atoi(buffer)
	if err != nil {
		return
	}
	if index := num - 1; index >= 0 && index < len(m.options) {
		m.numberBuffer = buffer
		m.cursor = index
	}
}

func (m clientSelectModel) View() string {
	var b strings.Builder
	b.WriteString("Select an MCP client to configure:\n\n")
	for i, option := range m.options {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}
		fmt.Fprintf(&b, "%s %d. %s\n", cursor, i+1, option.Name)
	}
	if m.numberBuffer != "" {
		fmt.Fprintf(&b, "\nTyping: %s", m.numberBuffer)
	}
	b.WriteString("\nUse ↑/↓ arrows or number keys to navigate, enter to select, q to quit")
	return b.String()
}
