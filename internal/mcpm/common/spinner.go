package common

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/keppylab/mcpm/internal/mcpm/util"
)

var spinnerFrames = []string{"⢎ ", "⠎⠁", "⠊⠑", "⠈⠱", " ⡱", "⢀⡰", "⢄⡠", "⢆⡀"}

// Spinner shows progress for a long-running setup step whose tool output is
// being captured instead of streamed.
type Spinner interface {
	// Stop terminates the spinner and replaces it with a final line. An
	// empty final message leaves nothing behind.
	Stop(final string)
}

// NewSpinner returns a [Spinner] writing to output. A nil output or
// [io.Discard] yields a no-op spinner; a terminal gets an animated bubbletea
// program; anything else (pipes, files, CI logs) gets one line per message.
func NewSpinner(output io.Writer, message string) Spinner {
	if output == nil || output == io.Discard {
		return nopSpinner{}
	}
	if util.IsTerminal(output) && !util.IsCI() {
		return newAnimatedSpinner(output, message)
	}
	return newManualSpinner(output, message)
}

type nopSpinner struct{}

func (nopSpinner) Stop(string) {}

type animatedSpinner struct {
	program *tea.Program
	output  io.Writer
}

func newAnimatedSpinner(output io.Writer, message string) *animatedSpinner {
	program := tea.NewProgram(
		spinnerModel{message: message},
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithoutSignalHandler(),
	)

	go func() {
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(output, "Error displaying progress: %s\n", err)
		}
	}()

	return &animatedSpinner{program: program, output: output}
}

func (s *animatedSpinner) Stop(final string) {
	s.program.Send(finalMsg(final))
	s.program.Quit()
	s.program.Wait()
	if final != "" {
		fmt.Fprintln(s.output, final)
	}
}

type manualSpinner struct {
	output io.Writer
	model  *spinnerModel
}

func newManualSpinner(output io.Writer, message string) *manualSpinner {
	s := &manualSpinner{
		output: output,
		model:  &spinnerModel{message: message},
	}
	s.printLine()
	return s
}

func (s *manualSpinner) Stop(final string) {
	if final != "" {
		fmt.Fprintln(s.output, final)
	}
}

func (s *manualSpinner) printLine() {
	fmt.Fprintln(s.output, s.model.View())
}

type (
	tickMsg  struct{}
	finalMsg string
)

type spinnerModel struct {
	message string
	frame   int
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.tick()
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.incFrame()
		return m, m.tick()
	case finalMsg:
		// The final line is printed after the program exits so it survives
		// the renderer clearing its last frame.
		m.done = true
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", spinnerFrames[m.frame], m.message)
}

func (m *spinnerModel) incFrame() {
	m.frame = (m.frame + 1) % len(spinnerFrames)
}

func (m *spinnerModel) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
