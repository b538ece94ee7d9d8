package bootstrap

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/keppylab/mcpm/internal/mcpm/mcpconfig"
)

// PrintReport writes the completion summary, ending with a JSON fragment
// the operator can paste into an MCP client's configuration.
func PrintReport(w io.Writer, server mcpconfig.Server, wrapperPath string) error {
	snippet, err := server.Snippet()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", color.New(color.FgGreen, color.Bold).Sprint("✨ MCPM setup complete!"))
	fmt.Fprintf(w, "🔧 Wrapper: %s\n", wrapperPath)
	fmt.Fprintln(w, "💡 You can now use MCPM as an MCP server")
	fmt.Fprintln(w, "\n📝 Add to your MCP settings:")
	fmt.Fprintln(w, string(snippet))
	return nil
}
