package agent

import (
	"fmt"
	"io"
	"strings"
)

var separator = strings.Repeat("-", 80)

// writeTurn prints a turn in "<from> (to <to>):" form.
func writeTurn(w io.Writer, turn Turn, to string) {
	from := turn.Name
	if turn.Role == RoleTool {
		from = "tool " + turn.Name
	}
	_, _ = fmt.Fprintf(w, "%s (to %s):\n\n", from, to)

	if turn.Role == RoleTool {
		_, _ = fmt.Fprintf(w, "***** Response from calling tool (%s) *****\n", turn.ToolCallID)
	}
	if strings.TrimSpace(turn.Content) != "" {
		_, _ = fmt.Fprintln(w, turn.Content)
	}
	for _, call := range turn.ToolCalls {
		_, _ = fmt.Fprintf(w, "***** Suggested tool call (%s): %s *****\n", call.ID, call.Name)
		_, _ = fmt.Fprintf(w, "Arguments: %s\n", call.Arguments)
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", separator)
}
