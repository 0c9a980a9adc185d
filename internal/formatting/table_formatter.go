package formatting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// maxCellWidth bounds free text columns such as error messages.
const maxCellWidth = 80

// NewTable creates a new table writing to w with standard styling.
func NewTable(w io.Writer, headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = text.FgHiCyan.Sprint(h)
	}
	t.AppendHeader(row)
	return t
}

// PrintEmpty writes the message shown instead of an empty table.
func PrintEmpty(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint(message))
}

// Truncate collapses whitespace so s fits on one line and shortens it to maxCellWidth runes.
func Truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxCellWidth {
		return s
	}
	return string(r[:maxCellWidth-3]) + "..."
}

// Colorize highlights well-known status values.
func Colorize(state string) string {
	switch state {
	case "Synced", "Normal":
		return text.FgGreen.Sprint(state)
	case "Error", "Warning", "Pending", "Reconciling":
		return text.FgYellow.Sprint(state)
	case "Failed":
		return text.FgRed.Sprint(state)
	case "":
		return "-"
	default:
		return state
	}
}
