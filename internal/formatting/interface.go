// Package formatting renders command line output as tables, JSON or YAML.
package formatting

import (
	"fmt"
	"strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatWide  OutputFormat = "wide"  // Table output with additional columns
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// SupportedFormats lists the accepted values of the --output flag.
var SupportedFormats = []OutputFormat{FormatTable, FormatWide, FormatJSON, FormatYAML}

// ParseFormat validates an output flag value. An empty value means FormatTable.
func ParseFormat(s string) (OutputFormat, error) {
	if s == "" {
		return FormatTable, nil
	}
	for _, f := range SupportedFormats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}

	names := make([]string, len(SupportedFormats))
	for i, f := range SupportedFormats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unsupported output format %q (supported: %s)", s, strings.Join(names, ", "))
}

// IsTable reports whether f renders a table.
func (f OutputFormat) IsTable() bool {
	return f == FormatTable || f == FormatWide
}
