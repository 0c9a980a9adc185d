package formatting

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"wide", FormatWide, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "supported: table, wide, json, yaml")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	v := struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{Name: "cpu-high", Count: 2}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, v))
	assert.Equal(t, "{\n  \"name\": \"cpu-high\",\n  \"count\": 2\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatYAML, v))
	assert.Equal(t, "count: 2\nname: cpu-high\n", buf.String())

	assert.Error(t, Encode(&buf, FormatTable, v))
}

func TestPrettyJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", PrettyJSON(map[string]int{"a": 1}))

	// Channels cannot be marshalled
	ch := make(chan int)
	assert.True(t, strings.HasPrefix(PrettyJSON(ch), "0x"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))
	assert.Equal(t, "line one line two", Truncate("line one\n  line two"))

	long := strings.Repeat("x", 200)
	got := Truncate(long)
	assert.Len(t, []rune(got), maxCellWidth)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestNewTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "NAME", "STATE")
	tbl.AppendRow([]interface{}{"cpu-high", "Synced"})
	tbl.Render()

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "cpu-high")
}

func TestColorize(t *testing.T) {
	assert.Equal(t, "-", Colorize(""))
	assert.Equal(t, "Custom", Colorize("Custom"))
	assert.Contains(t, Colorize("Failed"), "Failed")
}
