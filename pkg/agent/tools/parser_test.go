package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	text := `Applying the change now.
<tool>
<server_name>local</server_name>
<tool_name>patch_file</tool_name>
<arguments>
  <path>main.go</path>
</arguments>
</tool>
Done.`

	toolCall, remaining, err := ParseToolCall(text)
	require.NoError(t, err)

	assert.Equal(t, "patch_file", toolCall.ToolName)
	assert.Equal(t, "local", toolCall.ServerName)
	assert.Contains(t, string(toolCall.GetArgumentsXML()), "<path>main.go</path>")
	assert.NotContains(t, remaining, "<tool>")
}

func TestParseToolCall_DefaultServerName(t *testing.T) {
	text := `<tool>
<tool_name>read_file</tool_name>
<arguments><path>a.txt</path></arguments>
</tool>`

	toolCall, _, err := ParseToolCall(text)
	require.NoError(t, err)
	assert.Equal(t, defaultServerName, toolCall.ServerName)
}

func TestParseToolCall_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "no tool call", text: "just some prose"},
		{name: "missing tool name", text: "<tool><arguments></arguments></tool>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseToolCall(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestParseToolCall_UnescapedAmpersand(t *testing.T) {
	text := `<tool>
<tool_name>search_files</tool_name>
<arguments><pattern>foo && bar</pattern></arguments>
</tool>`

	toolCall, _, err := ParseToolCall(text)
	require.NoError(t, err)
	assert.Equal(t, "search_files", toolCall.ToolName)
}

func TestHasToolCall(t *testing.T) {
	assert.True(t, HasToolCall("<tool><tool_name>x</tool_name></tool>"))
	assert.False(t, HasToolCall("no call here"))
}

func TestUnmarshalXMLWithFallback_PreservesEntities(t *testing.T) {
	var out struct {
		Value string `xml:"value"`
	}
	err := UnmarshalXMLWithFallback([]byte("<arguments><value>a &amp; b & c</value></arguments>"), &out)
	require.NoError(t, err)
	assert.Equal(t, "a & b & c", out.Value)
}
