package replconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	config := Default()
	assert.Equal(t, "λ> ", config.Prompt)
	assert.NotEmpty(t, config.HistoryFile)
	assert.False(t, config.Trace)
}

func TestParseOverridesDefaults(t *testing.T) {
	config, err := Parse([]byte("prompt: \"> \"\ntrace: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "> ", config.Prompt)
	assert.True(t, config.Trace)
	// Omitted keys keep their defaults.
	assert.Equal(t, Default().HistoryFile, config.HistoryFile)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("prompt: [unclosed"))
	require.Error(t, err)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	config, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, Default().Prompt, config.Prompt)
}
