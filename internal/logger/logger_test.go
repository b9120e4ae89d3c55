package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", " warn ", "error", "off"} {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevelGate(t *testing.T) {
	var buf bytes.Buffer
	prev := GetLevel()
	SetOutput(&buf)
	SetLevel(WarnLevel)
	defer SetLevel(prev)

	Info("room %d hidden", 1)
	Warn("room %d shown", 2)
	Error("room %d shown", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] room 2 shown")
	assert.Contains(t, out, "[ERROR] room 3 shown")
}
