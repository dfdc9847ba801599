package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"jmdict/pkg/config"
)

func TestConsoleWithoutTerminalIsPlain(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, config.UIConfig{Color: true})

	c.PrintInfo("date", "5-3-2024")
	c.PrintSuccess("done")
	c.PrintWarning("output exists", "JMdict_e-5-3-2024.json")
	c.PrintError("failed", "boom")

	assert.Equal(t, "date: 5-3-2024\ndone\noutput exists: JMdict_e-5-3-2024.json\nfailed: boom\n", buf.String())
	assert.False(t, IsTerminal(&buf))
}

func TestConsoleQuiet(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, config.UIConfig{Quiet: true})

	c.PrintInfo("date", "5-3-2024")
	c.PrintSuccess("done")
	c.PrintHighlight("jmdict")
	c.PrintRule()
	c.PrintTimer(NewTimer("finished in:"))
	c.PrintError("failed")

	assert.Equal(t, "failed\n", buf.String())
}

func TestPrintRuleFallbackWidth(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, config.UIConfig{}).PrintRule()
	assert.Equal(t, 60, len([]rune(buf.String()))-1)
}

func TestTimer(t *testing.T) {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	current := start
	timer := newTimerAt("finished in:", func() time.Time { return current })

	current = start.Add(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, timer.GetElapsedTime())
	assert.Equal(t, "finished in: 1.5s", timer.String())

	var buf bytes.Buffer
	NewConsole(&buf, config.UIConfig{}).PrintTimer(timer)
	assert.Equal(t, "finished in: 1.5s\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{1234567 * time.Nanosecond, "1ms"},
		{12345 * time.Millisecond, "12.35s"},
		{125 * time.Second, "2m5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}
