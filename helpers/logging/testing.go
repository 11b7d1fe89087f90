package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
)

// TestingInterface represents the minimal interface needed for assertions
type TestingInterface interface {
	Errorf(format string, args ...interface{})
}

// LogCapture captures log output for testing and validation
type LogCapture struct {
	buffer *bytes.Buffer
	mu     sync.Mutex
}

// Write implements io.Writer.
func (lc *LogCapture) Write(p []byte) (int, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.buffer.Write(p)
}

// NewTestLogger creates a logger for component whose output, together with
// every other component logger, is captured until the test ends.
func NewTestLogger(t *testing.T, component string, enableDebug bool) (*Logger, *LogCapture) {
	t.Helper()

	capture := &LogCapture{buffer: &bytes.Buffer{}}
	originalWriter := consoleLogger.Writer()
	originalNoColor := color.NoColor
	color.NoColor = true
	consoleLogger.SetOutput(capture)

	configMu.RLock()
	original := &Configuration{
		DefaultLevel:    globalConfig.DefaultLevel,
		EnableDebug:     globalConfig.EnableDebug,
		ComponentLevels: make(map[string]Level, len(globalConfig.ComponentLevels)),
	}
	for k, v := range globalConfig.ComponentLevels {
		original.ComponentLevels[k] = v
	}
	configMu.RUnlock()

	DisableDebug()
	if enableDebug {
		SetLogLevel(component, LevelDebug)
	}

	t.Cleanup(func() {
		consoleLogger.SetOutput(originalWriter)
		color.NoColor = originalNoColor
		DisableDebug()
		Configure(original)
	})

	return NewLogger(component), capture
}

// GetOutput returns the captured log output
func (lc *LogCapture) GetOutput() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.buffer.String()
}

// Clear drops everything captured so far
func (lc *LogCapture) Clear() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.buffer.Reset()
}

// GetLines returns the log output split into lines
func (lc *LogCapture) GetLines() []string {
	output := strings.TrimSpace(lc.GetOutput())
	if output == "" {
		return []string{}
	}
	return strings.Split(output, "\n")
}

// CountLevel counts the messages logged by component at level
func (lc *LogCapture) CountLevel(level Level, component string) int {
	levelTag := "[" + level.String() + "]"
	componentTag := "[" + component + "]"
	count := 0
	for _, line := range lc.GetLines() {
		if strings.Contains(line, levelTag) && strings.Contains(line, componentTag) {
			count++
		}
	}
	return count
}

// AssertContains checks that the log output contains the expected message
func (lc *LogCapture) AssertContains(t TestingInterface, expected string) {
	if output := lc.GetOutput(); !strings.Contains(output, expected) {
		t.Errorf("Expected log output to contain %q, but got:\n%s", expected, output)
	}
}

// AssertNotContains checks that the log output does not contain the message
func (lc *LogCapture) AssertNotContains(t TestingInterface, unexpected string) {
	if output := lc.GetOutput(); strings.Contains(output, unexpected) {
		t.Errorf("Expected log output to NOT contain %q, but got:\n%s", unexpected, output)
	}
}

// AssertLevel checks that component logged at least one message at level
func (lc *LogCapture) AssertLevel(t TestingInterface, level Level, component string) {
	if lc.CountLevel(level, component) == 0 {
		t.Errorf("Expected log output to contain level %s for component %s, but got:\n%s",
			level.String(), component, lc.GetOutput())
	}
}

// AssertEmpty checks that no log output was generated
func (lc *LogCapture) AssertEmpty(t TestingInterface) {
	if output := lc.GetOutput(); strings.TrimSpace(output) != "" {
		t.Errorf("Expected no log output, but got:\n%s", output)
	}
}
