package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("info", &buf)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	l.Warn("careful")
	l.Error("broken")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] shown 2")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[ERROR] broken")
}

func TestErrorLevelSuppressesWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("ERROR", &buf)

	l.Info("a")
	l.Warn("b")
	l.Error("c")

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("debug", &buf).Named("catalog")

	l.Debug("page %d", 3)

	assert.Contains(t, buf.String(), "[DEBUG] [catalog] page 3")
}
