package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUninitializedIsNoop(t *testing.T) {
	Reset()
	assert.NotPanics(t, func() {
		Debug("d")
		Info("i")
		Warn("w", "k", 1)
		Error("e")
	})
	assert.Nil(t, With("k", "v"))
}

func TestLevels(t *testing.T) {
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Init(Options{Writer: &buf})
	Debug("hidden detail")
	Warn("cache write failed", "key", "graph:abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden detail")
	assert.Contains(t, out, "cache write failed")
	assert.Contains(t, out, "key=graph:abc")

	buf.Reset()
	Init(Options{Writer: &buf, Debug: true})
	Debug("hop sizes", "hop1", 2)
	assert.Contains(t, buf.String(), "hop sizes")
	assert.Contains(t, buf.String(), "hop1=2")
}
