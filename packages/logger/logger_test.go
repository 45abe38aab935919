package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_TextHandler(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Writer: &buf})

	log.Debug("probing", "subject", "/opt/letsencrypt")
	assert.Empty(t, buf.String())

	log.Warn("unresolved variable", "name", "prefix")
	assert.Contains(t, buf.String(), "level=warn")
	assert.Contains(t, buf.String(), "name=prefix")
}

func TestNew_Verbose(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Writer: &buf, Verbose: true})

	log.Debug("probing", "subject", "/opt/letsencrypt")
	assert.Contains(t, buf.String(), "level=debug")
	assert.Contains(t, buf.String(), "subject=/opt/letsencrypt")
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
