package applog

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestWriterFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(NewWriter(buf)).With().Timestamp().Logger()
	logger.Warn().Msg("disk almost full")

	out := buf.String()
	assert.Contains(t, out, "| WARN    |")
	assert.Contains(t, out, "disk almost full")
}
