package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":  zerolog.DebugLevel,
		" WARN ": zerolog.WarnLevel,
		"error":  zerolog.ErrorLevel,
		"silent": zerolog.Disabled,
		"":       zerolog.InfoLevel,
		"bogus":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in, zerolog.InfoLevel), in)
	}
}

func TestForSDKRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := Component(ForSDK(&base, "warn"), "session")
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"component":"session"`)
	assert.Contains(t, out, `"sdk":"tickgauge"`)
}
