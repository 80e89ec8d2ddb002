package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "secret is redacted",
			input:    "my-secret-password",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "complex secret is redacted",
			input:    "password123!@#",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Secret(tt.input).String())
			assert.Equal(t, tt.expected, Secret(tt.input).GoString())
			assert.Equal(t, tt.expected, Secret(tt.input).LogValue().String())
		})
	}
}

func TestSecretRedactedInAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, true, true)

	secretValue := "super-secret-password-12345"
	logger.Info("retrieved secret", "value", Secret(secretValue))
	logger.Debug(fmt.Sprintf("formatted %s", Secret(secretValue)))

	out := buf.String()
	assert.Contains(t, out, "retrieved secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, secretValue)
}

func TestLoggerDebugMode(t *testing.T) {
	t.Parallel()

	var quiet, verbose bytes.Buffer
	NewWithWriter(&quiet, false, true).Debug("hidden detail")
	NewWithWriter(&verbose, true, true).Debug("visible detail")

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "visible detail")
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true).With("component", "test")

	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "INF")
	assert.Contains(t, lines[1], "WRN")
	assert.Contains(t, lines[2], "ERR")
	assert.Contains(t, lines[2], "component=test")
}

func TestNoColorOutputHasNoEscapes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, false, true).Info("plain")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewJSON(&buf, false).Info("loaded", "token", Secret("abc"))

	assert.Contains(t, buf.String(), `"msg":"loaded"`)
	assert.Contains(t, buf.String(), `"token":"[REDACTED]"`)
}

func TestRedact(t *testing.T) {
	t.Parallel()

	out := Redact("login with s3cr3t-id failed", []string{"s3cr3t-id", "abc", ""})
	assert.Equal(t, "login with [REDACTED] failed", out)
}

func TestMask(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "****", Mask("abc"))
	assert.Equal(t, "Se****ue", Mask("Server=db;Password=value"))
}
