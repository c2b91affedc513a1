package security

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		absent  string
		present string
	}{
		{"openai key", "auth failed for sk-abcdefghijklmnop1234", "sk-abcdefghijklmnop1234", "[REDACTED]"},
		{"gemini key", "bad key AIzaSyD-1234567890abcdef", "AIzaSyD", "[REDACTED]"},
		{"query key", "GET /v1?key=secret123&x=1", "secret123", "key=[REDACTED]"},
		{"bearer", "header Bearer eyJhbGciOi.abc", "eyJhbGciOi", "Bearer [REDACTED]"},
		{"path", "open /home/alice/.agentarch/sessions/x.json: denied", "alice", "[PATH]"},
		{"source line", "panic at runner.go:42", "runner.go:42", "[FILE:LINE]"},
		{"ip", "dial tcp 10.0.0.12:6379: refused", "10.0.0.12", "[IP_ADDRESS]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := SanitizeMessage(tt.in)
			assert.NotContains(t, out, tt.absent)
			assert.Contains(t, out, tt.present)
		})
	}
}

func TestSanitizeError(t *testing.T) {
	assert.Nil(t, SanitizeError(nil, ErrCodeInternal, "x", true))

	err := errors.New("dial tcp 10.0.0.12:6379: refused")
	quiet := SanitizeError(err, ErrCodeInternal, "An internal error occurred", false)
	require.NotNil(t, quiet)
	assert.Equal(t, ErrCodeInternal, quiet.Code)
	assert.Empty(t, quiet.Detail)

	loud := SanitizeError(err, ErrCodeInternal, "An internal error occurred", true)
	assert.Equal(t, "dial tcp [IP_ADDRESS]: refused", loud.Detail)

	timeout := SanitizeError(fmt.Errorf("agent x: %w", context.DeadlineExceeded), ErrCodeInternal, "boom", false)
	assert.Equal(t, ErrCodeTimeout, timeout.Code)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "sk-a****wxyz", MaskSecret("sk-abcdefghwxyz"))
}
