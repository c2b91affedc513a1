package security

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mudler/xlog"
)

// ErrorCode is the machine-readable class of an API error.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
)

// SecureError is an error safe to return to HTTP clients.
type SecureError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}

// Error implements the error interface
func (e *SecureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var redactions = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(sk-|sk-ant-|xai-|AIza)[A-Za-z0-9_\-]{8,}`), "[REDACTED]"},
	{regexp.MustCompile(`(?i)(api_key|apikey|token|key)=[^\s&]+`), "$1=[REDACTED]"},
	{regexp.MustCompile(`Bearer [A-Za-z0-9._\-]+`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`\S+\.go:\d+`), "[FILE:LINE]"},
	{regexp.MustCompile(`(/(home|Users|var|etc|opt|tmp|root)/)\S*`), "[PATH]"},
	{regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}(:\d+)?\b`), "[IP_ADDRESS]"},
	{regexp.MustCompile(`0x[0-9a-fA-F]+`), "[ADDR]"},
}

// SanitizeMessage strips secrets, paths, addresses and source locations
// from msg.
func SanitizeMessage(msg string) string {
	for _, r := range redactions {
		msg = r.re.ReplaceAllString(msg, r.repl)
	}
	return msg
}

// SanitizeError converts err for a client. The full error is logged with
// secrets redacted; the client sees message, plus the sanitized error when
// debug is set. Deadline errors are reported as timeouts.
func SanitizeError(err error, code ErrorCode, message string, debug bool) *SecureError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code, message = ErrCodeTimeout, "The request timed out"
	}
	xlog.Error("Request failed", "code", string(code), "error", SanitizeMessage(err.Error()))

	secureErr := &SecureError{Code: code, Message: message}
	if debug {
		secureErr.Detail = SanitizeMessage(err.Error())
	}
	return secureErr
}

// MaskSecret masks a secret for logging purposes
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
