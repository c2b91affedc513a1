// Package jsonx extracts JSON values from free-form model output.
//
// Models frequently wrap JSON in markdown fences or surround it with prose.
// Extract tolerates both; Decode additionally reports failure as a boolean
// so callers can fall back to a default without error plumbing.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no valid JSON value can be located.
var ErrNoJSON = errors.New("no valid JSON in text")

// Extract returns the JSON portion of text. It tries, in order: the whole
// text with code fences stripped, then the span from the first '{' to the
// last '}', then the span from the first '[' to the last ']'.
func Extract(text string) (string, error) {
	text = stripFences(text)
	if text == "" {
		return "", ErrNoJSON
	}
	if json.Valid([]byte(text)) {
		return text, nil
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start == -1 || end <= start {
			continue
		}
		if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	preview := text
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	return "", fmt.Errorf("%w: %q", ErrNoJSON, preview)
}

// Decode extracts JSON from text and unmarshals it into v. It returns false
// when extraction or decoding fails; v may then be partially written.
func Decode(text string, v any) bool {
	raw, err := Extract(text)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// Marshal encodes v as compact JSON, returning "null" if v cannot be encoded.
func Marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// drop the language tag, if any
		if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
