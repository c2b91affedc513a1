package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeYAMLParser_Limits(t *testing.T) {
	limits := YAMLLimits{
		MaxFileSize:  512,
		MaxDepth:     3,
		MaxNodes:     20,
		MaxKeyLength: 8,
		MaxValueSize: 16,
	}
	parser := NewSafeYAMLParser(limits)

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"valid", "name: a\nmodel: b\n", ""},
		{"too large", "k: " + strings.Repeat("x", 600), "too large"},
		{"too deep", "a:\n  b:\n    c:\n      d: 1\n", "depth"},
		{"long key", "averyveryverylongkey: 1\n", "key"},
		{"long value", "k: " + strings.Repeat("v", 20) + "\n", "value"},
		{"too many nodes", "l: [" + strings.Repeat("1,", 30) + "1]\n", "node count"},
		{"syntax error", "a: [unclosed\n", "parse error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			err := parser.UnmarshalYAML([]byte(tt.yaml), &out)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSafeYAMLParser_EmptyDocument(t *testing.T) {
	parser := NewSafeYAMLParser(DefaultYAMLLimits())
	out := map[string]any{"untouched": true}
	require.NoError(t, parser.UnmarshalYAML([]byte(""), &out))
	assert.Equal(t, true, out["untouched"])
}

func TestSafeYAMLParser_FromReader(t *testing.T) {
	parser := NewSafeYAMLParser(DefaultYAMLLimits())
	var out struct {
		Name string `yaml:"name"`
	}
	require.NoError(t, parser.UnmarshalYAMLFromReader(strings.NewReader("name: reader\n"), &out))
	assert.Equal(t, "reader", out.Name)
}
