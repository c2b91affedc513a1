package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallLimiter_Burst(t *testing.T) {
	l := NewCallLimiter(1, 2)

	assert.True(t, l.Allow("gemini-2.5-flash"))
	assert.True(t, l.Allow("gemini-2.5-flash"))
	assert.False(t, l.Allow("gemini-2.5-flash"), "third call exceeds the burst")
}

func TestCallLimiter_Disabled(t *testing.T) {
	l := NewCallLimiter(0, 0)
	for range 100 {
		require.True(t, l.Allow("m"))
	}
	require.NoError(t, l.Wait(context.Background(), "m"))
}

func TestCallLimiter_WaitHonoursContext(t *testing.T) {
	l := NewCallLimiter(0.001, 1)
	require.True(t, l.Allow("m"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "m")
	assert.Error(t, err)
}

func TestTimeoutPolicy(t *testing.T) {
	p := NewTimeoutPolicy(60*time.Second, map[string]int{
		"google_search": 10,
		"code_executor": 120,
		"ignored":       0,
	})

	tests := []struct {
		name  string
		tools []string
		want  time.Duration
	}{
		{"no tools", nil, 60 * time.Second},
		{"shorter tool keeps default", []string{"google_search"}, 60 * time.Second},
		{"longest wins", []string{"google_search", "code_executor"}, 120 * time.Second},
		{"zero entry ignored", []string{"ignored"}, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CallTimeout(tt.tools); got != tt.want {
				t.Errorf("CallTimeout(%v) = %v, want %v", tt.tools, got, tt.want)
			}
		})
	}
	assert.Equal(t, 10*time.Second, p.For("google_search"))
}
