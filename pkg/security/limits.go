package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CallLimiter rate limits model calls with one global bucket plus one
// bucket per model.
type CallLimiter struct {
	global *rate.Limiter
	rps    float64
	burst  int

	mu       sync.Mutex
	perModel map[string]*rate.Limiter
}

// NewCallLimiter creates a limiter allowing rps calls per second with the
// given burst. A non-positive rps disables limiting.
func NewCallLimiter(rps float64, burst int) *CallLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &CallLimiter{
		global:   rate.NewLimiter(limit, burst),
		rps:      rps,
		burst:    burst,
		perModel: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a call to model may proceed or ctx is done.
func (l *CallLimiter) Wait(ctx context.Context, model string) error {
	if err := l.global.Wait(ctx); err != nil {
		return fmt.Errorf("global rate limit: %w", err)
	}
	if err := l.forModel(model).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit for %s: %w", model, err)
	}
	return nil
}

// Allow reports whether a call to model may proceed now.
func (l *CallLimiter) Allow(model string) bool {
	return l.global.Allow() && l.forModel(model).Allow()
}

func (l *CallLimiter) forModel(model string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.perModel[model]
	if !ok {
		lim = rate.NewLimiter(l.global.Limit(), l.burst)
		l.perModel[model] = lim
	}
	return lim
}

// TimeoutPolicy maps tool names to call timeouts.
type TimeoutPolicy struct {
	def     time.Duration
	perTool map[string]time.Duration
}

// NewTimeoutPolicy builds a policy from per-tool timeouts in seconds.
// Zero entries fall back to def.
func NewTimeoutPolicy(def time.Duration, toolSeconds map[string]int) *TimeoutPolicy {
	p := &TimeoutPolicy{def: def, perTool: make(map[string]time.Duration, len(toolSeconds))}
	for name, secs := range toolSeconds {
		if secs > 0 {
			p.perTool[name] = time.Duration(secs) * time.Second
		}
	}
	return p
}

// For returns the timeout for tool.
func (p *TimeoutPolicy) For(tool string) time.Duration {
	if d, ok := p.perTool[tool]; ok {
		return d
	}
	return p.def
}

// CallTimeout returns the timeout for a model call that may use any of
// tools: the largest of their timeouts, or the default.
func (p *TimeoutPolicy) CallTimeout(tools []string) time.Duration {
	d := p.def
	for _, t := range tools {
		if td := p.For(t); td > d {
			d = td
		}
	}
	return d
}
