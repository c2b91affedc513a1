package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckFunc probes one dependency
type CheckFunc func(context.Context) error

type healthCheck struct {
	name     string
	fn       CheckFunc
	critical bool
	timeout  time.Duration
}

// HealthChecker runs registered dependency checks
type HealthChecker struct {
	mu      sync.RWMutex
	checks  []healthCheck
	started time.Time
	version string
}

// CheckStatus represents the status of a health check
type CheckStatus struct {
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Goroutines int                    `json:"goroutines"`
	Checks     map[string]CheckStatus `json:"checks"`
}

// NewHealthChecker creates a checker reporting version
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{started: time.Now(), version: version}
}

// Register adds a check. A failing critical check makes the service
// unhealthy; a failing non-critical check only degrades it.
func (hc *HealthChecker) Register(name string, critical bool, fn CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, healthCheck{name: name, fn: fn, critical: critical, timeout: 5 * time.Second})
}

// Check runs every registered check
func (hc *HealthChecker) Check(ctx context.Context) HealthResponse {
	hc.mu.RLock()
	checks := append([]healthCheck(nil), hc.checks...)
	hc.mu.RUnlock()
	sort.Slice(checks, func(i, j int) bool { return checks[i].name < checks[j].name })

	resp := HealthResponse{
		Status:     HealthStatusHealthy,
		Version:    hc.version,
		Uptime:     time.Since(hc.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Checks:     make(map[string]CheckStatus, len(checks)),
	}

	for _, c := range checks {
		start := time.Now()
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(cctx)
		cancel()

		st := CheckStatus{Status: HealthStatusHealthy, Message: "OK", Duration: time.Since(start).String()}
		if err != nil {
			st.Message = err.Error()
			st.Status = HealthStatusDegraded
			if c.critical {
				st.Status = HealthStatusUnhealthy
			}
		}
		resp.Checks[c.name] = st

		switch {
		case st.Status == HealthStatusUnhealthy:
			resp.Status = HealthStatusUnhealthy
		case st.Status == HealthStatusDegraded && resp.Status == HealthStatusHealthy:
			resp.Status = HealthStatusDegraded
		}
	}
	return resp
}

// HealthHandler serves the aggregated health report
func (hc *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := hc.Check(r.Context())
		code := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

// LivenessHandler returns a simple liveness probe handler
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
