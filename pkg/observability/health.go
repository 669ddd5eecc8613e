package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is a named dependency probe, e.g. a Redis ping.
type HealthCheck struct {
	Name      string
	CheckFunc func(context.Context) error
	Timeout   time.Duration
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    HealthStatus      `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
	System    SystemInfo        `json:"system"`
}

// SystemInfo represents system information
type SystemInfo struct {
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemAlloc      uint64 `json:"mem_alloc_mb"`
}

var startTime = time.Now()

// Check runs every probe and aggregates the result. Any failing probe makes
// the service unhealthy.
func Check(ctx context.Context, checks ...HealthCheck) HealthResponse {
	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		System:    getSystemInfo(),
	}

	if len(checks) > 0 {
		resp.Checks = make(map[string]string, len(checks))
	}
	for _, c := range checks {
		timeout := c.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := c.CheckFunc(checkCtx)
		cancel()

		if err != nil {
			resp.Checks[c.Name] = err.Error()
			resp.Status = HealthStatusUnhealthy
			continue
		}
		resp.Checks[c.Name] = "OK"
	}
	return resp
}

// HealthHandler returns an HTTP handler for health checks
func HealthHandler(checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := Check(r.Context(), checks...)

		w.Header().Set("Content-Type", "application/json")
		if response.Status == HealthStatusHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

func getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemAlloc:      m.Alloc / 1024 / 1024,
	}
}
