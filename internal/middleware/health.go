package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// healthTimeout bounds one /health request across all checks.
const healthTimeout = 5 * time.Second

// HealthChecker defines interface for health checking
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) Check(ctx context.Context) error { return f(ctx) }

type optionalChecker struct{ HealthChecker }

// Optional marks a dependency the service can run without, such as the
// archive or the analyzer. Its failure degrades the report but keeps 200.
func Optional(c HealthChecker) HealthChecker {
	return optionalChecker{c}
}

// HealthStatus represents the health status
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents individual check status
type CheckStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency"`
}

// RunChecks probes every checker concurrently under ctx.
func RunChecks(ctx context.Context, checkers map[string]HealthChecker) HealthStatus {
	health := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckStatus, len(checkers)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			_, optional := checker.(optionalChecker)
			start := time.Now()
			err := checker.Check(ctx)
			cs := CheckStatus{
				Status:   StatusHealthy,
				Optional: optional,
				Latency:  time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				cs.Status = StatusUnhealthy
				cs.Message = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			health.Checks[name] = cs
			switch {
			case err == nil:
			case !optional:
				health.Status = StatusUnhealthy
			case health.Status == StatusHealthy:
				health.Status = StatusDegraded
			}
		}(name, checker)
	}
	wg.Wait()
	return health
}

// HealthHandler answers 503 only when a required checker fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		health := RunChecks(ctx, checkers)

		statusCode := http.StatusOK
		if health.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(health)
	}
}

// LivenessHandler creates a liveness check handler (simplest check)
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
