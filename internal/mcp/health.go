package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthCheckTimeout = 3 * time.Second

// HealthChecker is the slice of the vector store the health endpoint needs.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewHealthHandler serves /health: 200 with a JSON body when the knowledge
// store answers within the timeout, 503 otherwise. Deployment probes key off
// the status code; the body is for humans.
func NewHealthHandler(store HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		body := healthResponse{
			Status:    "healthy",
			Store:     "reachable",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		if err := store.Health(ctx); err != nil {
			body.Status = "unhealthy"
			body.Store = "unreachable"
			body.Error = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}
