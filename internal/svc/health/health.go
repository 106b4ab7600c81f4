// If you are AI: This file implements the health check endpoint for monitoring and integration tests.

package health

import (
	"net/http"
)

// Checker reports whether a dependency is ready. A nil error means healthy.
type Checker func() error

// Service provides health check functionality.
type Service struct {
	checks map[string]Checker
}

// New creates a new health service instance.
func New() *Service {
	return &Service{checks: make(map[string]Checker)}
}

// AddCheck registers a named readiness check consulted by /healthz.
func (s *Service) AddCheck(name string, check Checker) {
	s.checks[name] = check
}

// RegisterRoutes adds health check routes to the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
}

// handleHealth answers 200 "ok" when every check passes and 503 naming the
// first failing check otherwise.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for name, check := range s.checks {
		if err := check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(name + ": " + err.Error() + "\n"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
