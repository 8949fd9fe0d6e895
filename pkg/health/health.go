// Package health provides Kubernetes-style liveness and readiness probes.
// Registered checks run periodically in the background; the HTTP endpoints
// only read the latest results, so probes stay fast even when a dependency
// is slow to answer.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports the health of one component: nil when healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service runs health checks and serves probe endpoints.
type Service struct {
	mu        sync.Mutex
	liveness  []check
	readiness []check
	results   map[string]error

	ready  atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an empty health Service. Add checks, then call Start.
func New() *Service {
	return &Service{results: make(map[string]error)}
}

// AddLivenessCheck registers a check evaluated for /livez.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.liveness = append(s.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check evaluated for /readyz.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.readiness = append(s.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness gate. It is AND-ed with the readiness
// checks, which lets shutdown drain traffic before the server stops.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start launches the background evaluation loop. All checks run once
// immediately and then every interval.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.runAll(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

// Stop terminates the evaluation loop and waits for it to exit.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Service) runAll(ctx context.Context) {
	for _, c := range append(s.liveness[:len(s.liveness):len(s.liveness)], s.readiness...) {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()

		s.mu.Lock()
		s.results[c.name] = err
		s.mu.Unlock()
	}
}

func (s *Service) healthy(checks []check) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(checks))
	ok := true
	for _, c := range checks {
		if err := s.results[c.name]; err != nil {
			out[c.name] = err.Error()
			ok = false
		} else {
			out[c.name] = "ok"
		}
	}
	return out, ok
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	checks, ok := s.healthy(s.liveness)
	writeProbe(w, checks, ok)
}

// ReadyEndpoint serves the readiness probe. It fails when any readiness
// check fails or the manual gate is down.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	checks, ok := s.healthy(s.readiness)
	writeProbe(w, checks, ok && s.ready.Load())
}

func writeProbe(w http.ResponseWriter, checks map[string]string, ok bool) {
	status := "ok"
	code := http.StatusOK
	if !ok {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: status, Checks: checks})
}

// GoroutineCountCheck fails when the process exceeds limit goroutines,
// a cheap proxy for leaks.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return fmt.Errorf("too many goroutines: %d > %d", n, limit)
		}
		return nil
	}
}
