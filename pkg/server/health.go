package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

// ServiceName is the health service name of the analyzer api.
const ServiceName = "dla.v1.AnalyzerService"

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// healthChecker serves the analyzer as long as every registered dependency
// check succeeds. The empty service name asks for the overall status.
type healthChecker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func newHealthChecker() *healthChecker {
	return &healthChecker{checks: map[string]CheckFunc{}}
}

func (h *healthChecker) add(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

//nolint:whitespace // can't make both editor and linter happy
func (h *healthChecker) Check(ctx context.Context, req *grpchealth.CheckRequest) (
	*grpchealth.CheckResponse, error,
) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var checks map[string]CheckFunc
	switch req.Service {
	case "", ServiceName:
		checks = h.checks
	default:
		c, ok := h.checks[req.Service]
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound,
				fmt.Errorf("unknown service %s", req.Service))
		}
		checks = map[string]CheckFunc{req.Service: c}
	}
	var errs []error
	for name, c := range checks {
		if err := c(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		log.GetFromContext(ctx).Warn("health check failed", log.ErrorField(errors.Join(errs...)))
		return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}
