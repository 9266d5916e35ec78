package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/tripnest/auth/internal/observability/logger"
)

// Pinger es lo mínimo que el healthcheck necesita de una dependencia.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health responde el estado del servicio y sus dependencias.
type Health struct {
	providers []string
	deps      map[string]Pinger
}

func NewHealth(providers []string) *Health {
	return &Health{providers: providers, deps: make(map[string]Pinger)}
}

// AddDependency registra una dependencia chequeable (store, redis).
func (h *Health) AddDependency(name string, p Pinger) {
	if p != nil {
		h.deps[name] = p
	}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Providers []string          `json:"providers"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Healthz maneja GET /healthz. Degradado => 503 con el detalle por dependencia.
func (h *Health) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Providers: h.providers,
		Checks:    make(map[string]string, len(h.deps)),
	}
	status := http.StatusOK

	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			logger.From(r.Context()).Warn("health check failed",
				logger.Component(name), logger.Err(err),
			)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}
