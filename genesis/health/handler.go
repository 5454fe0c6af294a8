package health

import (
	"context"
	"encoding/json"
	"net/http"

	constant "github.com/jhousteau/genesis-go/genesis/constants"
	"github.com/jhousteau/genesis-go/genesis/log"
)

// Handler exposes the conventional probe endpoints over net/http:
// /health/liveness, /health/readiness and /health/startup, each emitting
// {status, checks} with 200 for a serving instance and 503 otherwise.
type Handler struct {
	probes *Probes
	logger log.Logger
}

// NewHandler builds probe HTTP handlers around probes.
func NewHandler(probes *Probes, logger log.Logger) *Handler {
	return &Handler{probes: probes, logger: log.OrNop(logger)}
}

// Mount registers the three probe routes on mux.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.Handle("/health/liveness", h.Liveness())
	mux.Handle("/health/readiness", h.Readiness())
	mux.Handle("/health/startup", h.Startup())
}

// Liveness returns the liveness probe handler.
func (h *Handler) Liveness() http.Handler {
	return h.probe(func(ctx context.Context) Report {
		return h.probes.Liveness(ctx)
	})
}

// Readiness returns the readiness probe handler.
func (h *Handler) Readiness() http.Handler {
	return h.probe(func(ctx context.Context) Report {
		return h.probes.Readiness(ctx)
	})
}

// Startup returns the startup probe handler.
func (h *Handler) Startup() http.Handler {
	return h.probe(func(ctx context.Context) Report {
		return h.probes.Startup(ctx)
	})
}

func (h *Handler) probe(run func(ctx context.Context) Report) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := run(r.Context())

		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set(constant.HeaderContentType, "application/json")
		w.WriteHeader(status)

		if err := json.NewEncoder(w).Encode(report); err != nil {
			h.logger.Log(r.Context(), log.LevelWarn, "writing probe response", log.Err(err))
		}
	})
}
