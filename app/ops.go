package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// opsHandler serves metrics and health probes.
func (a *App) opsHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", a.handleReady)
	return r
}

func (a *App) readinessChecks() []healthCheck {
	checks := []healthCheck{{name: "database", check: a.DB.PingContext}}
	if q := a.Modules.Stage.Queue; q != nil {
		checks = append(checks, healthCheck{name: "queue", check: q.HealthCheck})
	}
	return checks
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{}
	if !a.Router.IsRunning() {
		status = http.StatusServiceUnavailable
		body["router"] = "not running"
	} else {
		body["router"] = "ok"
	}
	for _, c := range a.readinessChecks() {
		if err := c.check(ctx); err != nil {
			a.Logger.WarnContext(ctx, "Readiness check failed", slog.String("check", c.name), slog.Any("error", err))
			status = http.StatusServiceUnavailable
			body[c.name] = err.Error()
			continue
		}
		body[c.name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
