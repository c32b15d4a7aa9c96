package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/aurelhart/scoreline-backend/api/responses"
	"github.com/aurelhart/scoreline-backend/pkg/config"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessProbes lists the dependencies the ready check exercises. Nil
// entries are skipped so optional integrations don't gate startup.
type ReadinessProbes struct {
	DB      pinger
	Redis   pinger
	Catalog pinger
	Ledger  pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Scoreline-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, probes ReadinessProbes, logg *logger.Logger) http.HandlerFunc {
	checks := []struct {
		name  string
		probe pinger
	}{
		{"db", probes.DB},
		{"redis", probes.Redis},
		{"catalog", probes.Catalog},
		{"ledger", probes.Ledger},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Scoreline-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		for _, check := range checks {
			if check.probe == nil {
				continue
			}
			if err := check.probe.Ping(ctx); err != nil {
				status[check.name] = "unreachable"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "readiness probe failed").WithDetails(status))
				return
			}
			status[check.name] = "ok"
		}

		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
