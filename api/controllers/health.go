package controllers

import (
	"context"
	"net/http"

	"github.com/plazagoods/plaza-backend/api/responses"
	"github.com/plazagoods/plaza-backend/pkg/config"
	"github.com/plazagoods/plaza-backend/pkg/db"
	pkgerrors "github.com/plazagoods/plaza-backend/pkg/errors"
	"github.com/plazagoods/plaza-backend/pkg/logger"
	pkgredis "github.com/plazagoods/plaza-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Plaza-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both backing stores answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP pkgredis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Plaza-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		checks["database"] = pingStatus(r.Context(), dbP, &healthy)
		checks["redis"] = pingStatus(r.Context(), redisP, &healthy)

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

type pinger interface {
	Ping(context.Context) error
}

func pingStatus(ctx context.Context, p pinger, healthy *bool) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		*healthy = false
		return "down"
	}
	return "up"
}
