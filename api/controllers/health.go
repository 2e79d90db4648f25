package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/relaydrop/relaydrop-backend/api/responses"
	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
	"github.com/relaydrop/relaydrop-backend/pkg/logger"
)

// Pinger is anything whose availability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady checks every registered dependency; one failure fails the probe.
func HealthReady(checks map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		statuses := map[string]string{}
		healthy := true
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				healthy = false
				statuses[name] = "unavailable"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.check_failed", err)
				}
				continue
			}
			statuses[name] = "ok"
		}

		if !healthy {
			responses.WriteError(ctx, nil, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(statuses))
			return
		}
		responses.WriteSuccess(w, statuses)
	}
}
