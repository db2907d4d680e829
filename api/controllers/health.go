package controllers

import (
	"net/http"

	"github.com/harrypeter07/billsync/api/responses"
	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/db"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
)

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady reports readiness: the local database must answer.
func HealthReady(logg *logger.Logger, client *db.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}
		if err := client.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
