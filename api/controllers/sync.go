package controllers

import (
	"net/http"

	"github.com/harrypeter07/billsync/api/responses"
	"github.com/harrypeter07/billsync/internal/syncqueue"
	"github.com/harrypeter07/billsync/pkg/logger"
)

// SyncStatus handles GET /sync/status: pending and rejected queue counts
// plus the age of the oldest unsynced mutation.
func SyncStatus(repo *syncqueue.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.QueueStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
