package session

import (
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
)

// SelectMode decides how data operations route: through the local mirror
// with asynchronous reconciliation, or directly against the remote store.
// It is a pure function of the current session and the configured flag, and
// callers re-evaluate it on every sensitive operation so an expiring session
// is noticed at the next check rather than at some cache boundary.
//
// Employee logins always work local-first: they hold no remote credentials.
// Owner and admin sessions go remote-direct unless the deployment pins
// local-first mode. No session at all means local-first, so the app keeps
// working offline.
func SelectMode(session *models.AuthSession, configured enums.Mode) enums.Mode {
	if configured == enums.ModeLocalFirst {
		return enums.ModeLocalFirst
	}
	if session == nil {
		return enums.ModeLocalFirst
	}
	switch session.Role {
	case enums.RoleOwner, enums.RoleAdmin:
		return enums.ModeRemoteDirect
	default:
		return enums.ModeLocalFirst
	}
}
