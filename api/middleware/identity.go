package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/api/responses"
	"github.com/harrypeter07/billsync/internal/session"
	pkgAuth "github.com/harrypeter07/billsync/pkg/auth"
	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
)

// Identity is who the request acts as, resolved from either a bearer token
// (owner/admin remote sessions) or the local singleton session (employee
// PIN logins).
type Identity struct {
	UserID  uuid.UUID
	Role    enums.Role
	StoreID *uuid.UUID
}

type identityKey struct{}

// RequireIdentity resolves the caller's identity or rejects the request.
// A bearer token wins when present; otherwise the local session is
// consulted, so offline employee logins keep working without a token.
func RequireIdentity(cfg config.JWTConfig, sessions *session.Manager, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolveIdentity(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID.String())
				if identity.StoreID != nil {
					ctx = logg.WithStoreID(ctx, identity.StoreID.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveIdentity(r *http.Request, cfg config.JWTConfig, sessions *session.Manager) (*Identity, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		token := raw
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		claims, err := pkgAuth.ParseAccessToken(cfg, token)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		return &Identity{UserID: claims.UserID, Role: claims.Role, StoreID: claims.StoreID}, nil
	}

	sess, err := sessions.Get(r.Context())
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeSessionExpired) {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return &Identity{UserID: sess.UserID, Role: sess.Role, StoreID: sess.StoreID}, nil
}

// IdentityFrom returns the identity attached by RequireIdentity, if any.
func IdentityFrom(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey{}).(*Identity)
	return identity
}
