package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/harrypeter07/billsync/api/responses"
	"github.com/harrypeter07/billsync/api/validators"
	employeesvc "github.com/harrypeter07/billsync/internal/employees"
	"github.com/harrypeter07/billsync/internal/session"
	pkgAuth "github.com/harrypeter07/billsync/pkg/auth"
	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
	"github.com/harrypeter07/billsync/pkg/security"
)

type ownerLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ownerLoginResponse struct {
	Token   string              `json:"token"`
	Session *models.AuthSession `json:"session"`
}

type employeeLoginRequest struct {
	Code string `json:"code" validate:"required,len=4"`
	PIN  string `json:"pin" validate:"required,min=4"`
}

type sessionStatusResponse struct {
	Session *models.AuthSession `json:"session,omitempty"`
	Mode    enums.Mode          `json:"mode"`
}

// OwnerLogin handles POST /auth/owner/login. The owner account is
// provisioned through configuration; a successful login mints a bearer
// token and replaces the local session.
func OwnerLogin(cfg *config.Config, store models.Store, sessions *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ownerLoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if cfg.Store.OwnerEmail == "" || cfg.Store.OwnerPasswordHash == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "owner login is not configured"))
			return
		}
		if !strings.EqualFold(payload.Email, cfg.Store.OwnerEmail) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
			return
		}
		ok, err := security.VerifyPin(payload.Password, cfg.Store.OwnerPasswordHash)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying credentials"))
			return
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
			return
		}

		storeID := store.ID
		token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID:  store.OwnerID,
			Email:   cfg.Store.OwnerEmail,
			Role:    enums.RoleOwner,
			StoreID: &storeID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token"))
			return
		}

		sess, err := sessions.Save(r.Context(), store.OwnerID, cfg.Store.OwnerEmail, enums.RoleOwner, &storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ownerLoginResponse{Token: token, Session: sess})
	}
}

// EmployeeLogin handles POST /auth/employee/login. Employee sessions are
// local-only; no token is issued.
func EmployeeLogin(svc *employeesvc.Service, store models.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload employeeLoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.Login(r.Context(), store.ID, payload.Code, payload.PIN)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess)
	}
}

// Logout handles POST /auth/logout. Clearing an absent session is not an
// error.
func Logout(sessions *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// SessionStatus handles GET /auth/session: the active session, if any, and
// the mode writes currently route through.
func SessionStatus(cfg *config.Config, sessions *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessions.Get(r.Context())
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) &&
			!pkgerrors.HasCode(err, pkgerrors.CodeSessionExpired) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionStatusResponse{
			Session: sess,
			Mode:    session.SelectMode(sess, cfg.FeatureFlags.Mode()),
		})
	}
}
