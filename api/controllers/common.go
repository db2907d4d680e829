package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/api/middleware"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

func requireIdentity(r *http.Request) (*middleware.Identity, error) {
	identity := middleware.IdentityFrom(r.Context())
	if identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return identity, nil
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	identity, err := requireIdentity(r)
	if err != nil {
		return uuid.Nil, err
	}
	return identity.UserID, nil
}
