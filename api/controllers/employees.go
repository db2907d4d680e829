package controllers

import (
	"net/http"

	"github.com/harrypeter07/billsync/api/responses"
	"github.com/harrypeter07/billsync/api/validators"
	employeesvc "github.com/harrypeter07/billsync/internal/employees"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
)

type hireEmployeeRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	PIN  string `json:"pin" validate:"required,min=4,max=12,numeric"`
}

// HireEmployee handles POST /employees. Only owners and admins can hire.
func HireEmployee(svc *employeesvc.Service, store models.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireManagerRole(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload hireEmployeeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		employee, err := svc.Hire(r.Context(), store, payload.Name, payload.PIN)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, employee)
	}
}

// ListEmployees handles GET /employees: active employees ordered by code.
func ListEmployees(svc *employeesvc.Service, store models.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), store.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DeactivateEmployee handles DELETE /employees/{id}. Deactivated codes are
// never reissued.
func DeactivateEmployee(svc *employeesvc.Service, store models.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireManagerRole(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), store.ID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

func requireManagerRole(r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}
	switch identity.Role {
	case enums.RoleOwner, enums.RoleAdmin:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "owner or admin role required")
	}
}
