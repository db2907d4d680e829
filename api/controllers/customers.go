package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/api/responses"
	"github.com/harrypeter07/billsync/api/validators"
	customersvc "github.com/harrypeter07/billsync/internal/customers"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/logger"
)

type customerRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"max=20"`
	GSTIN           string `json:"gstin" validate:"omitempty,len=15"`
	BillingAddress  string `json:"billing_address" validate:"max=500"`
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
	Notes           string `json:"notes" validate:"max=1000"`
}

func (c customerRequest) toModel(userID uuid.UUID) models.Customer {
	return models.Customer{
		UserID:          userID,
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		GSTIN:           c.GSTIN,
		BillingAddress:  c.BillingAddress,
		ShippingAddress: c.ShippingAddress,
		Notes:           c.Notes,
	}
}

// CreateCustomer handles POST /customers.
func CreateCustomer(svc *customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload customerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Create(r.Context(), payload.toModel(userID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

// ListCustomers handles GET /customers.
func ListCustomers(svc *customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetCustomer handles GET /customers/{id}.
func GetCustomer(svc *customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// UpdateCustomer handles PUT /customers/{id}.
func UpdateCustomer(svc *customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload customerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer := payload.toModel(userID)
		customer.ID = id
		updated, err := svc.Update(r.Context(), customer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// DeleteCustomer handles DELETE /customers/{id}.
func DeleteCustomer(svc *customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
