package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harrypeter07/billsync/api/responses"
	"github.com/harrypeter07/billsync/api/validators"
	invoicesvc "github.com/harrypeter07/billsync/internal/invoices"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
)

type invoiceItemRequest struct {
	ProductID       *uuid.UUID      `json:"product_id"`
	Description     string          `json:"description" validate:"required,max=300"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	GSTRate         decimal.Decimal `json:"gst_rate"`
	HSNCode         string          `json:"hsn_code" validate:"max=16"`
}

func (i invoiceItemRequest) toModel() models.InvoiceItem {
	return models.InvoiceItem{
		ProductID:       i.ProductID,
		Description:     i.Description,
		Quantity:        i.Quantity,
		UnitPrice:       i.UnitPrice,
		DiscountPercent: i.DiscountPercent,
		GSTRate:         i.GSTRate,
		HSNCode:         i.HSNCode,
	}
}

type invoiceCreateRequest struct {
	CustomerID   *uuid.UUID           `json:"customer_id"`
	EmployeeCode string               `json:"employee_code" validate:"max=4"`
	InvoiceDate  *time.Time           `json:"invoice_date"`
	DueDate      *time.Time           `json:"due_date"`
	IsGSTInvoice bool                 `json:"is_gst_invoice"`
	Items        []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type invoiceItemsRequest struct {
	Items []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type invoiceTransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type invoiceTransitionResponse struct {
	Invoice     *models.Invoice `json:"invoice"`
	DocumentURL string          `json:"document_url,omitempty"`
}

func itemModels(items []invoiceItemRequest) []models.InvoiceItem {
	out := make([]models.InvoiceItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.toModel())
	}
	return out
}

// CreateInvoice handles POST /invoices.
func CreateInvoice(svc *invoicesvc.Service, store models.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoiceCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceDate := time.Now().UTC()
		if payload.InvoiceDate != nil {
			invoiceDate = payload.InvoiceDate.UTC()
		}

		invoice, err := svc.Create(r.Context(), invoicesvc.CreateInput{
			UserID:       userID,
			Store:        store,
			EmployeeCode: payload.EmployeeCode,
			CustomerID:   payload.CustomerID,
			InvoiceDate:  invoiceDate,
			DueDate:      payload.DueDate,
			IsGSTInvoice: payload.IsGSTInvoice,
			Items:        itemModels(payload.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// ListInvoices handles GET /invoices.
func ListInvoices(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
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

// GetInvoice handles GET /invoices/{id}.
func GetInvoice(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// UpdateInvoiceItems handles PUT /invoices/{id}/items. Only drafts accept
// item edits.
func UpdateInvoiceItems(svc *invoicesvc.Service, store models.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoiceItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.UpdateItems(r.Context(), id, store, itemModels(payload.Items))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// TransitionInvoice handles POST /invoices/{id}/transition.
func TransitionInvoice(svc *invoicesvc.Service, store models.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoiceTransitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseInvoiceStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		invoice, documentURL, err := svc.Transition(r.Context(), id, store, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoiceTransitionResponse{Invoice: invoice, DocumentURL: documentURL})
	}
}

// DeleteInvoice handles DELETE /invoices/{id}.
func DeleteInvoice(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
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
