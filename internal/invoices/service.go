package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/internal/datapath"
	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/internal/sequence"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
	"github.com/harrypeter07/billsync/pkg/render"
	"github.com/harrypeter07/billsync/pkg/storage"
)

// ServiceParams groups dependencies for the invoice service.
type ServiceParams struct {
	Logger   *logger.Logger
	Writer   *datapath.Writer
	Numbers  *sequence.InvoiceNumberGenerator
	Renderer render.Renderer
	Uploader storage.Uploader
}

// Service owns the invoice lifecycle: numbering, GST totals, status
// transitions and the rendered document on send.
type Service struct {
	logg     *logger.Logger
	writer   *datapath.Writer
	numbers  *sequence.InvoiceNumberGenerator
	renderer render.Renderer
	uploader storage.Uploader
	now      func() time.Time
}

// NewService builds an invoice service. Renderer and uploader are optional;
// without them the send transition skips document generation.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	if params.Writer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "writer is required")
	}
	if params.Numbers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "number generator is required")
	}
	return &Service{
		logg:     params.Logger,
		writer:   params.Writer,
		numbers:  params.Numbers,
		renderer: params.Renderer,
		uploader: params.Uploader,
		now:      time.Now,
	}, nil
}

// CreateInput describes a new invoice.
type CreateInput struct {
	UserID       uuid.UUID
	Store        models.Store
	EmployeeCode string
	CustomerID   *uuid.UUID
	InvoiceDate  time.Time
	DueDate      *time.Time
	IsGSTInvoice bool
	Items        []models.InvoiceItem
}

// Create allocates an invoice number, computes line and invoice totals and
// writes the draft invoice with its items. The header and lines commit
// together; the invoice number is never reused even if the caller later
// deletes the invoice.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Invoice, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice requires at least one item")
	}

	now := s.now().UTC()
	invoiceDate := input.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = now
	}

	number, err := s.numbers.Next(ctx, input.Store.ID, input.Store.Code, input.EmployeeCode, now)
	if err != nil {
		return nil, err
	}

	invoice := models.Invoice{
		ID:            uuid.New(),
		UserID:        input.UserID,
		CustomerID:    input.CustomerID,
		InvoiceNumber: number,
		InvoiceDate:   invoiceDate,
		DueDate:       input.DueDate,
		Status:        enums.InvoiceStatusDraft,
		IsGSTInvoice:  input.IsGSTInvoice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := make([]models.InvoiceItem, len(input.Items))
	copy(items, input.Items)
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].InvoiceID = invoice.ID
		ComputeLine(&items[i])
	}

	interState := false
	if input.CustomerID != nil {
		customer, err := localstore.Get[models.Customer](ctx, s.writer.Local(), *input.CustomerID)
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		if customer != nil {
			interState = InterState(input.Store.StateCode, customer.GSTIN)
		}
	}

	totals := ComputeTotals(items, input.IsGSTInvoice, interState)
	invoice.Subtotal = totals.Subtotal
	invoice.DiscountAmount = totals.DiscountAmount
	invoice.CGSTAmount = totals.CGST
	invoice.SGSTAmount = totals.SGST
	invoice.IGSTAmount = totals.IGST
	invoice.TotalAmount = totals.Total

	invoice.Items = items
	err = datapath.CreateWith(ctx, s.writer, invoice, func(tx *gorm.DB) error {
		return s.writer.Local().WithTx(tx).ReplaceItems(ctx, invoice.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Get loads an invoice with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := localstore.Get[models.Invoice](ctx, s.writer.Local(), id)
	if err != nil {
		return nil, err
	}
	items, err := s.writer.Local().ItemsForInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.Items = items
	return invoice, nil
}

// List returns the user's invoices, excluding soft-deleted rows.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	return localstore.List[models.Invoice](ctx, s.writer.Local(), "user_id = ?", userID)
}

// UpdateItems replaces the line items of a draft invoice and recomputes its
// totals. Only drafts are editable.
func (s *Service) UpdateItems(ctx context.Context, id uuid.UUID, store models.Store, items []models.InvoiceItem) (*models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != enums.InvoiceStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only draft invoices can be edited")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice requires at least one item")
	}

	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].InvoiceID = invoice.ID
		ComputeLine(&items[i])
	}

	interState := false
	if invoice.CustomerID != nil {
		customer, err := localstore.Get[models.Customer](ctx, s.writer.Local(), *invoice.CustomerID)
		if err == nil {
			interState = InterState(store.StateCode, customer.GSTIN)
		}
	}

	totals := ComputeTotals(items, invoice.IsGSTInvoice, interState)
	invoice.Subtotal = totals.Subtotal
	invoice.DiscountAmount = totals.DiscountAmount
	invoice.CGSTAmount = totals.CGST
	invoice.SGSTAmount = totals.SGST
	invoice.IGSTAmount = totals.IGST
	invoice.TotalAmount = totals.Total
	invoice.UpdatedAt = s.now().UTC()

	invoice.Items = items
	err = datapath.UpdateWith(ctx, s.writer, *invoice, func(tx *gorm.DB) error {
		return s.writer.Local().WithTx(tx).ReplaceItems(ctx, invoice.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Transition moves an invoice through its lifecycle. Sending a GST invoice
// also renders and uploads the document when a renderer is wired; a failed
// render does not roll the status back, it only surfaces in the result.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, store models.Store, target enums.InvoiceStatus) (*models.Invoice, string, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !invoice.Status.CanTransitionTo(target) {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cannot move invoice from %s to %s", invoice.Status, target))
	}

	invoice.Status = target
	invoice.UpdatedAt = s.now().UTC()
	if err := datapath.Update(ctx, s.writer, *invoice); err != nil {
		return nil, "", err
	}

	var documentURL string
	if target == enums.InvoiceStatusSent && s.renderer != nil && s.uploader != nil {
		documentURL, err = s.renderAndUpload(ctx, invoice, store)
		if err != nil {
			s.logg.Error(s.logg.WithEntity(ctx, enums.EntityInvoice.String(), id.String()),
				"invoice document generation failed", err)
			return invoice, "", nil
		}
	}
	return invoice, documentURL, nil
}

// Delete soft-deletes the invoice locally and queues the remote delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return datapath.Delete[models.Invoice](ctx, s.writer, id, s.now().UTC())
}

func (s *Service) renderAndUpload(ctx context.Context, invoice *models.Invoice, store models.Store) (string, error) {
	doc := render.InvoiceDocument{
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceDate:   invoice.InvoiceDate,
		StoreName:     store.Name,
		StoreGSTIN:    store.GSTIN,
		IsGSTInvoice:  invoice.IsGSTInvoice,
		Subtotal:      invoice.Subtotal,
		CGST:          invoice.CGSTAmount,
		SGST:          invoice.SGSTAmount,
		IGST:          invoice.IGSTAmount,
		Total:         invoice.TotalAmount,
	}
	if invoice.CustomerID != nil {
		if customer, err := localstore.Get[models.Customer](ctx, s.writer.Local(), *invoice.CustomerID); err == nil {
			doc.CustomerName = customer.Name
			doc.CustomerGSTIN = customer.GSTIN
		}
	}
	for _, item := range invoice.Items {
		doc.Lines = append(doc.Lines, render.DocumentLine{
			Description: item.Description,
			HSNCode:     item.HSNCode,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			GSTRate:     item.GSTRate,
			LineTotal:   item.LineTotal,
		})
	}

	pdf, err := s.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		return "", err
	}
	return s.uploader.Upload(ctx, storage.UploadInput{
		Name:        invoice.InvoiceNumber + ".pdf",
		ContentType: "application/pdf",
		Data:        pdf,
	})
}
