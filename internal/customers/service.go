package customers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/internal/datapath"
	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/pkg/db/models"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

// Service is optimistic local CRUD over the customer book.
type Service struct {
	writer *datapath.Writer
	now    func() time.Time
}

// NewService builds a customer service.
func NewService(writer *datapath.Writer) (*Service, error) {
	if writer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "writer is required")
	}
	return &Service{writer: writer, now: time.Now}, nil
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, customer models.Customer) (*models.Customer, error) {
	if customer.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	now := s.now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	if err := datapath.Create(ctx, s.writer, customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Update applies edits to an existing customer. The owner never changes.
func (s *Service) Update(ctx context.Context, customer models.Customer) (*models.Customer, error) {
	existing, err := localstore.Get[models.Customer](ctx, s.writer.Local(), customer.ID)
	if err != nil {
		return nil, err
	}
	customer.UserID = existing.UserID
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = s.now().UTC()
	if err := datapath.Update(ctx, s.writer, customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Get loads one customer.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return localstore.Get[models.Customer](ctx, s.writer.Local(), id)
}

// List returns the user's customers.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Customer, error) {
	return localstore.List[models.Customer](ctx, s.writer.Local(), "user_id = ?", userID)
}

// Delete soft-deletes the customer and queues the remote delete. Invoices
// referencing the customer keep their weak reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return datapath.Delete[models.Customer](ctx, s.writer, id, s.now().UTC())
}
