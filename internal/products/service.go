package products

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/internal/datapath"
	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/pkg/db/models"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

// Service is optimistic local CRUD over the product catalog. Writes apply
// to the local mirror immediately and propagate through the sync queue.
type Service struct {
	writer *datapath.Writer
	now    func() time.Time
}

// NewService builds a product service.
func NewService(writer *datapath.Writer) (*Service, error) {
	if writer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "writer is required")
	}
	return &Service{writer: writer, now: time.Now}, nil
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, product models.Product) (*models.Product, error) {
	if product.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := s.now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	if err := datapath.Create(ctx, s.writer, product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Update applies edits to an existing product. The owner never changes.
func (s *Service) Update(ctx context.Context, product models.Product) (*models.Product, error) {
	existing, err := localstore.Get[models.Product](ctx, s.writer.Local(), product.ID)
	if err != nil {
		return nil, err
	}
	product.UserID = existing.UserID
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.now().UTC()
	if err := datapath.Update(ctx, s.writer, product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Get loads one product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return localstore.Get[models.Product](ctx, s.writer.Local(), id)
}

// List returns the user's products.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	return localstore.List[models.Product](ctx, s.writer.Local(), "user_id = ?", userID)
}

// Delete soft-deletes the product and queues the remote delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return datapath.Delete[models.Product](ctx, s.writer, id, s.now().UTC())
}

// AdjustStock shifts the stock level by delta, clamped at zero.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	product, err := localstore.Get[models.Product](ctx, s.writer.Local(), id)
	if err != nil {
		return nil, err
	}
	product.StockQuantity += delta
	if product.StockQuantity < 0 {
		product.StockQuantity = 0
	}
	product.UpdatedAt = s.now().UTC()
	if err := datapath.Update(ctx, s.writer, *product); err != nil {
		return nil, err
	}
	return product, nil
}
