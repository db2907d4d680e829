package localstore

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

// Entity is the surface every mirrored row exposes to the local store.
type Entity interface {
	EntityID() uuid.UUID
	LastUpdated() time.Time
	Type() enums.EntityType
}

// Store is the durable local mirror of domain entities. It is the single
// writer of local state; callers route every local read and write through it.
type Store struct {
	db *gorm.DB
}

// New builds a store bound to the provided GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the provided transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// DB exposes the underlying connection for callers that compose their own
// transactions around store operations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Get loads an entity by id. Soft-deleted rows are excluded.
func Get[T Entity](ctx context.Context, s *Store, id uuid.UUID) (*T, error) {
	var entity T
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entity not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "reading entity")
	}
	return &entity, nil
}

// Put upserts the entity atomically. Concurrent writes to the same id
// resolve last-writer-wins by wall-clock updated_at: an incoming write older
// than the stored row is dropped silently.
func Put[T Entity](ctx context.Context, s *Store, entity T) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		err := tx.Where("id = ?", entity.EntityID()).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&entity).Error
		case err != nil:
			return err
		}
		if existing.LastUpdated().After(entity.LastUpdated()) {
			return nil
		}
		return tx.Save(&entity).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "writing entity")
	}
	return nil
}

// SoftDelete marks the entity deleted without removing the row. The row is
// retained until the delete has propagated remotely, then purged.
func SoftDelete[T Entity](ctx context.Context, s *Store, id uuid.UUID, when time.Time) error {
	var entity T
	result := s.db.WithContext(ctx).Model(&entity).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]any{
			"deleted":    true,
			"is_synced":  false,
			"updated_at": when,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, result.Error, "soft-deleting entity")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "entity not found")
	}
	return nil
}

// Purge removes a soft-deleted row for good. Called by the reconciler once
// the delete is confirmed remotely.
func Purge[T Entity](ctx context.Context, s *Store, id uuid.UUID) error {
	var entity T
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, true).
		Delete(&entity).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "purging entity")
	}
	return nil
}

// MarkSynced stamps the entity as agreeing with the remote store.
func MarkSynced[T Entity](ctx context.Context, s *Store, id uuid.UUID) error {
	var entity T
	err := s.db.WithContext(ctx).Model(&entity).
		Where("id = ?", id).
		Update("is_synced", true).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "marking entity synced")
	}
	return nil
}

// Query returns a lazy, restartable sequence of rows matching the condition.
// Each range over the sequence issues a fresh read; soft-deleted rows are
// excluded. Iteration stops early when the yield func returns false.
func Query[T Entity](ctx context.Context, s *Store, cond string, args ...any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		query := s.db.WithContext(ctx).Where("deleted = ?", false)
		if cond != "" {
			query = query.Where(cond, args...)
		}

		rows, err := query.Model(new(T)).Rows()
		if err != nil {
			var zero T
			yield(zero, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "querying entities"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var entity T
			if err := s.db.ScanRows(rows, &entity); err != nil {
				var zero T
				yield(zero, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "scanning entity"))
				return
			}
			if !yield(entity, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			var zero T
			yield(zero, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "iterating entities"))
		}
	}
}

// List collects the matching rows eagerly. Convenience wrapper over Query
// for callers that want a slice.
func List[T Entity](ctx context.Context, s *Store, cond string, args ...any) ([]T, error) {
	var out []T
	for entity, err := range Query[T](ctx, s, cond, args...) {
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// ItemsForInvoice loads the line items bound to an invoice. Items live and
// die with their invoice, so there is no soft-delete flag to filter.
func (s *Store) ItemsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	var items []models.InvoiceItem
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "loading invoice items")
	}
	return items, nil
}

// ReplaceItems swaps the full set of line items for an invoice.
func (s *Store) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []models.InvoiceItem) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "replacing invoice items")
	}
	return nil
}
