package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

// Repository owns the durable queue of pending mutations. Entries are
// inserted in the same transaction as the local write they describe, so a
// mutation and its queue record commit or roll back together.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository bound to the local database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue appends a queue entry inside the caller's transaction.
func (r *Repository) Enqueue(tx *gorm.DB, entityType enums.EntityType, entityID uuid.UUID, action enums.SyncAction, payload any) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding sync payload")
	}
	entry := models.SyncQueueEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Data:       data,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "enqueuing sync entry")
	}
	return nil
}

// FetchDue returns entries eligible for an attempt at the given instant, in
// creation order. Entries still inside their backoff window are excluded.
func (r *Repository) FetchDue(ctx context.Context, limit int, now time.Time) ([]models.SyncQueueEntry, error) {
	var rows []models.SyncQueueEntry
	err := r.db.WithContext(ctx).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "fetching sync entries")
	}
	return rows, nil
}

// MarkRetried records a failed attempt: bumps the retry counter, stores the
// error, and schedules the next attempt.
func (r *Repository) MarkRetried(ctx context.Context, id int64, attemptErr error, nextAttempt time.Time) error {
	lastError := ""
	if attemptErr != nil {
		lastError = attemptErr.Error()
	}
	err := r.db.WithContext(ctx).Model(&models.SyncQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":     gorm.Expr("retry_count + 1"),
			"last_error":      lastError,
			"next_attempt_at": nextAttempt,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "marking sync entry retried")
	}
	return nil
}

// MarkRejected stamps a permanent failure on the entry. The entry stays
// queued so the data is never silently dropped; it just will not be retried
// until an operator intervenes.
func (r *Repository) MarkRejected(ctx context.Context, id int64, attemptErr error) error {
	lastError := ""
	if attemptErr != nil {
		lastError = attemptErr.Error()
	}
	err := r.db.WithContext(ctx).Model(&models.SyncQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":      lastError,
			"next_attempt_at": farFuture,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "marking sync entry rejected")
	}
	return nil
}

// Delete removes a drained entry.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Delete(&models.SyncQueueEntry{}, id).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "deleting sync entry")
	}
	return nil
}

// PendingCount reports the number of queued mutations for an entity.
func (r *Repository) PendingCount(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SyncQueueEntry{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "counting sync entries")
	}
	return count, nil
}

// HeadForEntity returns the oldest queued entry for an entity, or NotFound.
func (r *Repository) HeadForEntity(ctx context.Context, entityType enums.EntityType, entityID uuid.UUID) (*models.SyncQueueEntry, error) {
	var entry models.SyncQueueEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Order("id ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no queued entries for entity")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "reading queue head")
	}
	return &entry, nil
}

// Stats summarizes queue health for the sync status endpoint.
type Stats struct {
	Pending      int64      `json:"pending"`
	Rejected     int64      `json:"rejected"`
	OldestQueued *time.Time `json:"oldest_queued,omitempty"`
}

// QueueStats counts live and rejected entries and reports the age of the
// oldest live one. Rejected entries are the ones parked past the fetch
// window after a permanent failure.
func (r *Repository) QueueStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := r.db.WithContext(ctx).Model(&models.SyncQueueEntry{})

	err := db.Session(&gorm.Session{}).
		Where("next_attempt_at IS NULL OR next_attempt_at < ?", farFuture).
		Count(&stats.Pending).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "counting pending entries")
	}

	err = db.Session(&gorm.Session{}).
		Where("next_attempt_at >= ?", farFuture).
		Count(&stats.Rejected).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "counting rejected entries")
	}

	var head models.SyncQueueEntry
	err = r.db.WithContext(ctx).
		Where("next_attempt_at IS NULL OR next_attempt_at < ?", farFuture).
		Order("id ASC").
		First(&head).Error
	switch {
	case err == nil:
		stats.OldestQueued = &head.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "reading oldest entry")
	}
	return &stats, nil
}

// farFuture parks rejected entries outside any realistic fetch window.
var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
