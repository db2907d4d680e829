package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harrypeter07/billsync/pkg/enums"
)

// SyncQueueEntry is a durable record of a local mutation awaiting remote
// propagation. Entries for the same entity drain strictly in insert order.
type SyncQueueEntry struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EntityType enums.EntityType `gorm:"column:entity_type;not null;index:idx_sync_queue_entity" json:"entity_type"`
	EntityID   uuid.UUID        `gorm:"column:entity_id;type:uuid;not null;index:idx_sync_queue_entity" json:"entity_id"`
	Action     enums.SyncAction `gorm:"column:action;not null" json:"action"`
	Data       json.RawMessage  `gorm:"column:data;type:text" json:"data"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	RetryCount int              `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	LastError  *string          `gorm:"column:last_error" json:"last_error,omitempty"`

	// NextAttemptAt gates per-entry backoff. Zero means eligible now.
	NextAttemptAt *time.Time `gorm:"column:next_attempt_at" json:"next_attempt_at,omitempty"`
}

// TableName keeps the historical table name.
func (SyncQueueEntry) TableName() string {
	return "sync_queue"
}
