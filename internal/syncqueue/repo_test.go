package syncqueue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
)

func TestQueueStatsEmpty(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)

	stats, err := repo.QueueStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Rejected)
	assert.Nil(t, stats.OldestQueued)
}

func TestQueueStatsSeparatesRejectedFromPending(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Salt"}
	second := models.Product{ID: uuid.New(), UserID: first.UserID, Name: "Sugar"}
	enqueueProduct(t, db, repo, enums.SyncActionCreate, first)
	enqueueProduct(t, db, repo, enums.SyncActionCreate, second)

	stats, err := repo.QueueStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Pending)
	assert.Zero(t, stats.Rejected)
	require.NotNil(t, stats.OldestQueued)

	head, err := repo.HeadForEntity(ctx, enums.EntityProduct, first.ID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkRejected(ctx, head.ID, assert.AnError))

	stats, err = repo.QueueStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 1, stats.Rejected)
}

func TestQueueStatsCountsBackedOffEntriesAsPending(t *testing.T) {
	db := setupQueueTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Salt"}
	enqueueProduct(t, db, repo, enums.SyncActionCreate, product)

	head, err := repo.HeadForEntity(ctx, enums.EntityProduct, product.ID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkRetried(ctx, head.ID, assert.AnError, time.Now().Add(time.Hour)))

	// Backed off but not rejected: still part of the pending backlog.
	stats, err := repo.QueueStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Pending)
	assert.Zero(t, stats.Rejected)
}
