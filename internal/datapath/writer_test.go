package datapath

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/internal/remote"
	"github.com/harrypeter07/billsync/internal/session"
	"github.com/harrypeter07/billsync/internal/syncqueue"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
)

type scriptedRemote struct {
	creates   int
	deletes   int
	createErr error
	deleteErr error
}

func (r *scriptedRemote) Create(context.Context, string, remote.Row) error {
	r.creates++
	return r.createErr
}

func (r *scriptedRemote) Update(context.Context, string, uuid.UUID, remote.Row) error {
	return nil
}

func (r *scriptedRemote) Delete(context.Context, string, uuid.UUID) error {
	r.deletes++
	return r.deleteErr
}

func (r *scriptedRemote) Query(context.Context, string, ...remote.Filter) ([]remote.Row, error) {
	return nil, nil
}

func (r *scriptedRemote) Exists(context.Context, string, uuid.UUID) (bool, error) {
	return false, nil
}

func setupWriterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT,
  category TEXT,
  price TEXT NOT NULL DEFAULT '0',
  cost_price TEXT NOT NULL DEFAULT '0',
  gst_rate TEXT NOT NULL DEFAULT '0',
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  unit TEXT,
  hsn_code TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_synced INTEGER NOT NULL DEFAULT 0,
  deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  action TEXT NOT NULL,
  data TEXT,
  created_at DATETIME,
  retry_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  next_attempt_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS auth_session (
  id INTEGER PRIMARY KEY,
  user_id TEXT NOT NULL,
  email TEXT NOT NULL,
  role TEXT NOT NULL,
  store_id TEXT,
  issued_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL
);`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func newTestWriter(t *testing.T, db *gorm.DB, rem remote.Store, mode enums.Mode) (*Writer, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(db, time.Hour)
	writer, err := NewWriter(WriterParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:       db,
		Local:    localstore.New(db),
		Queue:    syncqueue.NewRepository(db),
		Remote:   rem,
		Sessions: sessions,
		Mode:     mode,
	})
	require.NoError(t, err)
	return writer, sessions
}

func queuedCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.SyncQueueEntry{}).Count(&count).Error)
	return count
}

func TestLocalFirstCreateWritesLocallyAndQueues(t *testing.T) {
	db := setupWriterTestDB(t)
	rem := &scriptedRemote{}
	writer, _ := newTestWriter(t, db, rem, enums.ModeLocalFirst)
	ctx := context.Background()

	product := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Tea", UpdatedAt: time.Now().UTC()}
	require.NoError(t, Create(ctx, writer, product))

	got, err := localstore.Get[models.Product](ctx, writer.Local(), product.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSynced)
	assert.Equal(t, int64(1), queuedCount(t, db))
	assert.Zero(t, rem.creates, "local-first never touches the remote synchronously")
}

func TestRemoteDirectCreateSkipsQueueAndMarksSynced(t *testing.T) {
	db := setupWriterTestDB(t)
	rem := &scriptedRemote{}
	writer, sessions := newTestWriter(t, db, rem, enums.ModeRemoteDirect)
	ctx := context.Background()

	// Remote-direct requires an owner session.
	_, err := sessions.Save(ctx, uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)

	product := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Tea", UpdatedAt: time.Now().UTC()}
	require.NoError(t, Create(ctx, writer, product))

	assert.Equal(t, 1, rem.creates)
	assert.Zero(t, queuedCount(t, db))

	got, err := localstore.Get[models.Product](ctx, writer.Local(), product.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSynced)
}

func TestRemoteDirectDegradesToQueueOnTransientFailure(t *testing.T) {
	db := setupWriterTestDB(t)
	rem := &scriptedRemote{createErr: pkgerrors.New(pkgerrors.CodeTransientSync, "network down")}
	writer, sessions := newTestWriter(t, db, rem, enums.ModeRemoteDirect)
	ctx := context.Background()

	_, err := sessions.Save(ctx, uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)

	product := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Tea", UpdatedAt: time.Now().UTC()}
	require.NoError(t, Create(ctx, writer, product), "user action must not fail on a flaky network")

	assert.Equal(t, int64(1), queuedCount(t, db))
	got, err := localstore.Get[models.Product](ctx, writer.Local(), product.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSynced)
}

func TestRemoteDirectSurfacesPermanentFailure(t *testing.T) {
	db := setupWriterTestDB(t)
	rem := &scriptedRemote{createErr: pkgerrors.New(pkgerrors.CodePermanentSync, "rejected")}
	writer, sessions := newTestWriter(t, db, rem, enums.ModeRemoteDirect)
	ctx := context.Background()

	_, err := sessions.Save(ctx, uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)

	product := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Tea", UpdatedAt: time.Now().UTC()}
	err = Create(ctx, writer, product)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePermanentSync))
	assert.Zero(t, queuedCount(t, db))
}

func TestEmployeeSessionForcesLocalFirst(t *testing.T) {
	db := setupWriterTestDB(t)
	rem := &scriptedRemote{}
	writer, sessions := newTestWriter(t, db, rem, enums.ModeRemoteDirect)
	ctx := context.Background()

	_, err := sessions.Save(ctx, uuid.New(), "", enums.RoleEmployee, nil)
	require.NoError(t, err)

	assert.Equal(t, enums.ModeLocalFirst, writer.CurrentMode(ctx))

	product := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Tea", UpdatedAt: time.Now().UTC()}
	require.NoError(t, Create(ctx, writer, product))
	assert.Zero(t, rem.creates)
	assert.Equal(t, int64(1), queuedCount(t, db))
}

func TestExpiredSessionDetectedOnNextWrite(t *testing.T) {
	db := setupWriterTestDB(t)
	rem := &scriptedRemote{}
	writer, sessions := newTestWriter(t, db, rem, enums.ModeRemoteDirect)
	ctx := context.Background()

	_, err := sessions.Save(ctx, uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.ModeRemoteDirect, writer.CurrentMode(ctx))

	// Expire the session under the writer's feet; the very next mode check
	// must fall back to local-first rather than trust a stale decision.
	require.NoError(t, db.Model(&models.AuthSession{}).
		Where("id = ?", models.AuthSessionRowID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)

	assert.Equal(t, enums.ModeLocalFirst, writer.CurrentMode(ctx))
}

func TestRemoteDirectDeletePurgesImmediately(t *testing.T) {
	db := setupWriterTestDB(t)
	rem := &scriptedRemote{}
	writer, sessions := newTestWriter(t, db, rem, enums.ModeRemoteDirect)
	ctx := context.Background()

	_, err := sessions.Save(ctx, uuid.New(), "owner@example.com", enums.RoleOwner, nil)
	require.NoError(t, err)

	product := models.Product{ID: uuid.New(), UserID: uuid.New(), Name: "Tea", UpdatedAt: time.Now().UTC()}
	require.NoError(t, Create(ctx, writer, product))
	require.NoError(t, Delete[models.Product](ctx, writer, product.ID, time.Now().UTC()))

	assert.Equal(t, 1, rem.deletes)
	var count int64
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Count(&count).Error)
	assert.Zero(t, count)
}
