package customers

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

	"github.com/harrypeter07/billsync/internal/datapath"
	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/internal/remote"
	"github.com/harrypeter07/billsync/internal/session"
	"github.com/harrypeter07/billsync/internal/syncqueue"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
)

type noopRemote struct{}

func (noopRemote) Create(context.Context, string, remote.Row) error            { return nil }
func (noopRemote) Update(context.Context, string, uuid.UUID, remote.Row) error { return nil }
func (noopRemote) Delete(context.Context, string, uuid.UUID) error             { return nil }
func (noopRemote) Query(context.Context, string, ...remote.Filter) ([]remote.Row, error) {
	return nil, nil
}
func (noopRemote) Exists(context.Context, string, uuid.UUID) (bool, error) { return false, nil }

func setupCustomerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  gstin TEXT,
  billing_address TEXT,
  shipping_address TEXT,
  notes TEXT,
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

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	writer, err := datapath.NewWriter(datapath.WriterParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:       db,
		Local:    localstore.New(db),
		Queue:    syncqueue.NewRepository(db),
		Remote:   noopRemote{},
		Sessions: session.NewManager(db, time.Hour),
		Mode:     enums.ModeLocalFirst,
	})
	require.NoError(t, err)
	svc, err := NewService(writer)
	require.NoError(t, err)
	return svc
}

func TestCreateGetAndDelete(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	created, err := svc.Create(ctx, models.Customer{
		UserID: userID,
		Name:   "Sharma Traders",
		GSTIN:  "27AABCS1234A1Z5",
		Phone:  "9822012345",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sharma Traders", got.Name)
	assert.Equal(t, "27AABCS1234A1Z5", got.GSTIN)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestCreateRequiresName(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Create(context.Background(), models.Customer{UserID: uuid.New()})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestUpdatePreservesOwner(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	created, err := svc.Create(ctx, models.Customer{UserID: owner, Name: "Gupta Stores"})
	require.NoError(t, err)

	edited := *created
	edited.Name = "Gupta General Stores"
	edited.UserID = uuid.New() // must be ignored

	updated, err := svc.Update(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, owner, updated.UserID)
	assert.Equal(t, "Gupta General Stores", updated.Name)
}

func TestListScopedToUser(t *testing.T) {
	db := setupCustomerTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	_, err := svc.Create(ctx, models.Customer{UserID: userA, Name: "A One Traders"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.Customer{UserID: userB, Name: "B Mart"})
	require.NoError(t, err)

	list, err := svc.List(ctx, userA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A One Traders", list[0].Name)
}
