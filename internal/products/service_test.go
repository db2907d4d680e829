package products

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func setupProductTestDB(t *testing.T) *gorm.DB {
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

func TestCreateListAndDelete(t *testing.T) {
	db := setupProductTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	created, err := svc.Create(ctx, models.Product{
		UserID:  userID,
		Name:    "Basmati Rice 5kg",
		Price:   decimal.NewFromInt(450),
		GSTRate: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Basmati Rice 5kg", list[0].Name)

	require.NoError(t, svc.Delete(ctx, created.ID))
	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRequiresName(t *testing.T) {
	db := setupProductTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Create(context.Background(), models.Product{UserID: uuid.New()})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestUpdatePreservesOwner(t *testing.T) {
	db := setupProductTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	created, err := svc.Create(ctx, models.Product{UserID: owner, Name: "Tea", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	edited := *created
	edited.Name = "Green Tea"
	edited.UserID = uuid.New() // must be ignored

	updated, err := svc.Update(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, owner, updated.UserID)
	assert.Equal(t, "Green Tea", updated.Name)
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	db := setupProductTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, models.Product{
		UserID:        uuid.New(),
		Name:          "Tea",
		StockQuantity: 5,
	})
	require.NoError(t, err)

	updated, err := svc.AdjustStock(ctx, created.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.StockQuantity)

	updated, err = svc.AdjustStock(ctx, created.ID, -10)
	require.NoError(t, err)
	assert.Zero(t, updated.StockQuantity)
}
