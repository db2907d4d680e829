package sequence

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/pkg/db/models"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sequences := `
CREATE TABLE IF NOT EXISTS invoice_sequences (
  store_id TEXT NOT NULL,
  date TEXT NOT NULL,
  sequence INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  PRIMARY KEY (store_id, date)
);`
	employees := `
CREATE TABLE IF NOT EXISTS employees (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  code TEXT NOT NULL,
  pin_hash TEXT,
  role TEXT NOT NULL DEFAULT 'employee',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (store_id, code)
);`
	require.NoError(t, db.Exec(sequences).Error)
	require.NoError(t, db.Exec(employees).Error)
	return db
}

func TestInvoiceNumberFormatAndSequencing(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewInvoiceNumberGenerator(db)
	ctx := context.Background()

	storeID := uuid.New()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	for i, want := range []string{"001", "002", "003"} {
		number, err := gen.Next(ctx, storeID, "MBL1", "RAJ1", at)
		require.NoError(t, err, "invoice %d", i+1)
		assert.Equal(t, "MBL1-RAJ1-20260314092653-"+want, number)
	}
}

func TestInvoiceNumberDefaultsEmployeeCode(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewInvoiceNumberGenerator(db)

	number, err := gen.Next(context.Background(), uuid.New(), "MBL1", "", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "MBL1-ADMN-20260102030405-001", number)
}

func TestInvoiceNumberPadsShortStoreCode(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewInvoiceNumberGenerator(db)

	number, err := gen.Next(context.Background(), uuid.New(), "ab", "", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, regexp.MustCompile(`^ABXX-ADMN-\d{14}-001$`).MatchString(number), number)
}

func TestInvoiceSequenceHardCap(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewInvoiceNumberGenerator(db)
	ctx := context.Background()

	storeID := uuid.New()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Pre-position the persisted counter just below the cap.
	require.NoError(t, db.Create(&models.InvoiceSequence{
		StoreID:  storeID,
		Date:     "20260501",
		Sequence: MaxDailySequence - 1,
	}).Error)

	number, err := gen.Next(ctx, storeID, "MBL1", "RAJ1", at)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("MBL1-RAJ1-20260501120000-%03d", MaxDailySequence), number)

	_, err = gen.Next(ctx, storeID, "MBL1", "RAJ1", at)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSequenceExhausted))

	// Exhaustion is per (store, day): the next day starts fresh.
	nextDay, err := gen.Next(ctx, storeID, "MBL1", "RAJ1", at.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "MBL1-RAJ1-20260502120000-001", nextDay)
}

func TestInvoiceNumberConcurrentCreationHasNoDuplicates(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewInvoiceNumberGenerator(db)
	ctx := context.Background()

	storeID := uuid.New()
	at := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	const workers = 20
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := gen.Next(ctx, storeID, "MBL1", "RAJ1", at)
			if err == nil {
				results <- number
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for number := range results {
		require.False(t, seen[number], "duplicate invoice number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, workers)
}

func TestEmployeeCodeUsesStorePrefixTier(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewEmployeeCodeGenerator(db)
	ctx := context.Background()

	storeID := uuid.New()
	code, err := gen.Next(ctx, storeID, "MBL1", "Rajesh Kumar")
	require.NoError(t, err)
	assert.Equal(t, "MB01", code)

	require.NoError(t, db.Create(&models.Employee{ID: uuid.New(), StoreID: storeID, Name: "Rajesh Kumar", Code: code}).Error)

	next, err := gen.Next(ctx, storeID, "MBL1", "Priya Singh")
	require.NoError(t, err)
	assert.Equal(t, "MB02", next)
}

func TestEmployeeCodeFallsBackToNameTier(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewEmployeeCodeGenerator(db)
	ctx := context.Background()

	storeID := uuid.New()
	for i := 1; i <= 99; i++ {
		require.NoError(t, db.Create(&models.Employee{
			ID:      uuid.New(),
			StoreID: storeID,
			Name:    fmt.Sprintf("Employee %d", i),
			Code:    fmt.Sprintf("MB%02d", i),
		}).Error)
	}

	code, err := gen.Next(ctx, storeID, "MBL1", "Rajesh Kumar")
	require.NoError(t, err)
	assert.Equal(t, "RAJ0", code)
}

func TestEmployeeCodeFallsBackToRandomTier(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewEmployeeCodeGenerator(db)
	ctx := context.Background()

	storeID := uuid.New()
	for i := 1; i <= 99; i++ {
		require.NoError(t, db.Create(&models.Employee{
			ID:      uuid.New(),
			StoreID: storeID,
			Name:    fmt.Sprintf("Employee %d", i),
			Code:    fmt.Sprintf("MB%02d", i),
		}).Error)
	}
	for i := 0; i <= 9; i++ {
		require.NoError(t, db.Create(&models.Employee{
			ID:      uuid.New(),
			StoreID: storeID,
			Name:    fmt.Sprintf("Rajesh %d", i),
			Code:    fmt.Sprintf("RAJ%d", i),
		}).Error)
	}

	code, err := gen.Next(ctx, storeID, "MBL1", "Rajesh Kumar")
	require.NoError(t, err)
	assert.True(t, regexp.MustCompile(`^[A-Z0-9]{4}$`).MatchString(code), code)
	assert.NotRegexp(t, `^MB\d{2}$`, code)
}

func TestEmployeeCodePadsShortNames(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewEmployeeCodeGenerator(db)
	ctx := context.Background()

	storeID := uuid.New()
	for i := 1; i <= 99; i++ {
		require.NoError(t, db.Create(&models.Employee{
			ID:      uuid.New(),
			StoreID: storeID,
			Name:    fmt.Sprintf("Employee %d", i),
			Code:    fmt.Sprintf("MB%02d", i),
		}).Error)
	}

	code, err := gen.Next(ctx, storeID, "MBL1", "Jo")
	require.NoError(t, err)
	assert.Equal(t, "JOX0", code)
}

func TestEmployeeCodesIndependentAcrossStores(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewEmployeeCodeGenerator(db)
	ctx := context.Background()

	storeA := uuid.New()
	storeB := uuid.New()
	require.NoError(t, db.Create(&models.Employee{ID: uuid.New(), StoreID: storeA, Name: "A", Code: "MB01"}).Error)

	code, err := gen.Next(ctx, storeB, "MBL1", "Someone")
	require.NoError(t, err)
	assert.Equal(t, "MB01", code, "codes are scoped per store")
}
