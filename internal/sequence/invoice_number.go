package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/pkg/db/models"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

const (
	// MaxDailySequence is the hard cap on invoices per store per calendar
	// day. The counter is never recycled within a day.
	MaxDailySequence = 999

	// DefaultEmployeeCode stamps invoices raised outside an employee
	// session, e.g. by the owner account.
	DefaultEmployeeCode = "ADMN"

	dateLayout      = "20060102"
	timestampLayout = "20060102150405"
)

// InvoiceNumberGenerator issues invoice numbers of the form
// STORECODE-EMPCODE-YYYYMMDDHHMMSS-SEQ, where SEQ is a zero-padded
// per-(store, day) counter. Counters persist across restarts; increments on
// the same key are serialized through a per-key mutex so concurrent invoice
// creation never hands out the same sequence twice.
type InvoiceNumberGenerator struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewInvoiceNumberGenerator builds a generator bound to the local database.
func NewInvoiceNumberGenerator(db *gorm.DB) *InvoiceNumberGenerator {
	return &InvoiceNumberGenerator{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// Next allocates the next invoice number for the store at the given instant.
// employeeCode may be empty, in which case the default code is used. Returns
// a sequence-exhausted error once the store has issued its 999th invoice of
// the day; the cap is hard and not retried.
func (g *InvoiceNumberGenerator) Next(ctx context.Context, storeID uuid.UUID, storeCode, employeeCode string, now time.Time) (string, error) {
	if employeeCode == "" {
		employeeCode = DefaultEmployeeCode
	}
	storeCode = padCode(storeCode, 4)
	employeeCode = padCode(employeeCode, 4)

	date := now.Format(dateLayout)
	lock := g.keyLock(storeID.String() + ":" + date)
	lock.Lock()
	defer lock.Unlock()

	var seq int
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.InvoiceSequence
		err := tx.Where("store_id = ? AND date = ?", storeID, date).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.InvoiceSequence{StoreID: storeID, Date: date, Sequence: 0}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}
		if row.Sequence >= MaxDailySequence {
			return pkgerrors.New(pkgerrors.CodeSequenceExhausted, "daily invoice limit reached").
				WithDetails(map[string]string{"store_id": storeID.String(), "date": date})
		}
		row.Sequence++
		seq = row.Sequence
		return tx.Model(&models.InvoiceSequence{}).
			Where("store_id = ? AND date = ?", storeID, date).
			Update("sequence", row.Sequence).Error
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeSequenceExhausted) {
			return "", err
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "advancing invoice sequence")
	}

	return fmt.Sprintf("%s-%s-%s-%03d", storeCode, employeeCode, now.Format(timestampLayout), seq), nil
}

func (g *InvoiceNumberGenerator) keyLock(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[key] = lock
	}
	return lock
}

func padCode(code string, width int) string {
	code = strings.ToUpper(code)
	if len(code) >= width {
		return code[:width]
	}
	return code + strings.Repeat("X", width-len(code))
}
