package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/pkg/db/models"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

const randomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// EmployeeCodeGenerator assigns 4-character employee codes unique within a
// store. Candidates come from three tiers: store-prefix plus a two-digit
// counter, then the employee's name plus a single digit, then a random
// alphanumeric code. The random tier is re-verified against the store before
// being handed out, and the database keeps a unique index on (store, code)
// as the final arbiter.
type EmployeeCodeGenerator struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewEmployeeCodeGenerator builds a generator bound to the local database.
func NewEmployeeCodeGenerator(db *gorm.DB) *EmployeeCodeGenerator {
	return &EmployeeCodeGenerator{
		db:    db,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Next picks an unused code for a new employee of the store. Generation for
// the same store is serialized so two concurrent hires cannot race to the
// same candidate.
func (g *EmployeeCodeGenerator) Next(ctx context.Context, storeID uuid.UUID, storeCode, employeeName string) (string, error) {
	lock := g.storeLock(storeID)
	lock.Lock()
	defer lock.Unlock()

	prefix := padCode(storeCode, 2)[:2]
	for i := 1; i <= 99; i++ {
		candidate := fmt.Sprintf("%s%02d", prefix, i)
		taken, err := g.codeTaken(ctx, storeID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	namePrefix := padCode(alphanumeric(employeeName), 3)[:3]
	for i := 0; i <= 9; i++ {
		candidate := fmt.Sprintf("%s%d", namePrefix, i)
		taken, err := g.codeTaken(ctx, storeID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	// Last resort. Random codes can still collide across concurrent
	// processes, so re-verify before handing one out and let the unique
	// index reject the write if the check raced.
	for attempt := 0; attempt < 10; attempt++ {
		candidate, err := randomCode(4)
		if err != nil {
			return "", err
		}
		taken, err := g.codeTaken(ctx, storeID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeSequenceExhausted, "no free employee code for store")
}

func (g *EmployeeCodeGenerator) codeTaken(ctx context.Context, storeID uuid.UUID, code string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.Employee{}).
		Where("store_id = ? AND code = ?", storeID, code).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "checking employee code")
	}
	return count > 0, nil
}

func (g *EmployeeCodeGenerator) storeLock(storeID uuid.UUID) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[storeID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[storeID] = lock
	}
	return lock
}

// alphanumeric strips everything but letters and digits, upper-cased.
func alphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func randomCode(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(randomCodeAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating random code")
		}
		b[i] = randomCodeAlphabet[idx.Int64()]
	}
	return string(b), nil
}
