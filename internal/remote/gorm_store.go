package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harrypeter07/billsync/pkg/config"
	dbpkg "github.com/harrypeter07/billsync/pkg/db"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

// GormStore implements Store against a relational backend through GORM.
// Production deployments point it at the hosted Postgres; tests hand it a
// sqlite connection.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormStore wraps an existing GORM connection.
func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GormStore{db: db, timeout: timeout}
}

// Dial opens the remote Postgres connection described by cfg.
func Dial(cfg config.RemoteConfig) (*GormStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("remote DSN is required")
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening remote connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewGormStore(conn, cfg.Timeout), nil
}

// Create inserts the row. An existing row with the same id maps to
// CodeConflict so the reconciler can treat replayed creates as applied.
func (s *GormStore) Create(ctx context.Context, collection string, row Row) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Table(collection).Create(map[string]any(row)).Error
	if err == nil {
		return nil
	}
	if dbpkg.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "row already exists")
	}
	return classify(err, "creating remote row")
}

// Update applies the patch to the identified row.
func (s *GormStore) Update(ctx context.Context, collection string, id uuid.UUID, patch Row) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	result := s.db.WithContext(ctx).Table(collection).
		Where("id = ?", id).
		Updates(map[string]any(patch))
	if result.Error != nil {
		return classify(result.Error, "updating remote row")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "remote row not found")
	}
	return nil
}

// Delete removes the identified row.
func (s *GormStore) Delete(ctx context.Context, collection string, id uuid.UUID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	result := s.db.WithContext(ctx).
		Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection), id)
	if result.Error != nil {
		return classify(result.Error, "deleting remote row")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "remote row not found")
	}
	return nil
}

// Query returns the rows matching every filter.
func (s *GormStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Row, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Table(collection)
	for _, f := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", f.Column), f.Value)
	}

	var rows []map[string]any
	if err := query.Find(&rows).Error; err != nil {
		return nil, classify(err, "querying remote rows")
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row(r))
	}
	return out, nil
}

// Exists reports whether a row with the id is present in the collection.
func (s *GormStore) Exists(ctx context.Context, collection string, id uuid.UUID) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Table(collection).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, classify(err, "checking remote row")
	}
	return count > 0, nil
}

func (s *GormStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// classify maps driver errors onto the sync error taxonomy. Timeouts and
// connectivity failures are transient; constraint rejections are permanent.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	if isTransient(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTransientSync, err, message)
	}
	if isConstraintViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodePermanentSync, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransientSync, err, message)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "database is locked")
}

func isConstraintViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "violates check constraint") ||
		strings.Contains(msg, "violates not-null constraint") ||
		strings.Contains(msg, "violates foreign key constraint") ||
		strings.Contains(msg, "CHECK constraint failed") ||
		strings.Contains(msg, "NOT NULL constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed")
}
