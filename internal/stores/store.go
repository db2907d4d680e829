package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/db/models"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

// Ensure loads the store row matching the configured code, creating it on
// first run. Each instance serves exactly one store.
func Ensure(ctx context.Context, db *gorm.DB, cfg config.StoreConfig) (*models.Store, error) {
	var store models.Store
	err := db.WithContext(ctx).Where("code = ?", cfg.Code).First(&store).Error
	switch {
	case err == nil:
		return &store, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "loading store")
	}

	ownerID := uuid.New()
	if cfg.OwnerID != "" {
		parsed, err := uuid.Parse(cfg.OwnerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store owner id")
		}
		ownerID = parsed
	}

	store = models.Store{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Code:      cfg.Code,
		Name:      cfg.Name,
		GSTIN:     cfg.GSTIN,
		StateCode: cfg.StateCode,
	}
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "creating store")
	}
	return &store, nil
}
