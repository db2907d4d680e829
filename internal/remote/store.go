package remote

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Row is a generic remote row keyed by column name.
type Row map[string]any

// RowFrom flattens an entity into a Row via its JSON form, so local models
// and remote columns share one field mapping.
func RowFrom(entity any) (Row, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// Filter restricts a Query to rows whose column equals the value.
type Filter struct {
	Column string
	Value  any
}

// Store is the narrow contract the core holds against the hosted row store.
// Implementations map their failure modes onto the pkg/errors codes:
// CodeConflict (create hit an existing id), CodeNotFound (update/delete
// target absent), CodeTransientSync (network, rate limit, timeout) and
// CodePermanentSync (validation/policy rejection).
type Store interface {
	Create(ctx context.Context, collection string, row Row) error
	Update(ctx context.Context, collection string, id uuid.UUID, patch Row) error
	Delete(ctx context.Context, collection string, id uuid.UUID) error
	Query(ctx context.Context, collection string, filters ...Filter) ([]Row, error)
	Exists(ctx context.Context, collection string, id uuid.UUID) (bool, error)
}
