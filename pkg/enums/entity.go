package enums

import "fmt"

// EntityType identifies which mirrored collection a sync queue entry targets.
type EntityType string

const (
	EntityProduct  EntityType = "product"
	EntityCustomer EntityType = "customer"
	EntityInvoice  EntityType = "invoice"
)

var validEntityTypes = []EntityType{
	EntityProduct,
	EntityCustomer,
	EntityInvoice,
}

// String implements fmt.Stringer.
func (e EntityType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EntityType.
func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEntityType converts raw input into an EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}

// Collection returns the remote collection name for the entity type.
func (e EntityType) Collection() string {
	switch e {
	case EntityProduct:
		return "products"
	case EntityCustomer:
		return "customers"
	case EntityInvoice:
		return "invoices"
	}
	return ""
}

// SyncAction describes the mutation recorded in a sync queue entry.
type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
	SyncActionDelete SyncAction = "delete"
)

var validSyncActions = []SyncAction{
	SyncActionCreate,
	SyncActionUpdate,
	SyncActionDelete,
}

// String implements fmt.Stringer.
func (a SyncAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known SyncAction.
func (a SyncAction) IsValid() bool {
	for _, candidate := range validSyncActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseSyncAction converts raw input into a SyncAction.
func ParseSyncAction(value string) (SyncAction, error) {
	for _, candidate := range validSyncActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync action %q", value)
}
