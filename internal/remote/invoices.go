package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
)

const (
	CollectionInvoices     = "invoices"
	CollectionInvoiceItems = "invoice_items"
)

// SplitInvoiceRow separates the line items from an invoice header row. The
// invoices table has no items column; lines travel inside the payload and
// land in their own collection. items is nil when the row carried no items
// key, so callers can tell "no lines in the payload" from "empty set".
func SplitInvoiceRow(row Row) (Row, []Row) {
	raw, ok := row["items"]
	if !ok {
		return row, nil
	}

	header := make(Row, len(row))
	for key, value := range row {
		if key == "items" {
			continue
		}
		header[key] = value
	}

	list, _ := raw.([]any)
	items := make([]Row, 0, len(list))
	for _, element := range list {
		if m, ok := element.(map[string]any); ok {
			items = append(items, Row(m))
		}
	}
	return header, items
}

// CreateInvoice writes the invoice header and its line items. A header that
// already exists counts as a replay: the lines are still reconciled so a
// partially applied create converges.
func CreateInvoice(ctx context.Context, store Store, row Row) error {
	header, items := SplitInvoiceRow(row)

	invoiceID, err := rowID(header)
	if err != nil {
		return err
	}

	err = store.Create(ctx, CollectionInvoices, header)
	if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		return err
	}
	if items == nil {
		return nil
	}
	return ReplaceInvoiceItems(ctx, store, invoiceID, items)
}

// UpdateInvoice patches the header and swaps the line items when the payload
// carries them.
func UpdateInvoice(ctx context.Context, store Store, id uuid.UUID, row Row) error {
	header, items := SplitInvoiceRow(row)

	if err := store.Update(ctx, CollectionInvoices, id, header); err != nil {
		return err
	}
	if items == nil {
		return nil
	}
	return ReplaceInvoiceItems(ctx, store, id, items)
}

// DeleteInvoice removes the line items, then the header. Item lifetime is
// bound to the invoice.
func DeleteInvoice(ctx context.Context, store Store, id uuid.UUID) error {
	if err := deleteInvoiceItems(ctx, store, id); err != nil {
		return err
	}
	return store.Delete(ctx, CollectionInvoices, id)
}

// ReplaceInvoiceItems makes the remote line set match rows exactly.
func ReplaceInvoiceItems(ctx context.Context, store Store, invoiceID uuid.UUID, rows []Row) error {
	if err := deleteInvoiceItems(ctx, store, invoiceID); err != nil {
		return err
	}
	for _, row := range rows {
		err := store.Create(ctx, CollectionInvoiceItems, row)
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return err
		}
	}
	return nil
}

func deleteInvoiceItems(ctx context.Context, store Store, invoiceID uuid.UUID) error {
	existing, err := store.Query(ctx, CollectionInvoiceItems, Filter{Column: "invoice_id", Value: invoiceID.String()})
	if err != nil {
		return err
	}
	for _, row := range existing {
		itemID, err := rowID(row)
		if err != nil {
			return err
		}
		err = store.Delete(ctx, CollectionInvoiceItems, itemID)
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return err
		}
	}
	return nil
}

func rowID(row Row) (uuid.UUID, error) {
	id, err := uuid.Parse(fmt.Sprint(row["id"]))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodePermanentSync, err, "row has no usable id")
	}
	return id, nil
}
