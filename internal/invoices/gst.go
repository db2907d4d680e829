package invoices

import (
	"github.com/shopspring/decimal"

	"github.com/harrypeter07/billsync/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// Totals carries the computed monetary aggregates of an invoice.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	CGST           decimal.Decimal
	SGST           decimal.Decimal
	IGST           decimal.Decimal
	Total          decimal.Decimal
}

// ComputeLine fills the computed fields of a line item: the discounted line
// total and the GST charged on it. Amounts round to 2 decimal places,
// half-up, per line so the printed lines always sum to the invoice totals.
func ComputeLine(item *models.InvoiceItem) {
	gross := item.Quantity.Mul(item.UnitPrice)
	discount := gross.Mul(item.DiscountPercent).Div(hundred)
	item.LineTotal = gross.Sub(discount).Round(2)
	item.GSTAmount = item.LineTotal.Mul(item.GSTRate).Div(hundred).Round(2)
}

// ComputeTotals aggregates computed lines into invoice totals. For GST
// invoices the tax splits evenly into CGST and SGST when buyer and seller
// share a state, and lands entirely in IGST across state lines. Non-GST
// invoices carry no tax at all.
func ComputeTotals(items []models.InvoiceItem, isGSTInvoice, interState bool) Totals {
	var t Totals
	t.Subtotal = decimal.Zero
	t.DiscountAmount = decimal.Zero
	t.CGST = decimal.Zero
	t.SGST = decimal.Zero
	t.IGST = decimal.Zero

	gst := decimal.Zero
	for _, item := range items {
		gross := item.Quantity.Mul(item.UnitPrice).Round(2)
		t.Subtotal = t.Subtotal.Add(gross)
		t.DiscountAmount = t.DiscountAmount.Add(gross.Sub(item.LineTotal))
		gst = gst.Add(item.GSTAmount)
	}

	taxable := t.Subtotal.Sub(t.DiscountAmount)
	if isGSTInvoice {
		if interState {
			t.IGST = gst
		} else {
			half := gst.Div(decimal.NewFromInt(2)).Round(2)
			t.CGST = half
			t.SGST = gst.Sub(half)
		}
	} else {
		gst = decimal.Zero
	}
	t.Total = taxable.Add(gst).Round(2)
	return t
}

// InterState reports whether a supply crosses state lines, judged by the
// GSTIN state prefixes of seller and buyer. A buyer without a GSTIN is
// treated as in-state.
func InterState(sellerStateCode, buyerGSTIN string) bool {
	if len(buyerGSTIN) < 2 || sellerStateCode == "" {
		return false
	}
	return buyerGSTIN[:2] != sellerStateCode
}
