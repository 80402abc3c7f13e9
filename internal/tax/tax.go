// Package tax implements GST line and invoice-level computations.
package tax

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineAmounts carries the taxable total and GST for one invoice line.
type LineAmounts struct {
	Total     decimal.Decimal
	GSTAmount decimal.Decimal
}

// Split is the invoice-level division of GST between intra-state
// (CGST+SGST) and inter-state (IGST) components.
type Split struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

// ComputeLine returns qty*unitPrice and the GST on that amount at the
// given percent rate. Values stay unrounded; rounding to 2 decimals
// happens only when rendering.
func ComputeLine(qty int, unitPrice, gstRate decimal.Decimal) LineAmounts {
	total := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
	return LineAmounts{
		Total:     total,
		GSTAmount: total.Mul(gstRate).Div(hundred),
	}
}

// ComputeSplit divides the invoice's total GST. An exact, case-sensitive
// match between the customer's state and the business's state means an
// intra-state supply: CGST and SGST each take half. Any mismatch,
// including a missing customer state, is inter-state: IGST takes all.
func ComputeSplit(customerState, businessState string, totalGST decimal.Decimal) Split {
	if customerState == businessState {
		half := totalGST.Div(decimal.NewFromInt(2))
		return Split{CGST: half, SGST: half, IGST: decimal.Zero}
	}
	return Split{CGST: decimal.Zero, SGST: decimal.Zero, IGST: totalGST}
}

// InvoiceTotal sums the subtotal with all GST components.
func InvoiceTotal(subtotal decimal.Decimal, split Split) decimal.Decimal {
	return subtotal.Add(split.CGST).Add(split.SGST).Add(split.IGST)
}
