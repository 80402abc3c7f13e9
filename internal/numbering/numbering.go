// Package numbering allocates human-readable document numbers for
// invoices and orders.
package numbering

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
)

// invoiceSeqStart is the suffix assigned to a tenant's first invoice.
const invoiceSeqStart = 1000

// NextInvoiceNumber reads the tenant's most recent invoice inside the
// caller's transaction and returns the next number in the sequence,
// INV-{tenant code:03d}-{n}. A tenant with no invoices, or whose last
// number has an unparseable suffix, starts at 1000. The unique index on
// (tenant_id, invoice_number) is the backstop for concurrent allocations;
// callers retry the whole transaction on a unique violation.
func NextInvoiceNumber(ctx context.Context, tx *gorm.DB, tenant *models.Tenant) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "numbering requires a transaction")
	}
	if tenant == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "numbering requires a tenant")
	}

	var last models.Invoice
	err := tx.WithContext(ctx).
		Where("tenant_id = ?", tenant.ID).
		Order("created_at DESC").
		First(&last).Error

	next := invoiceSeqStart
	switch {
	case err == nil:
		next = nextFromLast(last.InvoiceNumber)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first invoice for this tenant
	default:
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading last invoice number")
	}

	return FormatInvoiceNumber(tenant.Code, next), nil
}

// FormatInvoiceNumber renders a number in the canonical wire format.
func FormatInvoiceNumber(tenantCode, seq int) string {
	return fmt.Sprintf("INV-%03d-%04d", tenantCode, seq)
}

// nextFromLast parses the trailing numeric suffix of the previous
// invoice number. Unparseable history restarts the sequence rather than
// blocking invoicing.
func nextFromLast(invoiceNumber string) int {
	idx := strings.LastIndex(invoiceNumber, "-")
	if idx < 0 || idx == len(invoiceNumber)-1 {
		return invoiceSeqStart
	}
	seq, err := strconv.Atoi(invoiceNumber[idx+1:])
	if err != nil {
		return invoiceSeqStart
	}
	return seq + 1
}

// NextOrderNumber returns a day-stamped order number with a random
// suffix, ORD-{yyyymmdd}-{8 uppercase hex}. No read-before-write; the
// unique index on (tenant_id, order_number) guards collisions.
func NextOrderNumber(now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived suffix rather than panic.
		return fmt.Sprintf("ORD-%s-%08X", now.Format("20060102"), now.UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(buf)))
}
