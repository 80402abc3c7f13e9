package enums

import "fmt"

// InvoiceStatus tracks the billing lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"

	// Extended statuses, accepted only for tenants that opt in.
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusDone  InvoiceStatus = "done"
)

var coreInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusPaid,
	InvoiceStatusCancelled,
}

var extendedInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusDone,
}

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsCore reports whether the value belongs to the canonical status set.
func (s InvoiceStatus) IsCore() bool {
	for _, candidate := range coreInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsValid reports whether the value is a known InvoiceStatus, including
// the tenant-level extensions.
func (s InvoiceStatus) IsValid() bool {
	if s.IsCore() {
		return true
	}
	for _, candidate := range extendedInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus. When
// allowExtended is false only the canonical set is accepted.
func ParseInvoiceStatus(value string, allowExtended bool) (InvoiceStatus, error) {
	status := InvoiceStatus(value)
	if status.IsCore() {
		return status, nil
	}
	if allowExtended && status.IsValid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
