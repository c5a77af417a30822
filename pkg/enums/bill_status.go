package enums

import "fmt"

// BillStatus maps to the bill_status_enum enum in Postgres.
type BillStatus string

const (
	BillStatusUnpaid    BillStatus = "unpaid"
	BillStatusScheduled BillStatus = "scheduled"
	BillStatusPaid      BillStatus = "paid"
)

var validBillStatuses = []BillStatus{
	BillStatusUnpaid,
	BillStatusScheduled,
	BillStatusPaid,
}

// BillStatuses returns the canonical status order used by rollups.
func BillStatuses() []BillStatus {
	out := make([]BillStatus, len(validBillStatuses))
	copy(out, validBillStatuses)
	return out
}

// String implements fmt.Stringer.
func (s BillStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical bill status enum.
func (s BillStatus) IsValid() bool {
	for _, candidate := range validBillStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBillStatus converts raw input into BillStatus.
func ParseBillStatus(value string) (BillStatus, error) {
	for _, candidate := range validBillStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bill status %q", value)
}
