package enums

import "fmt"

// TransferPurpose distinguishes vendor settlements from buyer refunds.
type TransferPurpose string

const (
	TransferPurposeSettlement TransferPurpose = "settlement"
	TransferPurposeRefund     TransferPurpose = "refund"
)

var validTransferPurposes = []TransferPurpose{
	TransferPurposeSettlement,
	TransferPurposeRefund,
}

// String implements fmt.Stringer.
func (t TransferPurpose) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransferPurpose.
func (t TransferPurpose) IsValid() bool {
	for _, candidate := range validTransferPurposes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransferPurpose converts raw input into a TransferPurpose.
func ParseTransferPurpose(value string) (TransferPurpose, error) {
	for _, candidate := range validTransferPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer purpose %q", value)
}
