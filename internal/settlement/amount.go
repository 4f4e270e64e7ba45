package settlement

import (
	"github.com/shopspring/decimal"

	apperrors "github.com/safelink-ng/safelink-backend/pkg/errors"
)

// toMinorUnits converts a major-unit naira amount to kobo for the gateway.
func toMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(2).Round(0)
	if !minor.IsPositive() {
		return 0, apperrors.New(apperrors.CodeValidation, "transfer amount must be greater than zero")
	}
	if !minor.BigInt().IsInt64() {
		return 0, apperrors.New(apperrors.CodeValidation, "transfer amount is out of range")
	}
	return minor.IntPart(), nil
}
