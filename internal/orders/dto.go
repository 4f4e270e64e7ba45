package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderInput carries the fields a checkout supplies when opening an
// escrow order. Amount is the purchase price in major currency units.
type CreateOrderInput struct {
	TransactionReference *string         `json:"transaction_reference" validate:"omitempty,max=128"`
	ProductID            string          `json:"product_id" validate:"required,max=128"`
	ProductName          *string         `json:"product_name" validate:"omitempty,max=256"`
	VendorName           *string         `json:"vendor_name" validate:"omitempty,max=256"`
	BuyerID              uuid.UUID       `json:"buyer_id" validate:"required"`
	VendorID             uuid.UUID       `json:"vendor_id" validate:"required"`
	BuyerEmail           string          `json:"buyer_email" validate:"required,email"`
	Amount               decimal.Decimal `json:"amount"`
}
