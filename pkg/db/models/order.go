package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safelink-ng/safelink-backend/pkg/enums"
)

// Order is an escrowed purchase. The buyer has already paid; the funds stay
// held until delivery is confirmed with the one-time code whose hash lives on
// this row, and at most one release to the vendor can ever happen.
type Order struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionReference *string              `gorm:"column:transaction_reference" json:"transaction_reference,omitempty"`
	ProductName          *string              `gorm:"column:product_name" json:"product_name,omitempty"`
	VendorName           *string              `gorm:"column:vendor_name" json:"vendor_name,omitempty"`
	BuyerID              uuid.UUID            `gorm:"column:buyer_id;type:uuid;index" json:"buyer_id"`
	VendorID             uuid.UUID            `gorm:"column:vendor_id;type:uuid;index" json:"vendor_id"`
	BuyerEmail           string               `gorm:"column:buyer_email;not null" json:"buyer_email"`
	ProductID            string               `gorm:"column:product_id;not null" json:"product_id"`
	AmountPaid           decimal.Decimal      `gorm:"column:amount_paid;type:numeric;not null" json:"amount_paid"`
	DeliveryStatus       enums.DeliveryStatus `gorm:"column:delivery_status;not null;default:'pending'" json:"delivery_status"`
	EscrowStatus         enums.EscrowStatus   `gorm:"column:escrow_status;not null;default:'held'" json:"escrow_status"`
	DeliveryCodeHash     string               `gorm:"column:delivery_code_hash;not null" json:"-"`
	Disputed             bool                 `gorm:"column:disputed;not null;default:false" json:"disputed"`
	ReleasedAt           *time.Time           `gorm:"column:released_at" json:"released_at,omitempty"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
