package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safelink-ng/safelink-backend/pkg/enums"
)

// TransferRecord is the durable ledger of every gateway transfer we
// initiated. The unique idempotency key is what makes settlements and refunds
// at-most-once: it is written before (or atomically with) the state change it
// justifies, and checked before any re-submission.
type TransferRecord struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IdempotencyKey   string                `gorm:"column:idempotency_key;not null;uniqueIndex"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Purpose          enums.TransferPurpose `gorm:"column:purpose;not null"`
	GatewayReference string                `gorm:"column:gateway_reference;not null"`
	TransferCode     *string               `gorm:"column:transfer_code"`
	RecipientCode    string                `gorm:"column:recipient_code;not null"`
	AmountMinor      int64                 `gorm:"column:amount_minor;not null"`
	Status           enums.TransferStatus  `gorm:"column:status;not null"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}
