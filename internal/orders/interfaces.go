package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/pkg/db/models"
)

// Repository manages persistence for escrow orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// MarkDelivered flips delivery_status pending->delivered and stamps
	// released_at. The update is conditional on the current status; the
	// returned count is zero when another caller already confirmed.
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	// MarkReleased flips escrow_status held->released. Conditional in the
	// same way; zero rows means the escrow was already released.
	MarkReleased(ctx context.Context, id uuid.UUID) (int64, error)
	// FindStaleHeld returns orders created before the cutoff that were never
	// confirmed delivered and never settled.
	FindStaleHeld(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
