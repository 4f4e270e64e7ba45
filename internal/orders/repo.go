package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
)

type repo struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) Repository {
	return &repo{db: tx}
}

func (r *repo) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND delivery_status = ?", id, enums.DeliveryStatusPending).
		Updates(map[string]any{
			"delivery_status": enums.DeliveryStatusDelivered,
			"released_at":     at,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) MarkReleased(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND escrow_status = ?", id, enums.EscrowStatusHeld).
		Update("escrow_status", enums.EscrowStatusReleased)
	return res.RowsAffected, res.Error
}

func (r *repo) FindStaleHeld(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Where("created_at < ? AND delivery_status = ? AND escrow_status = ?",
			cutoff, enums.DeliveryStatusPending, enums.EscrowStatusHeld).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error
}
