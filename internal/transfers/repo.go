package transfers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
)

// SettlementKey derives the idempotency key for releasing an order's escrow.
// One order can only ever settle once, so the key is a pure function of the
// order id.
func SettlementKey(orderID uuid.UUID) string {
	return fmt.Sprintf("settle:%s", orderID)
}

// RefundKey derives the idempotency key for refunding a stale order.
func RefundKey(orderID uuid.UUID) string {
	return fmt.Sprintf("refund:%s", orderID)
}

// Repository is the transfer ledger. Rows are only ever inserted once per
// key; an unconfirmed row may have its status refreshed after a
// re-submission, but a successful row never changes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.TransferRecord) error
	// FindByKey returns the record carrying the idempotency key, or nil when
	// no transfer was recorded under it yet.
	FindByKey(ctx context.Context, key string) (*models.TransferRecord, error)
	// UpdateStatus refreshes the gateway outcome of an unconfirmed record.
	// Successful records are left untouched.
	UpdateStatus(ctx context.Context, key string, status enums.TransferStatus, transferCode *string) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TransferRecord, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) Repository {
	return &repo{db: tx}
}

func (r *repo) Create(ctx context.Context, record *models.TransferRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByKey(ctx context.Context, key string) (*models.TransferRecord, error) {
	var record models.TransferRecord
	err := r.db.WithContext(ctx).First(&record, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) UpdateStatus(ctx context.Context, key string, status enums.TransferStatus, transferCode *string) error {
	updates := map[string]any{"status": status}
	if transferCode != nil {
		updates["transfer_code"] = transferCode
	}
	return r.db.WithContext(ctx).
		Model(&models.TransferRecord{}).
		Where("idempotency_key = ? AND status <> ?", key, enums.TransferStatusSuccess).
		Updates(updates).Error
}

func (r *repo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TransferRecord, error) {
	var out []models.TransferRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
