package transfers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/pkg/db"
	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
)

func setupTransfersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS transfer_records (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  idempotency_key TEXT NOT NULL,
  order_id TEXT NOT NULL,
  purpose TEXT NOT NULL,
  gateway_reference TEXT NOT NULL,
  transfer_code TEXT,
  recipient_code TEXT NOT NULL,
  amount_minor INTEGER NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME,
  CONSTRAINT uq_transfer_records_idempotency_key UNIQUE (idempotency_key)
);`
	require.NoError(t, gdb.Exec(schema).Error)
	return gdb
}

func newTestRecord(orderID uuid.UUID) *models.TransferRecord {
	key := SettlementKey(orderID)
	return &models.TransferRecord{
		IdempotencyKey:   key,
		OrderID:          orderID,
		Purpose:          enums.TransferPurposeSettlement,
		GatewayReference: key,
		RecipientCode:    "RCP_test",
		AmountMinor:      25000,
		Status:           enums.TransferStatusSuccess,
	}
}

func TestKeysAreStablePerOrder(t *testing.T) {
	orderID := uuid.New()

	assert.Equal(t, "settle:"+orderID.String(), SettlementKey(orderID))
	assert.Equal(t, "refund:"+orderID.String(), RefundKey(orderID))
	assert.NotEqual(t, SettlementKey(orderID), RefundKey(orderID))
	assert.Equal(t, SettlementKey(orderID), SettlementKey(orderID))
}

func TestRepoCreateAndFindByKey(t *testing.T) {
	repo := NewRepository(setupTransfersTestDB(t))
	ctx := context.Background()

	orderID := uuid.New()
	record := newTestRecord(orderID)
	require.NoError(t, repo.Create(ctx, record))

	found, err := repo.FindByKey(ctx, SettlementKey(orderID))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, orderID, found.OrderID)
	assert.Equal(t, enums.TransferPurposeSettlement, found.Purpose)
	assert.Equal(t, int64(25000), found.AmountMinor)

	missing, err := repo.FindByKey(ctx, RefundKey(orderID))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepoRejectsDuplicateKey(t *testing.T) {
	repo := NewRepository(setupTransfersTestDB(t))
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, repo.Create(ctx, newTestRecord(orderID)))

	err := repo.Create(ctx, newTestRecord(orderID))
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "idempotency_key"))
}

func TestRepoUpdateStatusRefreshesUnconfirmedRecords(t *testing.T) {
	repo := NewRepository(setupTransfersTestDB(t))
	ctx := context.Background()

	orderID := uuid.New()
	record := newTestRecord(orderID)
	record.Status = enums.TransferStatusPending
	require.NoError(t, repo.Create(ctx, record))

	code := "TRF_retry"
	require.NoError(t, repo.UpdateStatus(ctx, record.IdempotencyKey, enums.TransferStatusSuccess, &code))

	found, err := repo.FindByKey(ctx, record.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusSuccess, found.Status)
	require.NotNil(t, found.TransferCode)
	assert.Equal(t, code, *found.TransferCode)

	// A successful record is settled history; further updates are ignored.
	require.NoError(t, repo.UpdateStatus(ctx, record.IdempotencyKey, enums.TransferStatusFailed, nil))
	found, err = repo.FindByKey(ctx, record.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusSuccess, found.Status)
}

func TestRepoListByOrder(t *testing.T) {
	repo := NewRepository(setupTransfersTestDB(t))
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, repo.Create(ctx, newTestRecord(orderID)))

	refund := newTestRecord(orderID)
	refund.IdempotencyKey = RefundKey(orderID)
	refund.GatewayReference = refund.IdempotencyKey
	refund.Purpose = enums.TransferPurposeRefund
	require.NoError(t, repo.Create(ctx, refund))

	require.NoError(t, repo.Create(ctx, newTestRecord(uuid.New())))

	records, err := repo.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, orderID, rec.OrderID)
	}
}
