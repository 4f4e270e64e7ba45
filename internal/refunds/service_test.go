package refunds

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/internal/orders"
	"github.com/safelink-ng/safelink-backend/internal/profiles"
	"github.com/safelink-ng/safelink-backend/internal/transfers"
	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
	pkgerrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/paystack"
)

func setupRefundsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  transaction_reference TEXT,
  product_name TEXT,
  vendor_name TEXT,
  buyer_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  buyer_email TEXT NOT NULL,
  product_id TEXT NOT NULL,
  amount_paid TEXT NOT NULL,
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  escrow_status TEXT NOT NULL DEFAULT 'held',
  delivery_code_hash TEXT NOT NULL,
  disputed INTEGER NOT NULL DEFAULT 0,
  released_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
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
);
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  email TEXT NOT NULL,
  account_name TEXT,
  account_number TEXT,
  bank_name TEXT,
  bank_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

// failingGateway rejects transfers for one specific reference and delegates
// the rest to the sandbox.
type failingGateway struct {
	inner    paystack.TransferGateway
	failRef  string
	attempts int
}

func (g *failingGateway) CreateRecipient(ctx context.Context, details paystack.BankDetails) (string, error) {
	return g.inner.CreateRecipient(ctx, details)
}

func (g *failingGateway) InitiateTransfer(ctx context.Context, req paystack.TransferRequest) (*paystack.TransferResult, error) {
	g.attempts++
	if req.Reference == g.failRef {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")
	}
	return g.inner.InitiateTransfer(ctx, req)
}

func (g *failingGateway) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.AccountResolution, error) {
	return g.inner.ResolveAccount(ctx, accountNumber, bankCode)
}

type refundsFixture struct {
	svc       Service
	orders    orders.Repository
	transfers transfers.Repository
	profiles  profiles.Repository
	sandbox   *paystack.Sandbox
	db        *gorm.DB
}

func newRefundsFixture(t *testing.T, gateway paystack.TransferGateway) *refundsFixture {
	t.Helper()
	db := setupRefundsTestDB(t)
	sandbox, _ := gateway.(*paystack.Sandbox)
	orderRepo := orders.NewRepository(db)
	transferRepo := transfers.NewRepository(db)
	profileRepo := profiles.NewRepository(db)

	svc, err := NewService(ServiceParams{
		Orders:      orderRepo,
		Transfers:   transferRepo,
		Profiles:    profileRepo,
		Gateway:     gateway,
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		GracePeriod: 14 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &refundsFixture{
		svc:       svc,
		orders:    orderRepo,
		transfers: transferRepo,
		profiles:  profileRepo,
		sandbox:   sandbox,
		db:        db,
	}
}

func (f *refundsFixture) seedBuyer(t *testing.T, withBank bool) uuid.UUID {
	t.Helper()
	buyerID := uuid.New()
	profile := &models.Profile{
		ID:    buyerID,
		Role:  enums.ProfileRoleBuyer,
		Email: "buyer@example.com",
	}
	if withBank {
		name := "CHIBUZO EZE"
		number := "0011223344"
		code := "044"
		profile.AccountName = &name
		profile.AccountNumber = &number
		profile.BankCode = &code
	}
	if err := f.profiles.Upsert(context.Background(), profile); err != nil {
		t.Fatalf("Upsert buyer: %v", err)
	}
	return buyerID
}

func (f *refundsFixture) seedStaleOrder(t *testing.T, buyerID uuid.UUID) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		VendorID:         uuid.New(),
		BuyerEmail:       "buyer@example.com",
		ProductID:        "prod-1",
		AmountPaid:       decimal.NewFromInt(100),
		DeliveryStatus:   enums.DeliveryStatusPending,
		EscrowStatus:     enums.EscrowStatusHeld,
		DeliveryCodeHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
	if err := f.orders.Create(context.Background(), order); err != nil {
		t.Fatalf("Create order: %v", err)
	}
	aged := time.Now().UTC().Add(-20 * 24 * time.Hour)
	if err := f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("created_at", aged).Error; err != nil {
		t.Fatalf("age order: %v", err)
	}
	return order
}

func TestSweepRefundsStaleOrder(t *testing.T) {
	f := newRefundsFixture(t, paystack.NewSandbox())
	buyerID := f.seedBuyer(t, true)
	order := f.seedStaleOrder(t, buyerID)

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 1 || report.Refunded != 1 {
		t.Fatalf("expected 1 refunded, got %+v", report)
	}

	// Order row is gone; the ledger record remains as proof of payment.
	if _, err := f.orders.FindByID(context.Background(), order.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected order removed, got %v", err)
	}
	record, err := f.transfers.FindByKey(context.Background(), transfers.RefundKey(order.ID))
	if err != nil || record == nil {
		t.Fatalf("expected refund ledger record, got %v %v", record, err)
	}
	if record.Purpose != enums.TransferPurposeRefund {
		t.Fatalf("expected refund purpose, got %s", record.Purpose)
	}
	if record.AmountMinor != 10000 {
		t.Fatalf("expected 10000 kobo for 100 naira, got %d", record.AmountMinor)
	}
}

func TestSweepIgnoresFreshAndResolvedOrders(t *testing.T) {
	f := newRefundsFixture(t, paystack.NewSandbox())
	buyerID := f.seedBuyer(t, true)

	// Fresh order inside the grace period.
	fresh := &models.Order{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		VendorID:         uuid.New(),
		BuyerEmail:       "buyer@example.com",
		ProductID:        "prod-2",
		AmountPaid:       decimal.NewFromInt(50),
		DeliveryStatus:   enums.DeliveryStatusPending,
		EscrowStatus:     enums.EscrowStatusHeld,
		DeliveryCodeHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
	if err := f.orders.Create(context.Background(), fresh); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Stale but already settled.
	settled := f.seedStaleOrder(t, buyerID)
	if err := f.db.Model(&models.Order{}).Where("id = ?", settled.ID).
		Updates(map[string]any{
			"delivery_status": enums.DeliveryStatusDelivered,
			"escrow_status":   enums.EscrowStatusReleased,
		}).Error; err != nil {
		t.Fatalf("settle order: %v", err)
	}

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 0 {
		t.Fatalf("expected no candidates, got %+v", report)
	}
	if f.sandbox.TransferCount() != 0 {
		t.Fatal("no transfers expected")
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	sandbox := paystack.NewSandbox()
	buyerWithFailingRefund := uuid.New()

	// Wire the fixture first so we can derive the failing reference from a
	// seeded order id.
	gw := &failingGateway{inner: sandbox}
	f := newRefundsFixture(t, gw)

	goodBuyer := f.seedBuyer(t, true)
	goodOrder := f.seedStaleOrder(t, goodBuyer)

	profile := &models.Profile{
		ID:            buyerWithFailingRefund,
		Role:          enums.ProfileRoleBuyer,
		Email:         "other@example.com",
		AccountName:   strPtr("NGOZI OBI"),
		AccountNumber: strPtr("9988776655"),
		BankCode:      strPtr("033"),
	}
	if err := f.profiles.Upsert(context.Background(), profile); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	badOrder := f.seedStaleOrder(t, buyerWithFailingRefund)
	gw.failRef = transfers.RefundKey(badOrder.ID)

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 2 {
		t.Fatalf("expected both candidates attempted, got %+v", report)
	}
	if report.Refunded != 1 || report.Failed != 1 {
		t.Fatalf("expected one refunded and one failed, got %+v", report)
	}
	if gw.attempts != 2 {
		t.Fatalf("expected a transfer attempt per candidate, got %d", gw.attempts)
	}

	// The good order was refunded and removed; the failed one survives for
	// the next run.
	if _, err := f.orders.FindByID(context.Background(), goodOrder.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected good order removed, got %v", err)
	}
	if _, err := f.orders.FindByID(context.Background(), badOrder.ID); err != nil {
		t.Fatalf("expected failed order kept, got %v", err)
	}
}

func TestSweepSkipsBuyersWithoutBankDetails(t *testing.T) {
	f := newRefundsFixture(t, paystack.NewSandbox())
	buyerID := f.seedBuyer(t, false)
	order := f.seedStaleOrder(t, buyerID)

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 1 || report.Skipped != 1 {
		t.Fatalf("expected one skip, got %+v", report)
	}
	if _, err := f.orders.FindByID(context.Background(), order.ID); err != nil {
		t.Fatalf("skipped order must not be deleted: %v", err)
	}
	if f.sandbox.TransferCount() != 0 {
		t.Fatal("skipped candidates must not transfer")
	}
}

func TestSweepSkipsNonBuyerProfiles(t *testing.T) {
	f := newRefundsFixture(t, paystack.NewSandbox())
	vendorish := uuid.New()
	profile := &models.Profile{
		ID:            vendorish,
		Role:          enums.ProfileRoleVendor,
		Email:         "vendor@example.com",
		AccountName:   strPtr("SOME VENDOR"),
		AccountNumber: strPtr("1112223334"),
		BankCode:      strPtr("011"),
	}
	if err := f.profiles.Upsert(context.Background(), profile); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	f.seedStaleOrder(t, vendorish)

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 1 {
		t.Fatalf("expected skip for non-buyer profile, got %+v", report)
	}
}

func TestSweepResumesRecordedRefund(t *testing.T) {
	f := newRefundsFixture(t, paystack.NewSandbox())
	buyerID := f.seedBuyer(t, true)
	order := f.seedStaleOrder(t, buyerID)

	// A prior run transferred and recorded the refund but crashed before
	// deleting the order.
	key := transfers.RefundKey(order.ID)
	err := f.transfers.Create(context.Background(), &models.TransferRecord{
		IdempotencyKey:   key,
		OrderID:          order.ID,
		Purpose:          enums.TransferPurposeRefund,
		GatewayReference: key,
		RecipientCode:    "RCP_prior",
		AmountMinor:      10000,
		Status:           enums.TransferStatusSuccess,
	})
	if err != nil {
		t.Fatalf("seed refund record: %v", err)
	}

	report, runErr := f.svc.Run(context.Background())
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if report.Refunded != 1 {
		t.Fatalf("expected resumed refund counted, got %+v", report)
	}
	if f.sandbox.TransferCount() != 0 {
		t.Fatal("resume must not issue a second transfer")
	}
	if _, err := f.orders.FindByID(context.Background(), order.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected order cleanup on resume, got %v", err)
	}
}

func TestSweepRetriesUnconfirmedRefund(t *testing.T) {
	f := newRefundsFixture(t, paystack.NewSandbox())
	buyerID := f.seedBuyer(t, true)
	order := f.seedStaleOrder(t, buyerID)

	// A prior attempt was recorded but the gateway never confirmed it. That
	// row is not proof of payment, so the sweep must pay, not clean up.
	key := transfers.RefundKey(order.ID)
	err := f.transfers.Create(context.Background(), &models.TransferRecord{
		IdempotencyKey:   key,
		OrderID:          order.ID,
		Purpose:          enums.TransferPurposeRefund,
		GatewayReference: key,
		RecipientCode:    "RCP_prior",
		AmountMinor:      10000,
		Status:           enums.TransferStatusFailed,
	})
	if err != nil {
		t.Fatalf("seed unconfirmed record: %v", err)
	}

	report, runErr := f.svc.Run(context.Background())
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if report.Refunded != 1 {
		t.Fatalf("expected the refund re-submitted and completed, got %+v", report)
	}
	if f.sandbox.TransferCount() != 1 {
		t.Fatalf("expected exactly one transfer on re-submission, got %d", f.sandbox.TransferCount())
	}

	record, err := f.transfers.FindByKey(context.Background(), key)
	if err != nil || record == nil {
		t.Fatalf("expected refreshed ledger record, got %v %v", record, err)
	}
	if record.Status != enums.TransferStatusSuccess {
		t.Fatalf("expected record refreshed to success, got %s", record.Status)
	}
	if _, err := f.orders.FindByID(context.Background(), order.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected order removed after the confirmed refund, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
