package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/internal/orders"
	"github.com/safelink-ng/safelink-backend/internal/profiles"
	"github.com/safelink-ng/safelink-backend/internal/transfers"
	"github.com/safelink-ng/safelink-backend/pkg/db"
	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
	apperrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/paystack"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReleaseResult reports the outcome of settling an order.
type ReleaseResult struct {
	Order        *models.Order `json:"order"`
	Reference    string        `json:"reference"`
	TransferCode string        `json:"transfer_code,omitempty"`
	AmountMinor  int64         `json:"amount_minor"`
	Recipient    string        `json:"recipient"`
	// Resumed is true when a prior attempt had already transferred the funds
	// and this call only completed the bookkeeping.
	Resumed bool `json:"resumed"`
}

// Service moves held escrow funds to the vendor. Release is the only way
// funds leave escrow toward a vendor, and it happens at most once per order.
type Service interface {
	Release(ctx context.Context, orderID uuid.UUID) (*ReleaseResult, error)
	// DirectTransfer pushes an arbitrary payout through the gateway without
	// touching order state. Operator tooling only.
	DirectTransfer(ctx context.Context, input DirectTransferInput) (*paystack.TransferResult, error)
}

// DirectTransferInput describes a one-off payout.
type DirectTransferInput struct {
	AmountMinor   int64  `json:"amount_minor" validate:"required,gt=0"`
	AccountName   string `json:"account_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
	BankCode      string `json:"bank_code" validate:"required"`
	Reason        string `json:"reason"`
	Reference     string `json:"reference"`
}

type ServiceParams struct {
	Orders    orders.Repository
	Transfers transfers.Repository
	Profiles  profiles.Repository
	Gateway   paystack.TransferGateway
	Tx        TxRunner
	Logger    *logger.Logger
}

type service struct {
	orders    orders.Repository
	transfers transfers.Repository
	profiles  profiles.Repository
	gateway   paystack.TransferGateway
	tx        TxRunner
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil || params.Transfers == nil || params.Profiles == nil {
		return nil, errors.New("settlement: repositories are required")
	}
	if params.Gateway == nil {
		return nil, errors.New("settlement: transfer gateway is required")
	}
	if params.Tx == nil {
		return nil, errors.New("settlement: tx runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("settlement: logger is required")
	}
	return &service{
		orders:    params.Orders,
		transfers: params.Transfers,
		profiles:  params.Profiles,
		gateway:   params.Gateway,
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

func (s *service) Release(ctx context.Context, orderID uuid.UUID) (*ReleaseResult, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
	}

	// All preconditions are checked before any gateway traffic. A rejected
	// release must leave zero external side effects.
	if order.DeliveryStatus != enums.DeliveryStatusDelivered {
		return nil, apperrors.New(apperrors.CodeStateConflict, "delivery has not been confirmed")
	}
	if order.EscrowStatus != enums.EscrowStatusHeld {
		return nil, apperrors.New(apperrors.CodeStateConflict, "escrow has already been released")
	}

	vendor, err := s.profiles.FindByID(ctx, order.VendorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "vendor profile not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading vendor profile")
	}
	if !vendor.HasPayoutDetails() {
		return nil, apperrors.New(apperrors.CodeStateConflict, "vendor has no payout details on file")
	}

	key := transfers.SettlementKey(order.ID)

	// A crash after the transfer but before the escrow flag flipped leaves a
	// successful ledger record behind. Resume from it instead of paying twice.
	if prior, err := s.transfers.FindByKey(ctx, key); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "checking transfer ledger")
	} else if prior != nil && prior.Status == enums.TransferStatusSuccess {
		if _, err := s.orders.MarkReleased(ctx, order.ID); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDependency, err, "resuming escrow release")
		}
		order.EscrowStatus = enums.EscrowStatusReleased
		s.logg.Info(ctx, "settlement resumed from recorded transfer")
		return resultFromRecord(order, prior, true), nil
	}

	amountMinor, err := toMinorUnits(order.AmountPaid)
	if err != nil {
		return nil, err
	}

	recipient, err := s.gateway.CreateRecipient(ctx, paystack.BankDetails{
		AccountName:   *vendor.AccountName,
		AccountNumber: *vendor.AccountNumber,
		BankCode:      *vendor.BankCode,
	})
	if err != nil {
		return nil, err
	}

	transfer, err := s.gateway.InitiateTransfer(ctx, paystack.TransferRequest{
		AmountMinor:   amountMinor,
		RecipientCode: recipient,
		Reference:     key,
		Reason:        settlementReason(order),
	})
	if err != nil {
		return nil, err
	}

	status, perr := enums.ParseTransferStatus(transfer.Status)
	if perr != nil {
		// Gateways report states like "otp" or "queued" for transfers still
		// in flight; anything not terminal is pending from our side.
		status = enums.TransferStatusPending
	}

	record := &models.TransferRecord{
		IdempotencyKey:   key,
		OrderID:          order.ID,
		Purpose:          enums.TransferPurposeSettlement,
		GatewayReference: transfer.Reference,
		RecipientCode:    recipient,
		AmountMinor:      transfer.AmountMinor,
		Status:           status,
	}
	if transfer.TransferCode != "" {
		record.TransferCode = &transfer.TransferCode
	}

	lost := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.transfers.WithTx(tx).Create(ctx, record); err != nil {
			if db.IsUniqueViolation(err, "idempotency_key") {
				lost = true
				return err
			}
			return err
		}
		rows, err := s.orders.WithTx(tx).MarkReleased(ctx, order.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			lost = true
			return errors.New("escrow release lost the race")
		}
		return nil
	})
	if err != nil {
		if lost {
			// A concurrent caller committed first. The gateway deduplicated
			// the transfer by reference, so the money moved exactly once;
			// report the committed outcome.
			return s.resumeFromLedger(ctx, order, key)
		}
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "recording settlement")
	}

	order.EscrowStatus = enums.EscrowStatusReleased
	s.logg.Info(s.logg.WithField(ctx, "reference", key), "escrow released to vendor")
	return resultFromRecord(order, record, false), nil
}

func (s *service) resumeFromLedger(ctx context.Context, order *models.Order, key string) (*ReleaseResult, error) {
	prior, err := s.transfers.FindByKey(ctx, key)
	if err != nil || prior == nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "reloading transfer ledger")
	}
	order.EscrowStatus = enums.EscrowStatusReleased
	return resultFromRecord(order, prior, true), nil
}

func (s *service) DirectTransfer(ctx context.Context, input DirectTransferInput) (*paystack.TransferResult, error) {
	if input.AmountMinor <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "amount_minor must be greater than zero")
	}
	if input.AccountNumber == "" || input.BankCode == "" || input.AccountName == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "account_name, account_number and bank_code are required")
	}

	recipient, err := s.gateway.CreateRecipient(ctx, paystack.BankDetails{
		AccountName:   input.AccountName,
		AccountNumber: input.AccountNumber,
		BankCode:      input.BankCode,
	})
	if err != nil {
		return nil, err
	}

	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("direct:%s", uuid.New())
	}
	return s.gateway.InitiateTransfer(ctx, paystack.TransferRequest{
		AmountMinor:   input.AmountMinor,
		RecipientCode: recipient,
		Reference:     reference,
		Reason:        input.Reason,
	})
}

func resultFromRecord(order *models.Order, record *models.TransferRecord, resumed bool) *ReleaseResult {
	res := &ReleaseResult{
		Order:       order,
		Reference:   record.GatewayReference,
		AmountMinor: record.AmountMinor,
		Recipient:   record.RecipientCode,
		Resumed:     resumed,
	}
	if record.TransferCode != nil {
		res.TransferCode = *record.TransferCode
	}
	return res
}

func settlementReason(order *models.Order) string {
	if order.ProductName != nil && *order.ProductName != "" {
		return fmt.Sprintf("SAFELINK: escrow release for %s", *order.ProductName)
	}
	return fmt.Sprintf("SAFELINK: escrow release for order %s", order.ID)
}
