package refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// Outcome classifies what happened to a single candidate order.
type Outcome string

const (
	OutcomeRefunded Outcome = "refunded"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result is the per-order outcome of a sweep.
type Result struct {
	OrderID   uuid.UUID `json:"order_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	Outcome   Outcome   `json:"outcome"`
	Reference string    `json:"reference,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Report summarises one sweep run.
type Report struct {
	Processed int       `json:"processed"`
	Refunded  int       `json:"refunded"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Cutoff    time.Time `json:"cutoff"`
	Results   []Result  `json:"results"`
}

// Service sweeps stale held orders and refunds the buyers. One candidate's
// failure never aborts the rest of the run, and refunds are at-most-once: the
// transfer is recorded in the ledger before the order row is removed, so a
// crash between the two resumes without paying again.
type Service interface {
	Run(ctx context.Context) (*Report, error)
}

type ServiceParams struct {
	Orders      orders.Repository
	Transfers   transfers.Repository
	Profiles    profiles.Repository
	Gateway     paystack.TransferGateway
	Logger      *logger.Logger
	GracePeriod time.Duration
}

type service struct {
	orders    orders.Repository
	transfers transfers.Repository
	profiles  profiles.Repository
	gateway   paystack.TransferGateway
	logg      *logger.Logger
	grace     time.Duration
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil || params.Transfers == nil || params.Profiles == nil {
		return nil, errors.New("refunds: repositories are required")
	}
	if params.Gateway == nil {
		return nil, errors.New("refunds: transfer gateway is required")
	}
	if params.Logger == nil {
		return nil, errors.New("refunds: logger is required")
	}
	if params.GracePeriod <= 0 {
		return nil, errors.New("refunds: grace period must be positive")
	}
	return &service{
		orders:    params.Orders,
		transfers: params.Transfers,
		profiles:  params.Profiles,
		gateway:   params.Gateway,
		logg:      params.Logger,
		grace:     params.GracePeriod,
		now:       time.Now,
	}, nil
}

func (s *service) Run(ctx context.Context) (*Report, error) {
	cutoff := s.now().UTC().Add(-s.grace)
	candidates, err := s.orders.FindStaleHeld(ctx, cutoff)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "listing stale orders")
	}

	report := &Report{Cutoff: cutoff, Results: make([]Result, 0, len(candidates))}
	for i := range candidates {
		order := &candidates[i]
		result := s.refundOrder(ctx, order)
		report.Results = append(report.Results, result)
		report.Processed++
		switch result.Outcome {
		case OutcomeRefunded:
			report.Refunded++
		case OutcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	return report, nil
}

func (s *service) refundOrder(ctx context.Context, order *models.Order) Result {
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithBuyerID(ctx, order.BuyerID.String())

	result := Result{OrderID: order.ID, BuyerID: order.BuyerID}

	buyer, err := s.profiles.FindByID(ctx, order.BuyerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		result.Outcome = OutcomeSkipped
		result.Reason = "buyer profile not found"
		s.logg.Warn(ctx, "refund skipped: buyer profile not found")
		return result
	}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = "loading buyer profile: " + err.Error()
		s.logg.Error(ctx, "refund failed loading buyer profile", err)
		return result
	}
	if buyer.Role != enums.ProfileRoleBuyer {
		result.Outcome = OutcomeSkipped
		result.Reason = "profile is not a buyer"
		s.logg.Warn(ctx, "refund skipped: profile is not a buyer")
		return result
	}
	if !buyer.HasPayoutDetails() {
		result.Outcome = OutcomeSkipped
		result.Reason = "buyer has no bank details on file"
		s.logg.Warn(ctx, "refund skipped: missing bank details")
		return result
	}

	key := transfers.RefundKey(order.ID)
	record, err := s.transfers.FindByKey(ctx, key)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = "checking transfer ledger: " + err.Error()
		s.logg.Error(ctx, "refund failed checking ledger", err)
		return result
	}

	if record != nil && record.Status == enums.TransferStatusSuccess {
		// A prior run already moved the money but crashed before cleanup.
		s.logg.Info(ctx, "refund resumed from recorded transfer")
	} else {
		// No record, or one whose transfer never confirmed. An unconfirmed
		// row is not proof of payment; re-submit under the same reference
		// and let the gateway deduplicate.
		record, err = s.sendRefund(ctx, order, buyer, key, record)
		if err != nil {
			result.Outcome = OutcomeFailed
			result.Reason = err.Error()
			s.logg.Error(ctx, "refund transfer failed", err)
			return result
		}
	}
	result.Reference = record.GatewayReference

	if record.Status == enums.TransferStatusFailed {
		result.Outcome = OutcomeFailed
		result.Reason = "gateway reported the refund transfer failed"
		s.logg.Error(ctx, "refund transfer not confirmed", errors.New(result.Reason))
		return result
	}

	// A confirmed ledger row is the proof of payment; once it exists the
	// order row only needs to disappear so the sweep stops picking it up.
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = "transfer recorded but order cleanup failed: " + err.Error()
		s.logg.Error(ctx, "refund cleanup failed", err)
		return result
	}

	result.Outcome = OutcomeRefunded
	s.logg.Info(ctx, "stale order refunded")
	return result
}

func (s *service) sendRefund(ctx context.Context, order *models.Order, buyer *models.Profile, key string, prior *models.TransferRecord) (*models.TransferRecord, error) {
	amountMinor, err := refundMinorUnits(order)
	if err != nil {
		return nil, err
	}

	recipient, err := s.gateway.CreateRecipient(ctx, paystack.BankDetails{
		AccountName:   *buyer.AccountName,
		AccountNumber: *buyer.AccountNumber,
		BankCode:      *buyer.BankCode,
	})
	if err != nil {
		return nil, err
	}

	transfer, err := s.gateway.InitiateTransfer(ctx, paystack.TransferRequest{
		AmountMinor:   amountMinor,
		RecipientCode: recipient,
		Reference:     key,
		Reason:        fmt.Sprintf("SAFELINK: refund for undelivered order %s", order.ID),
	})
	if err != nil {
		return nil, err
	}

	status, perr := enums.ParseTransferStatus(transfer.Status)
	if perr != nil {
		status = enums.TransferStatusPending
	}
	record := &models.TransferRecord{
		IdempotencyKey:   key,
		OrderID:          order.ID,
		Purpose:          enums.TransferPurposeRefund,
		GatewayReference: transfer.Reference,
		RecipientCode:    recipient,
		AmountMinor:      transfer.AmountMinor,
		Status:           status,
	}
	if transfer.TransferCode != "" {
		record.TransferCode = &transfer.TransferCode
	}

	if prior != nil {
		if err := s.transfers.UpdateStatus(ctx, key, status, record.TransferCode); err != nil {
			return nil, fmt.Errorf("refreshing refund record: %w", err)
		}
		return record, nil
	}

	if err := s.transfers.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "idempotency_key") {
			// Another worker recorded the same refund; the gateway already
			// deduplicated the transfer by reference.
			existing, ferr := s.transfers.FindByKey(ctx, key)
			if ferr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("recording refund transfer: %w", err)
	}
	return record, nil
}

func refundMinorUnits(order *models.Order) (int64, error) {
	minor := order.AmountPaid.Shift(2).Round(0)
	if !minor.IsPositive() || !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("order %s has an unrefundable amount %s", order.ID, order.AmountPaid)
	}
	return minor.IntPart(), nil
}
