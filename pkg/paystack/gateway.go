package paystack

import (
	"context"

	"github.com/safelink-ng/safelink-backend/pkg/config"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
)

// TransferGateway abstracts the payment processor used to move escrowed
// funds to real bank accounts. Settlement and refund logic depend only on
// this interface; which adapter backs it (sandbox or live) is decided once,
// at wiring time, by configuration.
type TransferGateway interface {
	// CreateRecipient registers a payout destination and returns its
	// recipient code. Creation is not blindly retried: Paystack returns the
	// existing recipient for identical bank details, so callers re-invoke
	// only as part of a full operation retry.
	CreateRecipient(ctx context.Context, details BankDetails) (string, error)
	// InitiateTransfer submits a transfer. Submissions sharing a reference
	// are deduplicated by the gateway, which makes retries safe.
	InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	// ResolveAccount looks up the account holder name for a bank account.
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*AccountResolution, error)
}

// BankDetails identifies a Nigerian bank account (nuban).
type BankDetails struct {
	AccountName   string
	AccountNumber string
	BankCode      string
}

// TransferRequest is a single payout instruction. Reference doubles as the
// idempotency key.
type TransferRequest struct {
	AmountMinor   int64
	RecipientCode string
	Reference     string
	Reason        string
}

// TransferResult is the gateway-confirmed outcome of a transfer.
type TransferResult struct {
	Reference    string
	Status       string
	TransferCode string
	AmountMinor  int64
	Recipient    string
}

// AccountResolution carries the resolved holder name for a bank account.
type AccountResolution struct {
	AccountName   string
	AccountNumber string
	BankCode      string
}

// NewGateway selects the adapter for the configured mode.
func NewGateway(cfg config.PaystackConfig, logg *logger.Logger) (TransferGateway, error) {
	if cfg.IsSandbox() {
		return NewSandbox(), nil
	}
	return NewClient(cfg, logg)
}
