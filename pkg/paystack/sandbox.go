package paystack

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/safelink-ng/safelink-backend/pkg/errors"
)

// Sandbox is the TransferGateway used outside production: it confirms every
// transfer synthetically and moves no money. Results are remembered per
// reference so a retried submission observes the same outcome, mirroring the
// live gateway's reference-based deduplication.
type Sandbox struct {
	mu        sync.Mutex
	transfers map[string]*TransferResult
	seq       int
}

// NewSandbox builds an empty sandbox gateway.
func NewSandbox() *Sandbox {
	return &Sandbox{transfers: map[string]*TransferResult{}}
}

func (s *Sandbox) CreateRecipient(_ context.Context, details BankDetails) (string, error) {
	if details.AccountName == "" || details.AccountNumber == "" || details.BankCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "account name, number and bank code are required")
	}
	return fmt.Sprintf("RCP_mock_%s_%s", details.BankCode, details.AccountNumber), nil
}

func (s *Sandbox) InitiateTransfer(_ context.Context, req TransferRequest) (*TransferResult, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if req.RecipientCode == "" || req.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient and reference are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.transfers[req.Reference]; ok {
		return existing, nil
	}

	s.seq++
	result := &TransferResult{
		Reference:    req.Reference,
		Status:       "success",
		TransferCode: fmt.Sprintf("TRF_mock_%d", s.seq),
		AmountMinor:  req.AmountMinor,
		Recipient:    req.RecipientCode,
	}
	s.transfers[req.Reference] = result
	return result, nil
}

func (s *Sandbox) ResolveAccount(_ context.Context, accountNumber, bankCode string) (*AccountResolution, error) {
	if accountNumber == "" || bankCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}
	return &AccountResolution{
		AccountName:   "SANDBOX ACCOUNT",
		AccountNumber: accountNumber,
		BankCode:      bankCode,
	}, nil
}

// TransferCount reports how many distinct transfers the sandbox accepted.
func (s *Sandbox) TransferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}
