package profiles

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
	apperrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/paystack"
)

// BankDetailsInput is the payload for attaching payout details to a profile.
// The account name is resolved from the bank, not trusted from the caller.
type BankDetailsInput struct {
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
	BankCode      string `json:"bank_code" validate:"required"`
	BankName      string `json:"bank_name" validate:"required"`
}

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// UpsertBankDetails resolves the account against the gateway and stores
	// the verified details on the profile.
	UpsertBankDetails(ctx context.Context, id uuid.UUID, role enums.ProfileRole, email string, input BankDetailsInput) (*models.Profile, error)
	// ResolveAccount is a read-only passthrough so clients can preview the
	// account holder name before saving.
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.AccountResolution, error)
}

type ServiceParams struct {
	Repo    Repository
	Gateway paystack.TransferGateway
	Logger  *logger.Logger
}

type service struct {
	repo     Repository
	gateway  paystack.TransferGateway
	logg     *logger.Logger
	validate *validator.Validate
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("profiles: repository is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("profiles: transfer gateway is required")
	}
	if params.Logger == nil {
		return nil, errors.New("profiles: logger is required")
	}
	return &service{
		repo:     params.Repo,
		gateway:  params.Gateway,
		logg:     params.Logger,
		validate: validator.New(),
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "profile not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading profile")
	}
	return profile, nil
}

func (s *service) UpsertBankDetails(ctx context.Context, id uuid.UUID, role enums.ProfileRole, email string, input BankDetailsInput) (*models.Profile, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid bank details")
	}
	if !role.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown profile role")
	}

	resolved, err := s.gateway.ResolveAccount(ctx, input.AccountNumber, input.BankCode)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		ID:            id,
		Role:          role,
		Email:         email,
		AccountName:   &resolved.AccountName,
		AccountNumber: &input.AccountNumber,
		BankName:      &input.BankName,
		BankCode:      &input.BankCode,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "saving bank details")
	}

	s.logg.Info(s.logg.WithField(ctx, "profile_id", id.String()), "bank details updated")
	return profile, nil
}

func (s *service) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.AccountResolution, error) {
	if accountNumber == "" || bankCode == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "account_number and bank_code are required")
	}
	return s.gateway.ResolveAccount(ctx, accountNumber, bankCode)
}
