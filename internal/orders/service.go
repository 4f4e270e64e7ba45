package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
	apperrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/security"
)

// Service opens escrow orders and exposes the buyer-facing delivery code
// lookup. Settlement and refunds live in their own packages.
type Service interface {
	// Create persists a new order with funds held and returns the raw
	// delivery code exactly once. The code is never shown again after the
	// create response.
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, string, error)
	// DeliveryCode returns the cached raw code to the order's buyer while
	// the cache entry is still alive.
	DeliveryCode(ctx context.Context, orderID, buyerID uuid.UUID) (string, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type ServiceParams struct {
	Repo       Repository
	Secrets    *SecretCache
	Logger     *logger.Logger
	BcryptCost int
}

type service struct {
	repo       Repository
	secrets    *SecretCache
	logg       *logger.Logger
	bcryptCost int
	validate   *validator.Validate
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("orders: repository is required")
	}
	if params.Secrets == nil {
		return nil, errors.New("orders: secret cache is required")
	}
	if params.Logger == nil {
		return nil, errors.New("orders: logger is required")
	}
	cost := params.BcryptCost
	if cost == 0 {
		cost = security.DefaultBcryptCost
	}
	return &service{
		repo:       params.Repo,
		secrets:    params.Secrets,
		logg:       params.Logger,
		bcryptCost: cost,
		validate:   validator.New(),
		now:        time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, string, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeValidation, err, "invalid order payload")
	}
	if !input.Amount.IsPositive() {
		return nil, "", apperrors.New(apperrors.CodeValidation, "amount must be greater than zero")
	}

	code, err := security.GenerateDeliveryCode()
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInternal, err, "generating delivery code")
	}
	hash, err := security.HashDeliveryCode(code, s.bcryptCost)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInternal, err, "hashing delivery code")
	}

	order := &models.Order{
		ID:                   uuid.New(),
		TransactionReference: input.TransactionReference,
		ProductID:            input.ProductID,
		ProductName:          input.ProductName,
		VendorName:           input.VendorName,
		BuyerID:              input.BuyerID,
		VendorID:             input.VendorID,
		BuyerEmail:           input.BuyerEmail,
		AmountPaid:           input.Amount,
		DeliveryStatus:       enums.DeliveryStatusPending,
		EscrowStatus:         enums.EscrowStatusHeld,
		DeliveryCodeHash:     hash,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeDependency, err, "persisting order")
	}

	// The row and the cached code must come into existence together; a
	// half-created order with no readable code would strand the buyer, so
	// undo the insert when the cache write fails.
	if err := s.secrets.Put(ctx, order.ID, code); err != nil {
		if delErr := s.repo.Delete(ctx, order.ID); delErr != nil {
			s.logg.Error(ctx, fmt.Sprintf("orphaned order %s after secret cache failure", order.ID), delErr)
		}
		return nil, "", apperrors.Wrap(apperrors.CodeDependency, err, "caching delivery code")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "escrow order created")
	return order, code, nil
}

func (s *service) DeliveryCode(ctx context.Context, orderID, buyerID uuid.UUID) (string, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.BuyerID != buyerID {
		return "", apperrors.New(apperrors.CodeForbidden, "delivery code belongs to another buyer")
	}
	return s.secrets.Get(ctx, orderID)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
	}
	return order, nil
}
