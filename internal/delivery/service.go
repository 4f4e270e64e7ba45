package delivery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/safelink-ng/safelink-backend/internal/orders"
	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
	apperrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/security"
)

// Service verifies a buyer-presented delivery code against the order's stored
// hash and marks the order delivered. Confirming delivery never moves money;
// settlement is a separate step.
type Service interface {
	Confirm(ctx context.Context, orderID uuid.UUID, code string) (*models.Order, error)
}

type ServiceParams struct {
	Orders orders.Service
	Repo   orders.Repository
	Logger *logger.Logger
}

type service struct {
	orders orders.Service
	repo   orders.Repository
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, errors.New("delivery: orders service is required")
	}
	if params.Repo == nil {
		return nil, errors.New("delivery: orders repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New("delivery: logger is required")
	}
	return &service{
		orders: params.Orders,
		repo:   params.Repo,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

func (s *service) Confirm(ctx context.Context, orderID uuid.UUID, code string) (*models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "delivery code is required")
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Verify before looking at the current status so a wrong code is
	// rejected the same way whether or not delivery already happened.
	ok, err := security.VerifyDeliveryCode(code, order.DeliveryCodeHash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "verifying delivery code")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid delivery code")
	}

	if order.DeliveryStatus == enums.DeliveryStatusDelivered {
		return order, nil
	}

	confirmedAt := s.now().UTC()
	rows, err := s.repo.MarkDelivered(ctx, order.ID, confirmedAt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "marking order delivered")
	}
	if rows == 0 {
		// Another confirmation landed between the read and the update.
		return s.orders.Get(ctx, orderID)
	}

	order.DeliveryStatus = enums.DeliveryStatusDelivered
	order.ReleasedAt = &confirmedAt

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "delivery confirmed")
	return order, nil
}
