package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safelink-ng/safelink-backend/api/middleware"
	"github.com/safelink-ng/safelink-backend/api/responses"
	"github.com/safelink-ng/safelink-backend/api/validators"
	"github.com/safelink-ng/safelink-backend/internal/delivery"
	internalorders "github.com/safelink-ng/safelink-backend/internal/orders"
	"github.com/safelink-ng/safelink-backend/pkg/db/models"
	pkgerrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
)

type createOrderResponse struct {
	Order *models.Order `json:"order"`
	// DeliveryCode is returned exactly once, in this response. After that it
	// is only readable via the delivery-code endpoint while its TTL lasts.
	DeliveryCode string `json:"delivery_code"`
}

// CreateOrder opens a new escrow order for an already-paid purchase.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, code, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{Order: order, DeliveryCode: code})
	}
}

// GetOrder returns a single order by id.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// GetDeliveryCode lets the buyer re-read the raw delivery code while the
// cache entry is alive.
func GetDeliveryCode(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyerID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		code, err := svc.DeliveryCode(r.Context(), orderID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"delivery_code": code})
	}
}

type confirmDeliveryRequest struct {
	InputCode string `json:"input_code" validate:"required,len=4,numeric"`
}

type confirmDeliveryResponse struct {
	OK    bool          `json:"ok"`
	Order *models.Order `json:"order"`
}

// ConfirmDelivery verifies the presented code and marks the order delivered.
func ConfirmDelivery(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input confirmDeliveryRequest
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Confirm(r.Context(), orderID, input.InputCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmDeliveryResponse{OK: true, Order: order})
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
