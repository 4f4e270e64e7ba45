package controllers

import (
	"net/http"

	"github.com/safelink-ng/safelink-backend/api/responses"
	"github.com/safelink-ng/safelink-backend/api/validators"
	"github.com/safelink-ng/safelink-backend/internal/settlement"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
)

// ReleaseEscrow pays the held funds out to the vendor of a delivered order.
func ReleaseEscrow(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Release(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DirectTransfer pushes a one-off payout through the gateway. Operator
// tooling; it never touches order state.
func DirectTransfer(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input settlement.DirectTransferInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.DirectTransfer(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
