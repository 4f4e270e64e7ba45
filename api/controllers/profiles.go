package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safelink-ng/safelink-backend/api/middleware"
	"github.com/safelink-ng/safelink-backend/api/responses"
	"github.com/safelink-ng/safelink-backend/api/validators"
	"github.com/safelink-ng/safelink-backend/internal/profiles"
	"github.com/safelink-ng/safelink-backend/pkg/enums"
	pkgerrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
)

type upsertBankDetailsRequest struct {
	Role          string `json:"role" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
	BankCode      string `json:"bank_code" validate:"required"`
	BankName      string `json:"bank_name" validate:"required"`
}

// UpsertBankDetails stores gateway-verified payout details on a profile. A
// caller may only modify their own profile.
func UpsertBankDetails(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, err := parseProfileID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		callerID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		if callerID != profileID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot modify another profile"))
			return
		}

		var input upsertBankDetailsRequest
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseProfileRole(input.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		profile, err := svc.UpsertBankDetails(r.Context(), profileID, role, input.Email, profiles.BankDetailsInput{
			AccountNumber: input.AccountNumber,
			BankCode:      input.BankCode,
			BankName:      input.BankName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type resolveAccountRequest struct {
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
	BankCode      string `json:"bank_code" validate:"required"`
}

// ResolveBankAccount previews the holder name for a bank account.
func ResolveBankAccount(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input resolveAccountRequest
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resolved, err := svc.ResolveAccount(r.Context(), input.AccountNumber, input.BankCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolved)
	}
}

func parseProfileID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "profileID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid profile id")
	}
	return id, nil
}
