// Package httpapi exposes the public HTTP surface: session issuance,
// credential and heartbeat operations for owners, and the recovery flow for
// trustees.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/server/config"
	"github.com/lifesignal/lifesignal/internal/server/liveness"
	"github.com/lifesignal/lifesignal/internal/server/lockout"
	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

type Handler struct {
	config     *config.Config
	logger     logging.Logger
	principals principals.Repository
	liveness   *liveness.Service
	lockout    *lockout.Service
	trustees   *trustees.Service
	vault      *vault.Service
	validate   *validator.Validate
}

func NewHandler(
	cfg *config.Config,
	logger logging.Logger,
	principalRepo principals.Repository,
	livenessSvc *liveness.Service,
	lockoutSvc *lockout.Service,
	trusteeSvc *trustees.Service,
	vaultSvc *vault.Service,
) *Handler {
	return &Handler{
		config:     cfg,
		logger:     logger.With("module", "httpapi"),
		principals: principalRepo,
		liveness:   livenessSvc,
		lockout:    lockoutSvc,
		trustees:   trusteeSvc,
		vault:      vaultSvc,
		validate:   validator.New(),
	}
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(context.Background(), "marshaling response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"internal error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithServiceError maps domain sentinel errors onto HTTP statuses.
func (h *Handler) respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		h.respondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		h.respondWithError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorAccessDenied):
		h.respondWithError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, common.ErrorNotProtected):
		h.respondWithError(w, http.StatusConflict, "no trustees registered: the switch is unwitnessed")
	case errors.Is(err, common.ErrorNoCredential):
		h.respondWithError(w, http.StatusConflict, "no credential enrolled: set one before verifying")
	case errors.Is(err, common.ErrorTrusteeLimit):
		h.respondWithError(w, http.StatusConflict, "trustee limit reached")
	case errors.Is(err, common.ErrorAlreadyBound):
		h.respondWithError(w, http.StatusConflict, "trustee already registered")
	case errors.Is(err, common.ErrorSelfTrustee):
		h.respondWithError(w, http.StatusConflict, "cannot act as your own trustee")
	case errors.Is(err, common.ErrorUndecryptable):
		h.respondWithError(w, http.StatusUnprocessableEntity, "entry cannot be decrypted")
	case errors.Is(err, common.ErrorValidation):
		h.respondWithError(w, http.StatusBadRequest, "invalid request")
	default:
		h.logger.Error(context.Background(), "request failed", "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
