package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caraseli02/moldovadirect-checkout/internal/service"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
	"github.com/caraseli02/moldovadirect-checkout/pkg/httputil"
	"github.com/caraseli02/moldovadirect-checkout/pkg/validator"
)

// LockHandler handles HTTP requests for the cart checkout lock.
type LockHandler struct {
	service *service.LockService
	logger  *slog.Logger
}

// NewLockHandler creates a new lock HTTP handler.
func NewLockHandler(svc *service.LockService, logger *slog.Logger) *LockHandler {
	return &LockHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AcquireLockRequest is the JSON request body for locking a cart. A zero
// duration falls back to the default; out-of-range values are clamped.
type AcquireLockRequest struct {
	CheckoutSessionID string `json:"checkout_session_id" validate:"required,min=1,max=255"`
	DurationMinutes   int    `json:"duration_minutes" validate:"gte=0,lte=1440"`
}

// ReleaseLockRequest is the optional JSON request body for unlocking a cart.
// An absent session id is an administrative override.
type ReleaseLockRequest struct {
	CheckoutSessionID string `json:"checkout_session_id"`
}

// --- Handlers ---

// AcquireLock handles POST /api/v1/carts/{cartID}/lock
func (h *LockHandler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cartID is required"), h.logger)
		return
	}

	var req AcquireLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if req.CheckoutSessionID == "" {
		req.CheckoutSessionID = r.Header.Get(sessionHeader)
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	lock, err := h.service.Lock(r.Context(), cartID, req.CheckoutSessionID, req.DurationMinutes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: lock})
}

// ReleaseLock handles DELETE /api/v1/carts/{cartID}/lock
func (h *LockHandler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cartID is required"), h.logger)
		return
	}

	// DELETE bodies are optional; the header is the common transport.
	sessionID := r.Header.Get(sessionHeader)
	var req ReleaseLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.CheckoutSessionID != "" {
		sessionID = req.CheckoutSessionID
	} else if err != nil && err != io.EOF {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := h.service.Unlock(r.Context(), cartID, sessionID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "unlocked"}})
}

// LockStatus handles GET /api/v1/carts/{cartID}/lock
func (h *LockHandler) LockStatus(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cartID is required"), h.logger)
		return
	}

	status, err := h.service.Status(r.Context(), cartID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: status})
}
