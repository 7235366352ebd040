package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/internal/service"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
	"github.com/caraseli02/moldovadirect-checkout/pkg/httputil"
	"github.com/caraseli02/moldovadirect-checkout/pkg/validator"
)

// CheckoutHandler handles HTTP requests for quotes, shipping methods, and
// payment intents.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// DestinationRequest is the shipping destination in quote requests.
type DestinationRequest struct {
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Province   string `json:"province"`
}

// QuoteRequest is the JSON request body for quote and payment intent
// endpoints.
type QuoteRequest struct {
	CartID           string              `json:"cart_id" validate:"required"`
	ShippingMethodID string              `json:"shipping_method_id"`
	Destination      *DestinationRequest `json:"destination,omitempty"`
}

func (req *QuoteRequest) toInput() *service.QuoteInput {
	input := &service.QuoteInput{
		CartID:           req.CartID,
		ShippingMethodID: req.ShippingMethodID,
	}
	if req.Destination != nil {
		input.Destination = &domain.Destination{
			Country:    req.Destination.Country,
			PostalCode: req.Destination.PostalCode,
			City:       req.Destination.City,
			Province:   req.Destination.Province,
		}
	}
	return input
}

// --- Handlers ---

// Quote handles POST /api/v1/checkout/quote
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	quote, err := h.service.ComputeQuote(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: quote})
}

// ShippingMethods handles GET /api/v1/checkout/shipping-methods
func (h *CheckoutHandler) ShippingMethods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cartID := q.Get("cart_id")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cart_id query parameter is required"), h.logger)
		return
	}

	var dest *domain.Destination
	if country := q.Get("country"); country != "" {
		dest = &domain.Destination{
			Country:    country,
			PostalCode: q.Get("postal_code"),
			City:       q.Get("city"),
			Province:   q.Get("province"),
		}
	}

	methods, err := h.service.ShippingMethods(r.Context(), cartID, dest)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: methods})
}

// PaymentIntent handles POST /api/v1/checkout/payment-intent
func (h *CheckoutHandler) PaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	intent, err := h.service.PreparePayment(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: intent})
}
