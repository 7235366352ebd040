package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/internal/service"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
	"github.com/caraseli02/moldovadirect-checkout/pkg/httputil"
	"github.com/caraseli02/moldovadirect-checkout/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ProductRequest is the product snapshot stored with a cart item. Prices are
// snapshotted at add-to-cart time; later catalog edits do not reprice carts.
type ProductRequest struct {
	ID       string   `json:"id" validate:"required"`
	SKU      string   `json:"sku" validate:"required"`
	Name     string   `json:"name" validate:"required,min=1,max=500"`
	Price    float64  `json:"price" validate:"gte=0"`
	WeightKg float64  `json:"weight_kg" validate:"gte=0"`
	Images   []string `json:"images,omitempty"`
}

// CartItemRequest is a single cart line in the replace request.
type CartItemRequest struct {
	ProductID string         `json:"product_id" validate:"required"`
	Product   ProductRequest `json:"product" validate:"required"`
	Quantity  int            `json:"quantity" validate:"required,gte=1"`
}

// ReplaceCartRequest is the JSON request body for replacing the cart contents.
type ReplaceCartRequest struct {
	Items    []CartItemRequest `json:"items" validate:"dive"`
	Currency string            `json:"currency" validate:"omitempty,len=3"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/carts/{cartID}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cartID is required"), h.logger)
		return
	}

	cart, err := h.service.Get(r.Context(), cartID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ReplaceCart handles PUT /api/v1/carts/{cartID}
func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cartID is required"), h.logger)
		return
	}

	var req ReplaceCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.CartItem{
			ProductID: it.ProductID,
			Product: domain.ProductSnapshot{
				ID:       it.Product.ID,
				SKU:      it.Product.SKU,
				Name:     it.Product.Name,
				Price:    it.Product.Price,
				WeightKg: it.Product.WeightKg,
				Images:   it.Product.Images,
			},
			Quantity: it.Quantity,
		})
	}

	cart, err := h.service.Replace(r.Context(), cartID, items, req.Currency)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// DeleteCart handles DELETE /api/v1/carts/{cartID}
func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cartID is required"), h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), cartID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "deleted"}})
}
