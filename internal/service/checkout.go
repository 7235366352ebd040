package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/internal/event"
	"github.com/caraseli02/moldovadirect-checkout/internal/repository"
	"github.com/caraseli02/moldovadirect-checkout/internal/shipping"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
	"github.com/caraseli02/moldovadirect-checkout/pkg/httpclient"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// PaymentProviderFallback is the circuit breaker fallback for the payment
// provider: when the circuit is open it returns a structured 503 with a
// retry hint instead of the raw breaker error.
func PaymentProviderFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("payment provider is temporarily unavailable, please retry shortly")
}

// NewCheckoutSessionID generates a fresh checkout session identifier. The
// prefix distinguishes checkout sessions from auth sessions in logs and in
// the lock table.
func NewCheckoutSessionID() string {
	return "checkout_" + uuid.New().String()
}

// CheckoutService computes quotes and creates payment intents. Totals come
// from the pure calculator; shipping eligibility from the resolver; the
// payment provider is called through the injected (circuit-broken) client.
type CheckoutService struct {
	carts              repository.CartRepository
	resolver           *shipping.Resolver
	producer           *event.Producer
	httpClient         HTTPDoer
	paymentProviderURL string
	logger             *slog.Logger
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	resolver *shipping.Resolver,
	producer *event.Producer,
	httpClient HTTPDoer,
	paymentProviderURL string,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:              carts,
		resolver:           resolver,
		producer:           producer,
		httpClient:         httpClient,
		paymentProviderURL: paymentProviderURL,
		logger:             logger,
	}
}

// QuoteInput parameterizes a quote computation.
type QuoteInput struct {
	CartID           string              `json:"cart_id" validate:"required"`
	ShippingMethodID string              `json:"shipping_method_id,omitempty"`
	Destination      *domain.Destination `json:"destination,omitempty"`
}

// Quote is an itemized total plus the shipping methods the buyer may still
// switch to.
type Quote struct {
	CartID           string                  `json:"cart_id"`
	Order            domain.OrderData        `json:"order"`
	ShippingMethodID string                  `json:"shipping_method_id"`
	AvailableMethods []domain.ShippingMethod `json:"available_methods"`
}

// ComputeQuote builds the order snapshot for the cart and applies a shipping
// method: the requested one, or the first available method as the
// auto-selected default. An empty cart cannot be quoted.
func (s *CheckoutService) ComputeQuote(ctx context.Context, input *QuoteInput) (*Quote, error) {
	if input == nil || input.CartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}

	cart, err := s.carts.Get(ctx, input.CartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("your cart is empty")
	}

	methods := s.resolver.Available(cart.Items, input.Destination)

	method := methods[0]
	if input.ShippingMethodID != "" {
		found := false
		for _, m := range methods {
			if m.ID == input.ShippingMethodID {
				method = m
				found = true
				break
			}
		}
		if !found {
			return nil, apperrors.InvalidInput(
				fmt.Sprintf("shipping method %s is not available for this destination", input.ShippingMethodID))
		}
	}

	order := domain.BuildOrderData(cart.Items, domain.OrderOptions{Currency: cart.Currency})
	order = domain.ApplyShippingMethod(order, method)

	if err := s.producer.PublishQuoteComputed(ctx, cart.ID, method.ID, order); err != nil {
		s.logger.WarnContext(ctx, "failed to publish checkout.quoted event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}

	return &Quote{
		CartID:           cart.ID,
		Order:            order,
		ShippingMethodID: method.ID,
		AvailableMethods: methods,
	}, nil
}

// ShippingMethods lists the methods available for the cart and destination.
func (s *CheckoutService) ShippingMethods(ctx context.Context, cartID string, dest *domain.Destination) ([]domain.ShippingMethod, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("your cart is empty")
	}

	return s.resolver.Available(cart.Items, dest), nil
}

// PaymentIntent is the provider's intent handle returned to the client.
type PaymentIntent struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// paymentIntentRequest is the provider wire request. Amounts cross this
// boundary in integer minor units only.
type paymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	CartID   string `json:"cart_id"`
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// PreparePayment computes the quote for the cart and creates a payment
// intent for its total with the payment provider. Capture and webhooks stay
// with the provider; only intent creation happens here.
func (s *CheckoutService) PreparePayment(ctx context.Context, input *QuoteInput) (*PaymentIntent, error) {
	quote, err := s.ComputeQuote(ctx, input)
	if err != nil {
		return nil, err
	}

	amountMinor := domain.ToMinorUnits(quote.Order.Total)
	reqBody, err := json.Marshal(paymentIntentRequest{
		Amount:   amountMinor,
		Currency: quote.Order.Currency,
		CartID:   quote.CartID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment intent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.paymentProviderURL+"/v1/payment_intents", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create payment intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call payment provider: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "payment provider")
	}
	defer func() { _ = resp.Body.Close() }()

	var intent paymentIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode payment intent response: %w", err)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.String("cart_id", quote.CartID),
		slog.String("intent_id", intent.ID),
		slog.Int64("amount_minor", amountMinor),
	)

	if err := s.producer.PublishPaymentIntentCreated(ctx, quote.CartID, intent.ID, amountMinor, quote.Order.Currency); err != nil {
		s.logger.WarnContext(ctx, "failed to publish payment_intent_created event",
			slog.String("cart_id", quote.CartID),
			slog.String("error", err.Error()),
		)
	}

	return &PaymentIntent{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  amountMinor,
		Currency:     quote.Order.Currency,
		Status:       intent.Status,
	}, nil
}
