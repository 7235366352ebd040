package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	pkgkafka "github.com/caraseli02/moldovadirect-checkout/pkg/kafka"
)

// Kafka topics for checkout domain events.
const (
	TopicCartLocked    = "moldovadirect.cart.locked"
	TopicCartUnlocked  = "moldovadirect.cart.unlocked"
	TopicQuoteComputed = "moldovadirect.checkout.quoted"
	TopicPaymentIntent = "moldovadirect.checkout.payment_intent_created"
)

const (
	AggregateTypeCart     = "cart"
	AggregateTypeCheckout = "checkout"
)

// SourceService identifies events originating from this service.
const SourceService = "checkout-service"

// CartLockedData is the payload for a cart.locked event.
type CartLockedData struct {
	CartID          string    `json:"cart_id"`
	LockedBySession string    `json:"locked_by_session"`
	LockedAt        time.Time `json:"locked_at"`
	LockedUntil     time.Time `json:"locked_until"`
}

// CartUnlockedData is the payload for a cart.unlocked event.
type CartUnlockedData struct {
	CartID    string `json:"cart_id"`
	SessionID string `json:"session_id,omitempty"`
	Override  bool   `json:"override"`
}

// QuoteComputedData is the payload for a checkout.quoted event.
type QuoteComputedData struct {
	CartID           string  `json:"cart_id"`
	ShippingMethodID string  `json:"shipping_method_id,omitempty"`
	Subtotal         float64 `json:"subtotal"`
	ShippingCost     float64 `json:"shipping_cost"`
	Tax              float64 `json:"tax"`
	Total            float64 `json:"total"`
	Currency         string  `json:"currency"`
}

// PaymentIntentData is the payload for a payment_intent_created event.
type PaymentIntentData struct {
	CartID      string `json:"cart_id"`
	IntentID    string `json:"intent_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// Producer publishes checkout domain events to Kafka. Event publication is
// best-effort from the caller's point of view: the lock and quote paths must
// not fail because the broker is down, so callers log and continue.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for the checkout service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartLocked publishes a cart.locked event.
func (p *Producer) PublishCartLocked(ctx context.Context, lock *domain.CartLock) error {
	data := CartLockedData{
		CartID:          lock.CartID,
		LockedBySession: lock.LockedBySession,
		LockedAt:        lock.LockedAt,
		LockedUntil:     lock.LockedUntil,
	}

	event, err := pkgkafka.NewEvent(TopicCartLocked, lock.CartID, AggregateTypeCart, SourceService, data)
	if err != nil {
		return fmt.Errorf("create cart.locked event: %w", err)
	}
	if err := p.kafka.Publish(ctx, TopicCartLocked, event); err != nil {
		return fmt.Errorf("publish cart.locked event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.locked event",
		slog.String("cart_id", lock.CartID),
		slog.String("session_id", lock.LockedBySession),
	)
	return nil
}

// PublishCartUnlocked publishes a cart.unlocked event.
func (p *Producer) PublishCartUnlocked(ctx context.Context, cartID, sessionID string) error {
	data := CartUnlockedData{
		CartID:    cartID,
		SessionID: sessionID,
		Override:  sessionID == "",
	}

	event, err := pkgkafka.NewEvent(TopicCartUnlocked, cartID, AggregateTypeCart, SourceService, data)
	if err != nil {
		return fmt.Errorf("create cart.unlocked event: %w", err)
	}
	if err := p.kafka.Publish(ctx, TopicCartUnlocked, event); err != nil {
		return fmt.Errorf("publish cart.unlocked event: %w", err)
	}
	return nil
}

// PublishQuoteComputed publishes a checkout.quoted event.
func (p *Producer) PublishQuoteComputed(ctx context.Context, cartID, methodID string, order domain.OrderData) error {
	data := QuoteComputedData{
		CartID:           cartID,
		ShippingMethodID: methodID,
		Subtotal:         order.Subtotal,
		ShippingCost:     order.ShippingCost,
		Tax:              order.Tax,
		Total:            order.Total,
		Currency:         order.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicQuoteComputed, cartID, AggregateTypeCheckout, SourceService, data)
	if err != nil {
		return fmt.Errorf("create checkout.quoted event: %w", err)
	}
	if err := p.kafka.Publish(ctx, TopicQuoteComputed, event); err != nil {
		return fmt.Errorf("publish checkout.quoted event: %w", err)
	}
	return nil
}

// PublishPaymentIntentCreated publishes a payment_intent_created event.
func (p *Producer) PublishPaymentIntentCreated(ctx context.Context, cartID, intentID string, amountMinor int64, currency string) error {
	data := PaymentIntentData{
		CartID:      cartID,
		IntentID:    intentID,
		AmountMinor: amountMinor,
		Currency:    currency,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentIntent, cartID, AggregateTypeCheckout, SourceService, data)
	if err != nil {
		return fmt.Errorf("create payment_intent_created event: %w", err)
	}
	if err := p.kafka.Publish(ctx, TopicPaymentIntent, event); err != nil {
		return fmt.Errorf("publish payment_intent_created event: %w", err)
	}
	return nil
}
