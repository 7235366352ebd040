package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/internal/event"
	pkgkafka "github.com/caraseli02/moldovadirect-checkout/pkg/kafka"
)

// --- Mock repositories ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type mockLockRepository struct {
	mock.Mock
}

func (m *mockLockRepository) Acquire(ctx context.Context, cartID, session string, until time.Time) (*domain.CartLock, error) {
	args := m.Called(ctx, cartID, session, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartLock), args.Error(1)
}

func (m *mockLockRepository) Release(ctx context.Context, cartID, session string) error {
	args := m.Called(ctx, cartID, session)
	return args.Error(0)
}

func (m *mockLockRepository) Get(ctx context.Context, cartID string) (*domain.CartLock, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartLock), args.Error(1)
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer returns a producer pointed at nothing; publishes fail and
// the services log and continue.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func cartWithItems(cartID string, items ...domain.CartItem) *domain.Cart {
	return &domain.Cart{
		ID:        cartID,
		Items:     items,
		Currency:  "EUR",
		UpdatedAt: time.Now().UTC(),
	}
}

func testItem(price float64, qty int) domain.CartItem {
	return domain.CartItem{
		ProductID: "prod-1",
		Product: domain.ProductSnapshot{
			ID:       "prod-1",
			SKU:      "WINE-001",
			Name:     "Rara Neagra",
			Price:    price,
			WeightKg: 1.5,
		},
		Quantity: qty,
	}
}
