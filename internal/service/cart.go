package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/internal/repository"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
)

// CartService exposes cart reads and lock-guarded mutations. A cart under a
// live checkout lock cannot be modified or cleared: that is what the lock is
// for.
type CartService struct {
	carts  repository.CartRepository
	locks  repository.LockRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewCartService creates a cart service.
func NewCartService(carts repository.CartRepository, locks repository.LockRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:  carts,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the cart by ID.
func (s *CartService) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}
	return s.carts.Get(ctx, cartID)
}

// Replace overwrites the cart's items. Fails with CART_LOCKED while a live
// checkout lock is held, regardless of holder: mutation during the payment
// window is never allowed, not even for the locking session's own tab.
func (s *CartService) Replace(ctx context.Context, cartID string, items []domain.CartItem, currency string) (*domain.Cart, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}
	if err := s.ensureNotLocked(ctx, cartID); err != nil {
		return nil, err
	}

	if currency == "" {
		currency = domain.DefaultCurrency
	}
	cart := &domain.Cart{
		ID:        cartID,
		Items:     items,
		Currency:  currency,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart replaced",
		slog.String("cart_id", cartID),
		slog.Int("items", len(items)),
	)
	return cart, nil
}

// Delete removes the cart. Fails with CART_LOCKED while a live lock is held.
func (s *CartService) Delete(ctx context.Context, cartID string) error {
	if cartID == "" {
		return apperrors.InvalidInput("cart id is required")
	}
	if _, err := s.carts.Get(ctx, cartID); err != nil {
		return err
	}
	if err := s.ensureNotLocked(ctx, cartID); err != nil {
		return err
	}
	return s.carts.Delete(ctx, cartID)
}

func (s *CartService) ensureNotLocked(ctx context.Context, cartID string) error {
	lock, err := s.locks.Get(ctx, cartID)
	if err != nil {
		return err
	}
	if lock != nil && !lock.Expired(s.now()) {
		return apperrors.CartLocked(cartID, lock.LockedBySession, lock.LockedUntil)
	}
	return nil
}
