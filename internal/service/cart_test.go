package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
)

func newCartService(carts *mockCartRepository, locks *mockLockRepository) *CartService {
	return NewCartService(carts, locks, newTestLogger())
}

func TestCartReplace_Success(t *testing.T) {
	carts := new(mockCartRepository)
	locks := new(mockLockRepository)
	svc := newCartService(carts, locks)
	ctx := context.Background()

	locks.On("Get", ctx, "cart-42").Return(nil, nil)
	carts.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.Replace(ctx, "cart-42", []domain.CartItem{testItem(25.99, 2)}, "")
	require.NoError(t, err)
	assert.Equal(t, "cart-42", cart.ID)
	assert.Equal(t, "EUR", cart.Currency)
	assert.Len(t, cart.Items, 1)
	carts.AssertExpectations(t)
}

func TestCartReplace_RejectedWhileLocked(t *testing.T) {
	carts := new(mockCartRepository)
	locks := new(mockLockRepository)
	svc := newCartService(carts, locks)
	ctx := context.Background()

	now := time.Now()
	locks.On("Get", ctx, "cart-42").Return(&domain.CartLock{
		CartID:          "cart-42",
		LockedAt:        now,
		LockedUntil:     now.Add(10 * time.Minute),
		LockedBySession: "checkout_a",
	}, nil)

	cart, err := svc.Replace(ctx, "cart-42", []domain.CartItem{testItem(25.99, 1)}, "EUR")
	assert.Nil(t, cart)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CART_LOCKED", appErr.Code)
	assert.Equal(t, "checkout_a", appErr.Details["locked_by_session"])
	carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartReplace_ExpiredLockDoesNotBlock(t *testing.T) {
	carts := new(mockCartRepository)
	locks := new(mockLockRepository)
	svc := newCartService(carts, locks)
	ctx := context.Background()

	now := time.Now()
	locks.On("Get", ctx, "cart-42").Return(&domain.CartLock{
		CartID:          "cart-42",
		LockedAt:        now.Add(-time.Hour),
		LockedUntil:     now.Add(-time.Minute),
		LockedBySession: "checkout_a",
	}, nil)
	carts.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	_, err := svc.Replace(ctx, "cart-42", []domain.CartItem{testItem(9.99, 1)}, "EUR")
	assert.NoError(t, err)
	carts.AssertExpectations(t)
}

func TestCartDelete_RejectedWhileLocked(t *testing.T) {
	carts := new(mockCartRepository)
	locks := new(mockLockRepository)
	svc := newCartService(carts, locks)
	ctx := context.Background()

	now := time.Now()
	carts.On("Get", ctx, "cart-42").Return(cartWithItems("cart-42", testItem(10, 1)), nil)
	locks.On("Get", ctx, "cart-42").Return(&domain.CartLock{
		CartID:          "cart-42",
		LockedUntil:     now.Add(5 * time.Minute),
		LockedBySession: "checkout_a",
	}, nil)

	err := svc.Delete(ctx, "cart-42")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CART_LOCKED", appErr.Code)
	carts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCartGet_PropagatesNotFound(t *testing.T) {
	carts := new(mockCartRepository)
	svc := newCartService(carts, new(mockLockRepository))
	ctx := context.Background()

	carts.On("Get", ctx, "missing").Return(nil, apperrors.CartNotFound("missing"))

	cart, err := svc.Get(ctx, "missing")
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
