package repository

import (
	"context"
	"time"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
)

// CartRepository defines cart persistence operations.
type CartRepository interface {
	// Get retrieves a cart by its ID.
	Get(ctx context.Context, cartID string) (*domain.Cart, error)

	// Save persists a cart, overwriting any existing cart with the same ID.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes a cart by ID.
	Delete(ctx context.Context, cartID string) error
}

// LockRepository defines cart lock persistence. Acquire must be atomic with
// respect to concurrent attempts from different sessions: a single
// check-and-set statement against the store, never read-then-write.
type LockRepository interface {
	// Acquire locks the cart for session until the given time. An existing
	// valid lock held by the same session is refreshed; a valid lock held by
	// another session yields a CART_ALREADY_LOCKED error carrying the holder
	// and expiry.
	Acquire(ctx context.Context, cartID, session string, until time.Time) (*domain.CartLock, error)

	// Release removes the lock. With a session, only the holder or an
	// already-expired lock may be released; an empty session is an
	// administrative override. A still-valid foreign lock yields
	// UNAUTHORIZED_UNLOCK.
	Release(ctx context.Context, cartID, session string) error

	// Get returns the lock row for the cart, expired or not, or nil when no
	// row exists. Read-only: expired rows are never cleaned up here.
	Get(ctx context.Context, cartID string) (*domain.CartLock, error)
}
