package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/internal/event"
	"github.com/caraseli02/moldovadirect-checkout/internal/repository"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
)

// Lock duration bounds in minutes. Callers choose the window; clamping keeps
// an abandoned checkout from holding a cart longer than an hour.
const (
	MinLockMinutes     = 1
	MaxLockMinutes     = 60
	DefaultLockMinutes = 30
)

// LockService coordinates the cart checkout lock: acquire, release, and a
// side-effect-free status query. All conflict information flows through the
// structured AppError codes unchanged so callers can pick a retry strategy.
type LockService struct {
	locks    repository.LockRepository
	carts    repository.CartRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewLockService creates the lock coordinator.
func NewLockService(
	locks repository.LockRepository,
	carts repository.CartRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *LockService {
	return &LockService{
		locks:    locks,
		carts:    carts,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// ClampDuration bounds a requested lock duration to [MinLockMinutes,
// MaxLockMinutes]; zero or negative requests fall back to the default.
func ClampDuration(minutes int) int {
	switch {
	case minutes <= 0:
		return DefaultLockMinutes
	case minutes < MinLockMinutes:
		return MinLockMinutes
	case minutes > MaxLockMinutes:
		return MaxLockMinutes
	default:
		return minutes
	}
}

// Lock acquires an exclusive lock on the cart for the checkout session.
// Re-entry by the current holder refreshes the expiry and succeeds. A live
// lock held by another session fails with CART_ALREADY_LOCKED; a missing
// cart fails with CART_NOT_FOUND.
func (s *LockService) Lock(ctx context.Context, cartID, sessionID string, durationMinutes int) (*domain.CartLock, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}
	if sessionID == "" {
		return nil, apperrors.InvalidInput("checkout session id is required")
	}

	// The cart must exist before a lock makes sense. The existence check is
	// separate from the acquisition CAS; only the check-and-set needs
	// atomicity.
	if _, err := s.carts.Get(ctx, cartID); err != nil {
		return nil, err
	}

	minutes := ClampDuration(durationMinutes)
	until := s.now().Add(time.Duration(minutes) * time.Minute)

	lock, err := s.locks.Acquire(ctx, cartID, sessionID, until)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart locked",
		slog.String("cart_id", cartID),
		slog.String("session_id", sessionID),
		slog.Time("locked_until", lock.LockedUntil),
	)

	if err := s.producer.PublishCartLocked(ctx, lock); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.locked event",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}

	return lock, nil
}

// Unlock releases the cart lock. An empty session is an administrative
// override; otherwise only the holder (or anyone, once the lock expired) may
// release. A still-valid foreign lock fails with UNAUTHORIZED_UNLOCK.
func (s *LockService) Unlock(ctx context.Context, cartID, sessionID string) error {
	if cartID == "" {
		return apperrors.InvalidInput("cart id is required")
	}

	if _, err := s.carts.Get(ctx, cartID); err != nil {
		return err
	}

	if err := s.locks.Release(ctx, cartID, sessionID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "cart unlocked",
		slog.String("cart_id", cartID),
		slog.String("session_id", sessionID),
		slog.Bool("override", sessionID == ""),
	)

	if err := s.producer.PublishCartUnlocked(ctx, cartID, sessionID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.unlocked event",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// Status reports the lock state of the cart. It is a pure projection of the
// stored row against the current time: expired rows read as unlocked and are
// never cleaned up here.
func (s *LockService) Status(ctx context.Context, cartID string) (*domain.LockStatus, error) {
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}

	if _, err := s.carts.Get(ctx, cartID); err != nil {
		return nil, err
	}

	now := s.now()
	status := &domain.LockStatus{
		CartID:      cartID,
		CurrentTime: now,
	}

	lock, err := s.locks.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if lock != nil {
		status.IsLocked = !lock.Expired(now)
		status.LockedAt = &lock.LockedAt
		status.LockedUntil = &lock.LockedUntil
		status.LockedBySession = lock.LockedBySession
	}

	return status, nil
}
