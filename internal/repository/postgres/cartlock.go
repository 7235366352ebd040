package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/pkg/database"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
)

// LockRepository implements repository.LockRepository using PostgreSQL.
// Acquisition is a single upsert statement so the check-and-set is atomic at
// the row level; two sessions racing on the same cart can never both win.
type LockRepository struct {
	pool database.DBTX
}

// NewLockRepository creates a PostgreSQL-backed lock repository.
func NewLockRepository(pool database.DBTX) *LockRepository {
	return &LockRepository{pool: pool}
}

// acquireQuery inserts a lock row, or steals/refreshes an existing one only
// when it is expired or already held by the same session. The WHERE clause on
// the conflict update makes the statement return zero rows on a live foreign
// lock, which is the conflict signal.
const acquireQuery = `
	INSERT INTO cart_locks (cart_id, locked_at, locked_until, locked_by_session)
	VALUES ($1, NOW(), $2, $3)
	ON CONFLICT (cart_id) DO UPDATE
	SET locked_at = NOW(), locked_until = $2, locked_by_session = $3
	WHERE cart_locks.locked_until < NOW() OR cart_locks.locked_by_session = $3
	RETURNING cart_id, locked_at, locked_until, locked_by_session`

// Acquire locks the cart for session until the given time.
func (r *LockRepository) Acquire(ctx context.Context, cartID, session string, until time.Time) (*domain.CartLock, error) {
	var lock domain.CartLock
	err := r.pool.QueryRow(ctx, acquireQuery, cartID, until, session).Scan(
		&lock.CartID,
		&lock.LockedAt,
		&lock.LockedUntil,
		&lock.LockedBySession,
	)
	if err == nil {
		return &lock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("acquire cart lock: %w", err)
	}

	// Zero rows: a live lock held by another session. Fetch the holder for
	// the conflict payload. The row can expire or vanish between the two
	// statements; in that narrow window the caller simply retries.
	holder, err := r.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("fetch conflicting lock: %w", err)
	}
	if holder == nil || holder.Expired(time.Now()) {
		return nil, apperrors.Conflict(fmt.Sprintf("cart %s lock contention, retry", cartID))
	}
	return nil, apperrors.CartAlreadyLocked(cartID, holder.LockedBySession, holder.LockedUntil)
}

// releaseHolderQuery deletes the lock only when it is expired or held by the
// given session, mirroring the acquisition condition.
const releaseHolderQuery = `
	DELETE FROM cart_locks
	WHERE cart_id = $1 AND (locked_until < NOW() OR locked_by_session = $2)`

// releaseAnyQuery is the administrative override: no holder check.
const releaseAnyQuery = `DELETE FROM cart_locks WHERE cart_id = $1`

// Release removes the lock. An empty session is an administrative override.
// Releasing a cart that has no lock row succeeds: unlock is idempotent.
func (r *LockRepository) Release(ctx context.Context, cartID, session string) error {
	if session == "" {
		if _, err := r.pool.Exec(ctx, releaseAnyQuery, cartID); err != nil {
			return fmt.Errorf("release cart lock: %w", err)
		}
		return nil
	}

	tag, err := r.pool.Exec(ctx, releaseHolderQuery, cartID, session)
	if err != nil {
		return fmt.Errorf("release cart lock: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing deleted: either no lock exists (fine), or a different session
	// still holds a valid one.
	holder, err := r.Get(ctx, cartID)
	if err != nil {
		return fmt.Errorf("fetch conflicting lock: %w", err)
	}
	if holder == nil || holder.Expired(time.Now()) {
		return nil
	}
	return apperrors.UnauthorizedUnlock(cartID, holder.LockedBySession)
}

const getQuery = `
	SELECT cart_id, locked_at, locked_until, locked_by_session
	FROM cart_locks
	WHERE cart_id = $1`

// Get returns the lock row for the cart, expired or not, or nil when no row
// exists. It never mutates state.
func (r *LockRepository) Get(ctx context.Context, cartID string) (*domain.CartLock, error) {
	var lock domain.CartLock
	err := r.pool.QueryRow(ctx, getQuery, cartID).Scan(
		&lock.CartID,
		&lock.LockedAt,
		&lock.LockedUntil,
		&lock.LockedBySession,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart lock: %w", err)
	}
	return &lock, nil
}
