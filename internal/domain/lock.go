package domain

import "time"

// CartLock is exclusive access to a cart during checkout. A lock past
// LockedUntil is treated as absent for acquisition, but its row may still
// exist until explicitly cleared: expired and deleted are distinct states.
type CartLock struct {
	CartID          string    `json:"cart_id"`
	LockedAt        time.Time `json:"locked_at"`
	LockedUntil     time.Time `json:"locked_until"`
	LockedBySession string    `json:"locked_by_session"`
}

// Expired reports whether the lock's validity window has passed at now.
func (l *CartLock) Expired(now time.Time) bool {
	return l.LockedUntil.Before(now)
}

// HeldBy reports whether the lock is currently valid and held by session.
func (l *CartLock) HeldBy(session string, now time.Time) bool {
	return !l.Expired(now) && l.LockedBySession == session
}

// LockStatus is the read-only projection returned by the status query.
// IsLocked is a pure comparison of LockedUntil against CurrentTime; the
// query never cleans up expired rows as a side effect.
type LockStatus struct {
	CartID          string     `json:"cart_id"`
	IsLocked        bool       `json:"is_locked"`
	LockedAt        *time.Time `json:"locked_at,omitempty"`
	LockedUntil     *time.Time `json:"locked_until,omitempty"`
	LockedBySession string     `json:"locked_by_session,omitempty"`
	CurrentTime     time.Time  `json:"current_time"`
}
