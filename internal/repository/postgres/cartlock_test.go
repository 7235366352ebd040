package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
)

func setupMock(t *testing.T) (pgxmock.PgxPoolIface, *LockRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewLockRepository(mock)
}

func lockRow(cartID, session string, at, until time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"cart_id", "locked_at", "locked_until", "locked_by_session"}).
		AddRow(cartID, at, until, session)
}

func TestAcquire_Success(t *testing.T) {
	mock, repo := setupMock(t)

	now := time.Now().UTC()
	until := now.Add(30 * time.Minute)
	mock.ExpectQuery("INSERT INTO cart_locks").
		WithArgs("cart-42", until, "checkout_a").
		WillReturnRows(lockRow("cart-42", "checkout_a", now, until))

	lock, err := repo.Acquire(context.Background(), "cart-42", "checkout_a", until)
	require.NoError(t, err)
	assert.Equal(t, "cart-42", lock.CartID)
	assert.Equal(t, "checkout_a", lock.LockedBySession)
	assert.Equal(t, until, lock.LockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_ConflictReportsHolder(t *testing.T) {
	mock, repo := setupMock(t)

	now := time.Now().UTC()
	holderUntil := now.Add(20 * time.Minute)
	until := now.Add(30 * time.Minute)

	// CAS returns zero rows on a live foreign lock, then the holder is read.
	mock.ExpectQuery("INSERT INTO cart_locks").
		WithArgs("cart-42", until, "checkout_b").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT cart_id, locked_at, locked_until, locked_by_session").
		WithArgs("cart-42").
		WillReturnRows(lockRow("cart-42", "checkout_a", now.Add(-time.Minute), holderUntil))

	lock, err := repo.Acquire(context.Background(), "cart-42", "checkout_b", until)
	assert.Nil(t, lock)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CART_ALREADY_LOCKED", appErr.Code)
	assert.Equal(t, "checkout_a", appErr.Details["locked_by_session"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_ByHolder(t *testing.T) {
	mock, repo := setupMock(t)

	mock.ExpectExec("DELETE FROM cart_locks").
		WithArgs("cart-42", "checkout_a").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Release(context.Background(), "cart-42", "checkout_a")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_UnauthorizedForeignSession(t *testing.T) {
	mock, repo := setupMock(t)

	now := time.Now().UTC()
	mock.ExpectExec("DELETE FROM cart_locks").
		WithArgs("cart-42", "checkout_b").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("SELECT cart_id, locked_at, locked_until, locked_by_session").
		WithArgs("cart-42").
		WillReturnRows(lockRow("cart-42", "checkout_a", now, now.Add(10*time.Minute)))

	err := repo.Release(context.Background(), "cart-42", "checkout_b")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED_UNLOCK", appErr.Code)
	assert.Equal(t, "checkout_a", appErr.Details["locked_by_session"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_NoLockRowIsIdempotent(t *testing.T) {
	mock, repo := setupMock(t)

	mock.ExpectExec("DELETE FROM cart_locks").
		WithArgs("cart-42", "checkout_a").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("SELECT cart_id, locked_at, locked_until, locked_by_session").
		WithArgs("cart-42").
		WillReturnError(pgx.ErrNoRows)

	err := repo.Release(context.Background(), "cart-42", "checkout_a")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_AdministrativeOverride(t *testing.T) {
	mock, repo := setupMock(t)

	mock.ExpectExec("DELETE FROM cart_locks WHERE cart_id = \\$1").
		WithArgs("cart-42").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Release(context.Background(), "cart-42", "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ReturnsNilWhenAbsent(t *testing.T) {
	mock, repo := setupMock(t)

	mock.ExpectQuery("SELECT cart_id, locked_at, locked_until, locked_by_session").
		WithArgs("cart-42").
		WillReturnError(pgx.ErrNoRows)

	lock, err := repo.Get(context.Background(), "cart-42")
	assert.NoError(t, err)
	assert.Nil(t, lock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ReturnsExpiredRow(t *testing.T) {
	mock, repo := setupMock(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT cart_id, locked_at, locked_until, locked_by_session").
		WithArgs("cart-42").
		WillReturnRows(lockRow("cart-42", "checkout_a", now.Add(-time.Hour), now.Add(-30*time.Minute)))

	lock, err := repo.Get(context.Background(), "cart-42")
	require.NoError(t, err)
	require.NotNil(t, lock)
	// expired rows are still returned; expiry is the caller's projection
	assert.True(t, lock.Expired(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
