package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caraseli02/moldovadirect-checkout/internal/domain"
	"github.com/caraseli02/moldovadirect-checkout/internal/event"
	"github.com/caraseli02/moldovadirect-checkout/internal/service"
	"github.com/caraseli02/moldovadirect-checkout/internal/shipping"
	apperrors "github.com/caraseli02/moldovadirect-checkout/pkg/errors"
	"github.com/caraseli02/moldovadirect-checkout/pkg/health"
	"github.com/caraseli02/moldovadirect-checkout/pkg/httpclient"
	pkgkafka "github.com/caraseli02/moldovadirect-checkout/pkg/kafka"
	"github.com/caraseli02/moldovadirect-checkout/pkg/middleware"
)

// ============================================================================
// Mocks
// ============================================================================

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

func (m *mockLockRepository) Acquire(ctx context.Context, cartID, sessionID string, until time.Time) (*domain.CartLock, error) {
	args := m.Called(ctx, cartID, sessionID, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartLock), args.Error(1)
}

func (m *mockLockRepository) Release(ctx context.Context, cartID, sessionID string) error {
	args := m.Called(ctx, cartID, sessionID)
	return args.Error(0)
}

func (m *mockLockRepository) Get(ctx context.Context, cartID string) (*domain.CartLock, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartLock), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

type testEnv struct {
	carts  *mockCartRepository
	locks  *mockLockRepository
	server http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	producer := event.NewProducer(
		pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger),
		logger,
	)

	carts := new(mockCartRepository)
	locks := new(mockLockRepository)

	cartSvc := service.NewCartService(carts, locks, logger)
	lockSvc := service.NewLockService(locks, carts, producer, logger)
	checkoutSvc := service.NewCheckoutService(
		carts,
		shipping.NewResolver(shipping.DefaultConfig()),
		producer,
		httpclient.New(httpclient.DefaultConfig()),
		"http://payments.invalid",
		logger,
	)

	router := NewRouter(cartSvc, lockSvc, checkoutSvc, health.NewHandler(), middleware.DefaultCORSConfig(), logger)

	return &testEnv{carts: carts, locks: locks, server: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]any    `json:"details"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func testCart(cartID string) *domain.Cart {
	return &domain.Cart{
		ID:       cartID,
		Currency: "EUR",
		Items: []domain.CartItem{
			{
				ProductID: "prod-1",
				Product: domain.ProductSnapshot{
					ID:       "prod-1",
					SKU:      "WINE-001",
					Name:     "Rara Neagra",
					Price:    29.99,
					WeightKg: 1.5,
				},
				Quantity: 2,
			},
		},
		UpdatedAt: time.Now().UTC(),
	}
}

// ============================================================================
// Lock endpoints
// ============================================================================

func TestAcquireLock_Success(t *testing.T) {
	env := newTestEnv(t)
	until := time.Now().Add(30 * time.Minute).UTC()

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)
	env.locks.On("Acquire", mock.Anything, "cart-42", "checkout_a", mock.Anything).
		Return(&domain.CartLock{
			CartID:          "cart-42",
			LockedAt:        time.Now().UTC(),
			LockedUntil:     until,
			LockedBySession: "checkout_a",
		}, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/carts/cart-42/lock",
		map[string]any{"checkout_session_id": "checkout_a", "duration_minutes": 30})

	require.Equal(t, http.StatusOK, rec.Code)
	env.locks.AssertExpectations(t)

	var lock domain.CartLock
	res := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(res.Data, &lock))
	assert.Equal(t, "cart-42", lock.CartID)
	assert.Equal(t, "checkout_a", lock.LockedBySession)
}

func TestAcquireLock_Conflict(t *testing.T) {
	env := newTestEnv(t)
	until := time.Now().Add(20 * time.Minute).UTC()

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)
	env.locks.On("Acquire", mock.Anything, "cart-42", "checkout_b", mock.Anything).
		Return(nil, apperrors.CartAlreadyLocked("cart-42", "checkout_a", until))

	rec := env.do(t, http.MethodPost, "/api/v1/carts/cart-42/lock",
		map[string]any{"checkout_session_id": "checkout_b"})

	require.Equal(t, http.StatusConflict, rec.Code)

	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "CART_ALREADY_LOCKED", res.Error.Code)
	assert.Equal(t, "checkout_a", res.Error.Details["locked_by_session"])
	assert.NotEmpty(t, res.Error.Details["locked_until"])
}

func TestAcquireLock_CartNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.carts.On("Get", mock.Anything, "ghost").Return(nil, apperrors.CartNotFound("ghost"))

	rec := env.do(t, http.MethodPost, "/api/v1/carts/ghost/lock",
		map[string]any{"checkout_session_id": "checkout_a"})

	require.Equal(t, http.StatusNotFound, rec.Code)
	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "CART_NOT_FOUND", res.Error.Code)
	env.locks.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquireLock_MissingSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/carts/cart-42/lock", map[string]any{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
	assert.Contains(t, res.Error.Fields, "CheckoutSessionID")
}

func TestAcquireLock_SessionFromHeader(t *testing.T) {
	env := newTestEnv(t)

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)
	env.locks.On("Acquire", mock.Anything, "cart-42", "checkout_hdr", mock.Anything).
		Return(&domain.CartLock{CartID: "cart-42", LockedBySession: "checkout_hdr"}, nil)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/cart-42/lock", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "checkout_hdr")

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env.locks.AssertExpectations(t)
}

func TestReleaseLock_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)
	env.locks.On("Release", mock.Anything, "cart-42", "checkout_b").
		Return(apperrors.UnauthorizedUnlock("cart-42", "checkout_a"))

	rec := env.do(t, http.MethodDelete, "/api/v1/carts/cart-42/lock",
		map[string]any{"checkout_session_id": "checkout_b"})

	require.Equal(t, http.StatusForbidden, rec.Code)
	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "UNAUTHORIZED_UNLOCK", res.Error.Code)
}

func TestReleaseLock_ByHolder(t *testing.T) {
	env := newTestEnv(t)

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)
	env.locks.On("Release", mock.Anything, "cart-42", "checkout_a").Return(nil)

	rec := env.do(t, http.MethodDelete, "/api/v1/carts/cart-42/lock",
		map[string]any{"checkout_session_id": "checkout_a"})

	require.Equal(t, http.StatusOK, rec.Code)
	env.locks.AssertExpectations(t)
}

func TestLockStatus_Locked(t *testing.T) {
	env := newTestEnv(t)
	lockedAt := time.Now().Add(-5 * time.Minute).UTC()
	until := time.Now().Add(25 * time.Minute).UTC()

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)
	env.locks.On("Get", mock.Anything, "cart-42").Return(&domain.CartLock{
		CartID:          "cart-42",
		LockedAt:        lockedAt,
		LockedUntil:     until,
		LockedBySession: "checkout_a",
	}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/carts/cart-42/lock", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var status domain.LockStatus
	res := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(res.Data, &status))
	assert.True(t, status.IsLocked)
	assert.Equal(t, "checkout_a", status.LockedBySession)
	require.NotNil(t, status.LockedUntil)
}

func TestLockStatus_Unlocked(t *testing.T) {
	env := newTestEnv(t)

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)
	env.locks.On("Get", mock.Anything, "cart-42").Return(nil, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/carts/cart-42/lock", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var status domain.LockStatus
	res := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(res.Data, &status))
	assert.False(t, status.IsLocked)
	assert.Nil(t, status.LockedUntil)
}

// ============================================================================
// Cart endpoints
// ============================================================================

func TestReplaceCart_RejectedWhileLocked(t *testing.T) {
	env := newTestEnv(t)
	until := time.Now().Add(10 * time.Minute).UTC()

	env.locks.On("Get", mock.Anything, "cart-42").Return(&domain.CartLock{
		CartID:          "cart-42",
		LockedUntil:     until,
		LockedBySession: "checkout_a",
	}, nil)

	rec := env.do(t, http.MethodPut, "/api/v1/carts/cart-42", ReplaceCartRequest{
		Items: []CartItemRequest{
			{
				ProductID: "prod-1",
				Product:   ProductRequest{ID: "prod-1", SKU: "WINE-001", Name: "Rara Neagra", Price: 29.99},
				Quantity:  1,
			},
		},
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "CART_LOCKED", res.Error.Code)
	env.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReplaceCart_Success(t *testing.T) {
	env := newTestEnv(t)

	env.locks.On("Get", mock.Anything, "cart-42").Return(nil, nil)
	env.carts.On("Save", mock.Anything, mock.Anything).Return(nil)

	rec := env.do(t, http.MethodPut, "/api/v1/carts/cart-42", ReplaceCartRequest{
		Items: []CartItemRequest{
			{
				ProductID: "prod-1",
				Product:   ProductRequest{ID: "prod-1", SKU: "WINE-001", Name: "Rara Neagra", Price: 29.99},
				Quantity:  2,
			},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var cart domain.Cart
	res := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(res.Data, &cart))
	assert.Equal(t, "cart-42", cart.ID)
	assert.Equal(t, "EUR", cart.Currency)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestGetCart_NotFound(t *testing.T) {
	env := newTestEnv(t)

	env.carts.On("Get", mock.Anything, "ghost").Return(nil, apperrors.CartNotFound("ghost"))

	rec := env.do(t, http.MethodGet, "/api/v1/carts/ghost", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "CART_NOT_FOUND", res.Error.Code)
}

// ============================================================================
// Checkout endpoints
// ============================================================================

func TestQuote_WorkedExample(t *testing.T) {
	env := newTestEnv(t)

	cart := testCart("cart-42")
	cart.Items = append(cart.Items, domain.CartItem{
		ProductID: "prod-2",
		Product:   domain.ProductSnapshot{ID: "prod-2", SKU: "WINE-002", Name: "Feteasca", Price: 49.99, WeightKg: 1.5},
		Quantity:  1,
	})
	env.carts.On("Get", mock.Anything, "cart-42").Return(cart, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout/quote",
		map[string]any{"cart_id": "cart-42", "shipping_method_id": "standard"})

	require.Equal(t, http.StatusOK, rec.Code)

	var quote service.Quote
	res := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(res.Data, &quote))
	assert.Equal(t, 109.97, quote.Order.Subtotal)
	assert.Equal(t, 23.09, quote.Order.Tax)
	assert.Equal(t, 139.05, quote.Order.Total)
	assert.NotEmpty(t, quote.AvailableMethods)
}

func TestQuote_MissingCartID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout/quote", map[string]any{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
}

func TestShippingMethods_QueryParams(t *testing.T) {
	env := newTestEnv(t)

	env.carts.On("Get", mock.Anything, "cart-42").Return(testCart("cart-42"), nil)

	rec := env.do(t, http.MethodGet, "/api/v1/checkout/shipping-methods?cart_id=cart-42&country=ES", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var methods []domain.ShippingMethod
	res := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(res.Data, &methods))
	require.Len(t, methods, 3)
	assert.Equal(t, "free", methods[0].ID)
	assert.Equal(t, "standard", methods[1].ID)
	assert.Equal(t, "express", methods[2].ID)
}

func TestShippingMethods_MissingCartID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/checkout/shipping-methods", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decodeEnvelope(t, rec)
	require.NotNil(t, res.Error)
	assert.Equal(t, "INVALID_INPUT", res.Error.Code)
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
