package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newClient(t *testing.T, baseURL, token string) *client.Client {
	t.Helper()
	c, err := client.New(baseURL, client.Options{Token: token, APIKey: testAPIKey, Timeout: 10 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func shipping() checkout.ShippingForm {
	return checkout.ShippingForm{
		FullName:     "Ada Lovelace",
		Phone:        "+44 20 7946 0000",
		Email:        "ada@example.com",
		AddressLine1: "12 St James's Square",
		City:         "London",
		State:        "Greater London",
		PostalCode:   "SW1Y 4JH",
		Country:      "GB",
	}
}

// addToCart snapshots the live product into the cart.
func addToCart(t *testing.T, ctx context.Context, api *client.Client, store *cart.Store, productID string, qty int) {
	t.Helper()
	p, err := api.GetProduct(ctx, productID)
	require.NoError(t, err)
	_, err = store.AddItem(cart.ItemInput{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  qty,
		Image:     p.ImageURL,
		MaxStock:  p.Stock,
	})
	require.NoError(t, err)
}

func newCoordinator(t *testing.T, ctx context.Context, api *client.Client, store *cart.Store, deliveryID string, payment model.PaymentMethod) *checkout.Coordinator {
	t.Helper()
	methods, err := api.ListDeliveryMethods(ctx)
	require.NoError(t, err)

	coord := checkout.NewCoordinator(store, api, testRules(), validation.New(), zerolog.Nop())
	coord.SetShipping(shipping())
	for _, m := range methods {
		if m.ID == deliveryID {
			coord.SelectDelivery(m)
		}
	}
	coord.SelectPayment(payment)
	if payment == model.PaymentMethodCard {
		coord.SetCard(checkout.CardDetails{Holder: "Ada Lovelace", Number: "4111111111111111", Expiry: "12/49", CVV: "123"})
	}
	return coord
}

func newCart(t *testing.T) *cart.Store {
	t.Helper()
	store := cart.New(context.Background(), cart.NewMemoryStorage())
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestCheckoutFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	srv := StartServer(t, testDB)
	ctx := context.Background()

	t.Run("card checkout commits order and decrements stock", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)
		api := newClient(t, srv.URL, "")
		store := newCart(t)

		addToCart(t, ctx, api, store, "P001", 2)
		coord := newCoordinator(t, ctx, api, store, "express", model.PaymentMethodCard)

		confirmation, err := coord.Submit(ctx)
		require.NoError(t, err)

		assert.True(t, confirmation.Total.Equal(dec("117.99")), "total %s", confirmation.Total)
		assert.True(t, confirmation.TaxAmount.Equal(dec("8.00")))
		assert.Equal(t, model.OrderStatusPending, confirmation.Status)
		assert.Equal(t, "initiated", confirmation.PaymentStatus)
		assert.Equal(t, model.OrderNumber(confirmation.OrderID), confirmation.OrderNumber)
		assert.True(t, strings.HasPrefix(confirmation.OrderNumber, "ORD-"))
		assert.True(t, store.State().IsEmpty(), "the cart is cleared after the order")

		p, err := api.GetProduct(ctx, "P001")
		require.NoError(t, err)
		assert.Equal(t, 3, p.Stock)

		order, err := api.GetOrder(ctx, confirmation.OrderID)
		require.NoError(t, err)
		assert.Nil(t, order.UserID, "guest order")
		assert.Equal(t, "express", order.DeliveryMethod.ID)
		assert.Equal(t, "Ada Lovelace", order.ShippingAddress.FullName)
		require.Len(t, order.Items, 1)
		assert.Equal(t, "Classic Widget", order.Items[0].ProductName)
		require.NotNil(t, order.Payment)
		assert.True(t, order.Payment.Amount.Equal(dec("117.99")))
		assert.Equal(t, string(model.PaymentMethodCard), order.Payment.Provider)

		var events int
		require.NoError(t, testDB.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM outbox_events WHERE aggregate_id = $1 AND event_type = $2`,
			confirmation.OrderID, model.EventOrderCreated).Scan(&events))
		assert.Equal(t, 1, events)
	})

	t.Run("cash on delivery adds the COD fee", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)
		api := newClient(t, srv.URL, "")
		store := newCart(t)

		addToCart(t, ctx, api, store, "P002", 1)
		coord := newCoordinator(t, ctx, api, store, "standard", model.PaymentMethodCOD)

		confirmation, err := coord.Submit(ctx)
		require.NoError(t, err)

		require.NotNil(t, confirmation.CODFee)
		assert.True(t, confirmation.CODFee.Equal(dec("2")))
		assert.True(t, confirmation.Total.Equal(dec("23.60")), "total %s", confirmation.Total)
	})

	t.Run("authenticated orders record the user", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)

		userID := uuid.New()
		now := time.Now()
		token, err := auth.NewVerifier(testJWTSecret).Sign(auth.Claims{
			UserID: userID, Email: "ada@example.com", Role: "customer", IssuedAt: now, ExpiresAt: now.Add(time.Hour),
		})
		require.NoError(t, err)

		api := newClient(t, srv.URL, token)
		store := newCart(t)
		addToCart(t, ctx, api, store, "P002", 1)

		confirmation, err := newCoordinator(t, ctx, api, store, "standard", model.PaymentMethodBankTransfer).Submit(ctx)
		require.NoError(t, err)

		order, err := api.GetOrder(ctx, confirmation.OrderID)
		require.NoError(t, err)
		require.NotNil(t, order.UserID)
		assert.Equal(t, userID, *order.UserID)
	})

	t.Run("stale cart stock is rejected and the cart kept", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)
		api := newClient(t, srv.URL, "")

		first, second := newCart(t), newCart(t)
		addToCart(t, ctx, api, first, "P003", 1)
		addToCart(t, ctx, api, second, "P003", 1)

		_, err := newCoordinator(t, ctx, api, first, "standard", model.PaymentMethodCOD).Submit(ctx)
		require.NoError(t, err)

		coord := newCoordinator(t, ctx, api, second, "standard", model.PaymentMethodCOD)
		_, err = coord.Submit(ctx)

		assert.Equal(t, model.ErrCodeInsufficientStock, model.ErrorCode(err))
		assert.Contains(t, err.Error(), "0 available")
		assert.Equal(t, 1, second.State().TotalItems)
		status, _ := coord.Status()
		assert.Equal(t, checkout.StatusFailed, status)
	})

	t.Run("tampered prices are rejected", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)
		api := newClient(t, srv.URL, "")
		store := newCart(t)

		_, err := store.AddItem(cart.ItemInput{ProductID: "P001", Name: "Classic Widget", Price: dec("1.00"), Quantity: 1, MaxStock: 5})
		require.NoError(t, err)

		_, err = newCoordinator(t, ctx, api, store, "standard", model.PaymentMethodCOD).Submit(ctx)

		assert.Equal(t, model.ErrCodeTotalsMismatch, model.ErrorCode(err))
		p, err := api.GetProduct(ctx, "P001")
		require.NoError(t, err)
		assert.Equal(t, 5, p.Stock)
	})
}

func TestOrderStatusAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	srv := StartServer(t, testDB)
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	api := newClient(t, srv.URL, "")
	store := newCart(t)
	addToCart(t, ctx, api, store, "P002", 1)
	confirmation, err := newCoordinator(t, ctx, api, store, "standard", model.PaymentMethodCard).Submit(ctx)
	require.NoError(t, err)
	orderID := confirmation.OrderID

	_, err = api.UpdateStatus(ctx, orderID, model.OrderStatusShipped)
	assert.Equal(t, model.ErrCodeInvalidStatusTransition, model.ErrorCode(err), "pending orders cannot ship")

	change, err := api.UpdateStatus(ctx, orderID, model.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, change.From)

	change, err = api.UpdateStatus(ctx, orderID, model.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, change.From)
	assert.Equal(t, model.OrderStatusShipped, change.To)

	_, err = api.UpdateStatus(ctx, orderID, model.OrderStatusCancelled)
	assert.Equal(t, model.ErrCodeInvalidStatusTransition, model.ErrorCode(err), "shipped is terminal")

	_, err = api.UpdateStatus(ctx, uuid.New(), model.OrderStatusPaid)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	order, err := api.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, order.Status)

	var changes int
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE aggregate_id = $1 AND event_type = $2`,
		orderID, model.EventOrderStatusChanged).Scan(&changes))
	assert.Equal(t, 2, changes)

	t.Run("staff endpoints require the API key", func(t *testing.T) {
		anonymous, err := client.New(srv.URL, client.Options{}, zerolog.Nop())
		require.NoError(t, err)

		_, err = anonymous.UpdateStatus(ctx, orderID, model.OrderStatusCancelled)
		assert.Equal(t, model.ErrCodeUnauthorised, model.ErrorCode(err))
	})

	t.Run("forged tokens are rejected", func(t *testing.T) {
		forged, err := auth.NewVerifier("not-the-secret").Sign(auth.Claims{
			UserID: uuid.New(), IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		_, err = newClient(t, srv.URL, forged).GetOrder(ctx, orderID)
		assert.Equal(t, model.ErrCodeUnauthorised, model.ErrorCode(err))
	})
}

func TestCatalogueAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	srv := StartServer(t, testDB)
	ctx := context.Background()
	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	api := newClient(t, srv.URL, "")

	products, err := api.ListProducts(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = api.GetProduct(ctx, "P999")
	assert.ErrorIs(t, err, model.ErrProductNotFound)

	methods, err := api.ListDeliveryMethods(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "standard", methods[0].ID)
	assert.True(t, methods[1].Price.Equal(dec("9.99")))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
