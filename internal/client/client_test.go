package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", Options{Token: "tok", APIKey: "staff-key"}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://nope"} {
		_, err := New(raw, Options{}, zerolog.Nop())
		assert.Error(t, err, raw)
	}
}

func TestClient_ListProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "40", r.URL.Query().Get("offset"))
		assert.Empty(t, r.Header.Get("Authorization"), "catalogue calls are anonymous")
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":[{"id":"P001","name":"Widget","price":"50.00","stock":5}]}`)
	})

	products, err := c.ListProducts(context.Background(), 20, 40)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "P001", products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 5, products[0].Stock)
}

func TestClient_GetProductNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/P%2F1", r.URL.RawPath)
		writeEnvelope(w, http.StatusNotFound, `{"success":false,"message":"product not found","code":"PRODUCT_NOT_FOUND"}`)
	})

	product, err := c.GetProduct(context.Background(), "P/1")

	assert.Nil(t, product)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestClient_SubmitOrder(t *testing.T) {
	orderID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Total.Equal(decimal.RequireFromString("117.99")))

		writeEnvelope(w, http.StatusCreated, `{"success":true,"data":{"orderId":"`+orderID.String()+
			`","orderNumber":"`+model.OrderNumber(orderID)+`","status":"pending","total":"117.99"}}`)
	})

	confirmation, err := c.SubmitOrder(context.Background(), model.OrderRequest{Total: decimal.RequireFromString("117.99")})

	require.NoError(t, err)
	assert.Equal(t, orderID, confirmation.OrderID)
	assert.Equal(t, model.OrderStatusPending, confirmation.Status)
	assert.True(t, confirmation.Total.Equal(decimal.RequireFromString("117.99")))
}

func TestClient_SubmitOrderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   string
		wantFields map[string]string
		wantStatus bool
	}{
		{
			name:     "insufficient stock",
			status:   http.StatusConflict,
			body:     `{"success":false,"message":"insufficient stock for product P001: 1 available","code":"INSUFFICIENT_STOCK"}`,
			wantCode: model.ErrCodeInsufficientStock,
		},
		{
			name:       "validation fields are kept",
			status:     http.StatusBadRequest,
			body:       `{"success":false,"message":"validation failed","code":"VALIDATION_FAILED","fields":{"customerEmail":"must be a valid email"}}`,
			wantCode:   model.ErrCodeValidationFailed,
			wantFields: map[string]string{"customerEmail": "must be a valid email"},
		},
		{
			name:       "proxy error page",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantStatus: true,
		},
		{
			name:       "error without code",
			status:     http.StatusInternalServerError,
			body:       `{"success":false}`,
			wantStatus: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, tt.body)
			})

			confirmation, err := c.SubmitOrder(context.Background(), model.OrderRequest{})

			assert.Nil(t, confirmation)
			require.Error(t, err)
			if tt.wantStatus {
				assert.ErrorIs(t, err, ErrUnexpectedStatus)
				return
			}
			var de *model.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.wantFields, de.Fields)
		})
	}
}

func TestClient_SubmitOrderGuest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusCreated, `{"success":true,"data":{"orderId":"`+uuid.NewString()+`"}}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{}, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.SubmitOrder(context.Background(), model.OrderRequest{})
	assert.NoError(t, err)
}

func TestClient_UpdateStatus(t *testing.T) {
	orderID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/admin/orders/"+orderID.String()+"/status", r.URL.Path)
		assert.Equal(t, "staff-key", r.Header.Get("X-API-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body model.StatusUpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Status == "shipped" {
			writeEnvelope(w, http.StatusConflict, `{"success":false,"message":"cannot change order status from pending to shipped","code":"INVALID_STATUS_TRANSITION"}`)
			return
		}
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"orderId":"`+orderID.String()+`","from":"pending","to":"`+body.Status+`"}}`)
	})

	change, err := c.UpdateStatus(context.Background(), orderID, model.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, change.From)
	assert.Equal(t, model.OrderStatusPaid, change.To)

	_, err = c.UpdateStatus(context.Background(), orderID, model.OrderStatusShipped)
	assert.Equal(t, model.ErrCodeInvalidStatusTransition, model.ErrorCode(err))
}

func TestClient_GetOrderAndDeliveryMethods(t *testing.T) {
	orderID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/delivery-methods":
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":[{"id":"standard","name":"Standard Delivery","price":"4.99","minDays":3,"maxDays":5,"active":true}]}`)
		case "/orders/" + orderID.String():
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"id":"`+orderID.String()+`","orderNumber":"`+model.OrderNumber(orderID)+`","status":"paid"}}`)
		default:
			writeEnvelope(w, http.StatusNotFound, `{"success":false,"message":"order not found","code":"ORDER_NOT_FOUND"}`)
		}
	})

	methods, err := c.ListDeliveryMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "standard", methods[0].ID)

	order, err := c.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Equal(t, model.OrderNumber(orderID), order.OrderNumber)

	_, err = c.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":[]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListDeliveryMethods(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
