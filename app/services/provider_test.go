package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/smm-panel/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSMMStatus(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"Pending":     models.OrderStatusPending,
		"In progress": models.OrderStatusActive,
		"Processing":  models.OrderStatusActive,
		"Partial":     models.OrderStatusPartial,
		"Completed":   models.OrderStatusCompleted,
		"Canceled":    models.OrderStatusCanceled,
		"Cancelled":   models.OrderStatusCanceled,
	}
	for in, want := range cases {
		got, err := MapSMMStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := MapSMMStatus("Queued forever")
	assert.ErrorIs(t, err, ErrUnknownProviderStatus)
}

func TestMapSMSStatus(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"1":         models.OrderStatusActive,
		"pending":   models.OrderStatusPending,
		"3":         models.OrderStatusCompleted,
		"completed": models.OrderStatusCompleted,
		"6":         models.OrderStatusRefunded,
		"refunded":  models.OrderStatusRefunded,
		"2":         models.OrderStatusExpired,
		"Expired":   models.OrderStatusExpired,
	}
	for in, want := range cases {
		got, err := MapSMSStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := MapSMSStatus("9")
	assert.Error(t, err)
}

func TestSMMPanelClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("key"))
		switch r.PostForm.Get("action") {
		case "services":
			_, _ = w.Write([]byte(`[{"service":1,"name":"Followers","type":"Default","category":"Instagram","rate":"0.90","min":"50","max":"10000"}]`))
		case "add":
			assert.Equal(t, "1", r.PostForm.Get("service"))
			assert.Equal(t, "500", r.PostForm.Get("quantity"))
			_, _ = w.Write([]byte(`{"order":23501}`))
		case "status":
			assert.Equal(t, "10,11", r.PostForm.Get("orders"))
			_, _ = w.Write([]byte(`{"10":{"charge":"0.27819","start_count":"3572","status":"Partial","remains":"157","currency":"USD"},"11":{"error":"Incorrect order ID"}}`))
		default:
			_, _ = w.Write([]byte(`{"error":"Incorrect request"}`))
		}
	}))
	defer srv.Close()

	c := NewSMMPanelClient(SMMProviderConfig{BaseURL: srv.URL, APIKey: "secret"}, nil)
	ctx := context.Background()

	svc, err := FindService(ctx, c, 1)
	require.NoError(t, err)
	assert.Equal(t, 10000, svc.Max)
	assert.Equal(t, "0.45", svc.Price(500).StringFixed(2))

	_, err = FindService(ctx, c, 99)
	assert.ErrorIs(t, err, ErrSMMServiceNotFound)

	id, err := c.AddOrder(ctx, 1, "https://instagram.com/x", 500)
	require.NoError(t, err)
	assert.Equal(t, "23501", id)

	st, err := c.OrderStatuses(ctx, []string{"10", "11"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartial, st["10"].Mapped)
	assert.Equal(t, 157, st["10"].Remains)
	assert.Equal(t, 3572, st["10"].StartCount)
	assert.True(t, decimal.RequireFromString("0.27819").Equal(st["10"].Charge))
	assert.Equal(t, "Incorrect order ID", st["11"].Error)
}

func TestSMSPoolClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/purchase/sms":
			_, _ = w.Write([]byte(`{"success":1,"number":2348012345678,"order_id":"ABCDEF12","cost":"0.35"}`))
		case "/request/active":
			_, _ = w.Write([]byte(`[{"order_code":"ABCDEF12","phonenumber":"2348012345678","code":"","status":"1","time_left":540}]`))
		case "/request/history":
			_, _ = w.Write([]byte(`{"success":0,"message":"Invalid API key"}`))
		case "/sms/cancel":
			assert.Equal(t, "k", r.Form.Get("key"))
			if r.Form.Get("orderid") == "ABCDEF12" {
				_, _ = w.Write([]byte(`{"success":1,"message":"Order cancelled"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":0,"message":"Order already completed"}`))
		}
	}))
	defer srv.Close()

	c := NewSMSPoolClient(SMSProviderConfig{BaseURL: srv.URL, APIKey: "k"}, nil)
	ctx := context.Background()

	p, err := c.Purchase(ctx, "whatsapp", "NG")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF12", p.OrderCode)
	assert.Equal(t, "2348012345678", p.PhoneNumber)

	active, err := c.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, models.OrderStatusActive, active[0].Mapped)
	assert.Equal(t, 540, active[0].Remaining)

	_, err = c.OrderHistory(ctx)
	assert.Error(t, err)

	require.NoError(t, c.Cancel(ctx, "ABCDEF12"))
	err = c.Cancel(ctx, "ZZZZ0000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Order already completed")
}
