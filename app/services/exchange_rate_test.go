package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rateServer struct {
	*httptest.Server
	hits atomic.Int32
	fail atomic.Bool
}

func newRateServer(t *testing.T) *rateServer {
	t.Helper()
	rs := &rateServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		if rs.fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"NGN":1500,"EUR":0.9}}`))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func TestExchangeRateCache_Convert(t *testing.T) {
	rs := newRateServer(t)
	c := NewExchangeRateCache(ExchangeRateConfig{BaseURL: rs.URL}, nil, nil)
	ctx := context.Background()

	got, err := c.Convert(ctx, decimal.NewFromInt(10), "usd", "NGN")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15000).Equal(got), got.String())

	got, err = c.Convert(ctx, decimal.NewFromInt(3000), "NGN", "USD")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(got), got.String())

	got, err = c.Convert(ctx, decimal.RequireFromString("12.34"), "NGN", "ngn")
	require.NoError(t, err)
	assert.Equal(t, "12.34", got.String())

	_, err = c.Convert(ctx, decimal.NewFromInt(1), "USD", "XYZ")
	assert.ErrorIs(t, err, ErrUnknownCurrency)

	assert.EqualValues(t, 1, rs.hits.Load(), "table is cached within the TTL")
}

func TestExchangeRateCache_RefreshesAfterTTL(t *testing.T) {
	rs := newRateServer(t)
	c := NewExchangeRateCache(ExchangeRateConfig{BaseURL: rs.URL, TTL: time.Hour}, nil, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Convert(context.Background(), decimal.NewFromInt(1), "USD", "NGN")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = c.Convert(context.Background(), decimal.NewFromInt(1), "USD", "NGN")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rs.hits.Load())
}

func TestExchangeRateCache_ServesStaleWithinLimit(t *testing.T) {
	rs := newRateServer(t)
	c := NewExchangeRateCache(ExchangeRateConfig{BaseURL: rs.URL, TTL: time.Hour, MaxStale: 24 * time.Hour}, nil, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.Convert(ctx, decimal.NewFromInt(1), "USD", "NGN")
	require.NoError(t, err)

	rs.fail.Store(true)
	now = now.Add(5 * time.Hour)
	got, err := c.Convert(ctx, decimal.NewFromInt(1), "USD", "NGN")
	require.NoError(t, err, "stale table younger than the limit is served")
	assert.True(t, decimal.NewFromInt(1500).Equal(got))

	now = now.Add(20 * time.Hour)
	_, err = c.Convert(ctx, decimal.NewFromInt(1), "USD", "NGN")
	assert.Error(t, err, "table older than the limit is refused")
}

func TestExchangeRateCache_UpstreamDownWithoutTable(t *testing.T) {
	rs := newRateServer(t)
	rs.fail.Store(true)
	c := NewExchangeRateCache(ExchangeRateConfig{BaseURL: rs.URL}, nil, nil)

	_, err := c.Convert(context.Background(), decimal.NewFromInt(1), "USD", "NGN")
	assert.Error(t, err)
}
