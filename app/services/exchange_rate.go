package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/smm-panel/app/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrUnknownCurrency is returned when a currency is missing from the rate table
var ErrUnknownCurrency = errors.New("unknown currency")

const exchangeRateRedisKey = "fx:rates:USD"

// ExchangeRateService converts amounts between currencies
type ExchangeRateService interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type ExchangeRateConfig struct {
	BaseURL  string
	TTL      time.Duration
	MaxStale time.Duration
	Timeout  time.Duration
	Breaker  BreakerSettings
}

type rateTable struct {
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// ExchangeRateCache keeps a USD-based rate table in memory, mirrors it to
// Redis when a client is given, and serves a stale table while upstream is
// failing as long as it is younger than MaxStale.
type ExchangeRateCache struct {
	baseURL  string
	ttl      time.Duration
	maxStale time.Duration
	client   *http.Client
	redis    redis.Cmdable
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	table     *rateTable
	refreshMu sync.Mutex
}

func NewExchangeRateCache(cfg ExchangeRateConfig, rdb redis.Cmdable, logger *zap.Logger) *ExchangeRateCache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxStale <= 0 {
		cfg.MaxStale = 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeRateCache{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		ttl:      cfg.TTL,
		maxStale: cfg.MaxStale,
		client:   &http.Client{Timeout: cfg.Timeout},
		redis:    rdb,
		cb:       newBreaker("exchange-rate", cfg.Breaker, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Convert returns amount expressed in currency to, rounded to 2 places
func (c *ExchangeRateCache) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	table, err := c.rates(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	fromRate, ok := table.Rates[from]
	if !ok || fromRate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}
	toRate, ok := table.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}

	return amount.Mul(toRate).Div(fromRate).Round(2), nil
}

func (c *ExchangeRateCache) fresh(t *rateTable) bool {
	return t != nil && c.now().Sub(t.FetchedAt) < c.ttl
}

func (c *ExchangeRateCache) usable(t *rateTable) bool {
	return t != nil && c.now().Sub(t.FetchedAt) < c.maxStale
}

func (c *ExchangeRateCache) rates(ctx context.Context) (*rateTable, error) {
	c.mu.RLock()
	current := c.table
	c.mu.RUnlock()
	if c.fresh(current) {
		metrics.ExchangeRateLookups.WithLabelValues("memory").Inc()
		return current, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	current = c.table
	c.mu.RUnlock()
	if c.fresh(current) {
		metrics.ExchangeRateLookups.WithLabelValues("memory").Inc()
		return current, nil
	}

	if shared := c.loadShared(ctx); c.fresh(shared) {
		c.store(shared)
		metrics.ExchangeRateLookups.WithLabelValues("redis").Inc()
		return shared, nil
	} else if shared != nil && (current == nil || shared.FetchedAt.After(current.FetchedAt)) {
		current = shared
	}

	fetched, err := execute(c.cb, func() (*rateTable, error) { return c.fetch(ctx) })
	if err == nil {
		c.store(fetched)
		c.saveShared(ctx, fetched)
		metrics.ExchangeRateLookups.WithLabelValues("upstream").Inc()
		return fetched, nil
	}

	if c.usable(current) {
		c.logger.Warn("serving stale exchange rates",
			zap.Error(err),
			zap.Time("fetched_at", current.FetchedAt))
		c.store(current)
		metrics.ExchangeRateLookups.WithLabelValues("stale").Inc()
		return current, nil
	}
	metrics.ExchangeRateLookups.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("exchange rates unavailable: %w", err)
}

func (c *ExchangeRateCache) store(t *rateTable) {
	c.mu.Lock()
	c.table = t
	c.mu.Unlock()
}

func (c *ExchangeRateCache) loadShared(ctx context.Context) *rateTable {
	if c.redis == nil {
		return nil
	}
	raw, err := c.redis.Get(ctx, exchangeRateRedisKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("exchange rate cache read failed", zap.Error(err))
		}
		return nil
	}
	var t rateTable
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil
	}
	return &t
}

func (c *ExchangeRateCache) saveShared(ctx context.Context, t *rateTable) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, exchangeRateRedisKey, raw, c.maxStale).Err(); err != nil {
		c.logger.Debug("exchange rate cache write failed", zap.Error(err))
	}
}

type erAPIResponse struct {
	Result string                     `json:"result"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

// fetch reads GET {base}/latest/USD
func (c *ExchangeRateCache) fetch(ctx context.Context) (*rateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest/USD", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate api: status %d", resp.StatusCode)
	}

	var out erAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Result != "success" || len(out.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate api: result %q", out.Result)
	}
	out.Rates["USD"] = decimal.NewFromInt(1)
	return &rateTable{Rates: out.Rates, FetchedAt: c.now()}, nil
}
