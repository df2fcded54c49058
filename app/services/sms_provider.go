package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/smm-panel/models"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// SMSVerificationProvider rents numbers for SMS verification (SMSPool-style API)
type SMSVerificationProvider interface {
	Purchase(ctx context.Context, service, country string) (*SMSPurchase, error)
	ActiveOrders(ctx context.Context) ([]SMSProviderOrder, error)
	OrderHistory(ctx context.Context) ([]SMSProviderOrder, error)
	// Cancel releases a rented number; the provider refunds its cost to the account
	Cancel(ctx context.Context, orderCode string) error
}

type SMSPurchase struct {
	OrderCode   string
	PhoneNumber string
	Cost        decimal.Decimal
}

// SMSProviderOrder is one row of the active/history listings
type SMSProviderOrder struct {
	OrderCode   string
	PhoneNumber string
	Code        string
	Status      string
	Mapped      models.OrderStatus
	StartCount  int
	Remaining   int
}

// MapSMSStatus adapts SMSPool status wording or numeric codes to the internal status
func MapSMSStatus(s string) (models.OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "pending", "waiting":
		return models.OrderStatusPending, nil
	case "1", "4", "active", "resend", "in progress":
		return models.OrderStatusActive, nil
	case "3", "completed", "complete", "received":
		return models.OrderStatusCompleted, nil
	case "5", "6", "refunded", "cancelled", "canceled":
		return models.OrderStatusRefunded, nil
	case "2", "expired":
		return models.OrderStatusExpired, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProviderStatus, s)
}

type SMSProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker BreakerSettings
}

type SMSPoolClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewSMSPoolClient(cfg SMSProviderConfig, logger *zap.Logger) *SMSPoolClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMSPoolClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		cb:      newBreaker("sms-provider", cfg.Breaker, logger),
		logger:  logger,
	}
}

// flexString accepts strings and bare numbers
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

type smsOrderWire struct {
	OrderCode   flexString `json:"order_code"`
	PhoneNumber flexString `json:"phonenumber"`
	Code        flexString `json:"code"`
	Status      flexString `json:"status"`
	StartCount  flexInt    `json:"start_count"`
	Remaining   flexInt    `json:"remaining"`
	TimeLeft    flexInt    `json:"time_left"`
}

func (w smsOrderWire) toOrder() SMSProviderOrder {
	o := SMSProviderOrder{
		OrderCode:   string(w.OrderCode),
		PhoneNumber: string(w.PhoneNumber),
		Code:        string(w.Code),
		Status:      string(w.Status),
		StartCount:  int(w.StartCount),
		Remaining:   int(w.Remaining),
	}
	if o.Remaining == 0 {
		o.Remaining = int(w.TimeLeft)
	}
	o.Mapped, _ = MapSMSStatus(o.Status)
	return o
}

func (c *SMSPoolClient) Purchase(ctx context.Context, service, country string) (*SMSPurchase, error) {
	form := url.Values{"service": {service}, "country": {country}}
	return execute(c.cb, func() (*SMSPurchase, error) {
		var out struct {
			Success     int             `json:"success"`
			Message     string          `json:"message"`
			OrderID     flexString      `json:"order_id"`
			Number      flexString      `json:"number"`
			PhoneNumber flexString      `json:"phonenumber"`
			Cost        decimal.Decimal `json:"cost"`
		}
		if err := c.post(ctx, "/purchase/sms", form, &out); err != nil {
			return nil, err
		}
		if out.Success != 1 || out.OrderID == "" {
			return nil, fmt.Errorf("sms provider: purchase refused: %s", out.Message)
		}
		p := &SMSPurchase{OrderCode: string(out.OrderID), PhoneNumber: string(out.PhoneNumber), Cost: out.Cost}
		if p.PhoneNumber == "" {
			p.PhoneNumber = string(out.Number)
		}
		return p, nil
	})
}

func (c *SMSPoolClient) Cancel(ctx context.Context, orderCode string) error {
	_, err := execute(c.cb, func() (struct{}, error) {
		var out struct {
			Success int    `json:"success"`
			Message string `json:"message"`
		}
		if err := c.post(ctx, "/sms/cancel", url.Values{"orderid": {orderCode}}, &out); err != nil {
			return struct{}{}, err
		}
		if out.Success != 1 {
			return struct{}{}, fmt.Errorf("sms provider: cancel of %s refused: %s", orderCode, out.Message)
		}
		return struct{}{}, nil
	})
	return err
}

func (c *SMSPoolClient) ActiveOrders(ctx context.Context) ([]SMSProviderOrder, error) {
	return c.listing(ctx, "/request/active")
}

func (c *SMSPoolClient) OrderHistory(ctx context.Context) ([]SMSProviderOrder, error) {
	return c.listing(ctx, "/request/history")
}

func (c *SMSPoolClient) listing(ctx context.Context, path string) ([]SMSProviderOrder, error) {
	return execute(c.cb, func() ([]SMSProviderOrder, error) {
		var wire []smsOrderWire
		if err := c.post(ctx, path, url.Values{}, &wire); err != nil {
			return nil, err
		}
		out := make([]SMSProviderOrder, 0, len(wire))
		for _, w := range wire {
			out = append(out, w.toOrder())
		}
		return out, nil
	})
}

var errSMSProviderRefused = errors.New("sms provider: request refused")

func (c *SMSPoolClient) post(ctx context.Context, path string, form url.Values, out any) error {
	form.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("sms provider request failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("sms provider: status %d for %s", resp.StatusCode, path)
	}
	// listings answer {"success":0,"message":...} instead of an array on failure
	if strings.HasPrefix(path, "/request/") && len(data) > 0 && data[0] == '{' {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %s", errSMSProviderRefused, e.Message)
	}
	return json.Unmarshal(data, out)
}
