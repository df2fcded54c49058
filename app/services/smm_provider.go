package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/smm-panel/models"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// SMMProvider is an SMM panel speaking the common API v2 (form POST, action=...)
type SMMProvider interface {
	Services(ctx context.Context) ([]SMMService, error)
	AddOrder(ctx context.Context, serviceID int, link string, quantity int) (string, error)
	OrderStatuses(ctx context.Context, providerOrderIDs []string) (map[string]SMMOrderStatus, error)
}

// SMMService is one entry of the provider catalogue; Rate is the price per 1000 units
type SMMService struct {
	ID       int             `json:"service"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Min      int             `json:"min"`
	Max      int             `json:"max"`
}

// Price returns the charge for quantity units, rounded to 2 places
func (s SMMService) Price(quantity int) decimal.Decimal {
	return s.Rate.Mul(decimal.NewFromInt(int64(quantity))).Div(decimal.NewFromInt(1000)).Round(2)
}

// SMMOrderStatus is the provider's view of one order. Status holds the
// provider's raw wording; Mapped is the internal status it adapts to.
type SMMOrderStatus struct {
	Charge     decimal.Decimal
	StartCount int
	Remains    int
	Status     string
	Mapped     models.OrderStatus
	Currency   string
	Error      string
}

var (
	// ErrUnknownProviderStatus is returned when a provider status has no internal mapping
	ErrUnknownProviderStatus = errors.New("unknown provider status")
	// ErrSMMServiceNotFound is returned when a service id is not in the catalogue
	ErrSMMServiceNotFound = errors.New("smm service not found")
)

// MapSMMStatus adapts an SMM panel status string to the internal order status
func MapSMMStatus(s string) (models.OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return models.OrderStatusPending, nil
	case "in progress", "processing", "inprogress":
		return models.OrderStatusActive, nil
	case "partial":
		return models.OrderStatusPartial, nil
	case "completed", "complete":
		return models.OrderStatusCompleted, nil
	case "canceled", "cancelled":
		return models.OrderStatusCanceled, nil
	case "refunded":
		return models.OrderStatusRefunded, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProviderStatus, s)
}

type SMMProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker BreakerSettings
}

type SMMPanelClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewSMMPanelClient(cfg SMMProviderConfig, logger *zap.Logger) *SMMPanelClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMMPanelClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		cb:      newBreaker("smm-provider", cfg.Breaker, logger),
		logger:  logger,
	}
}

// flexInt accepts both 12 and "12" since panels are inconsistent
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(int(n))
	return nil
}

type smmServiceWire struct {
	Service  flexInt         `json:"service"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Min      flexInt         `json:"min"`
	Max      flexInt         `json:"max"`
}

func (c *SMMPanelClient) Services(ctx context.Context) ([]SMMService, error) {
	return execute(c.cb, func() ([]SMMService, error) {
		var wire []smmServiceWire
		if err := c.call(ctx, url.Values{"action": {"services"}}, &wire); err != nil {
			return nil, err
		}
		out := make([]SMMService, 0, len(wire))
		for _, w := range wire {
			out = append(out, SMMService{
				ID:       int(w.Service),
				Name:     w.Name,
				Type:     w.Type,
				Category: w.Category,
				Rate:     w.Rate,
				Min:      int(w.Min),
				Max:      int(w.Max),
			})
		}
		return out, nil
	})
}

// FindService looks a service id up in the provider catalogue
func FindService(ctx context.Context, p SMMProvider, serviceID int) (*SMMService, error) {
	list, err := p.Services(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == serviceID {
			return &list[i], nil
		}
	}
	return nil, ErrSMMServiceNotFound
}

func (c *SMMPanelClient) AddOrder(ctx context.Context, serviceID int, link string, quantity int) (string, error) {
	form := url.Values{
		"action":   {"add"},
		"service":  {strconv.Itoa(serviceID)},
		"link":     {link},
		"quantity": {strconv.Itoa(quantity)},
	}
	return execute(c.cb, func() (string, error) {
		var out struct {
			Order json.Number `json:"order"`
			Error string      `json:"error"`
		}
		if err := c.call(ctx, form, &out); err != nil {
			return "", err
		}
		if out.Error != "" {
			return "", fmt.Errorf("smm provider: %s", out.Error)
		}
		if out.Order == "" {
			return "", errors.New("smm provider: empty order id")
		}
		return out.Order.String(), nil
	})
}

type smmStatusWire struct {
	Charge     decimal.NullDecimal `json:"charge"`
	StartCount flexInt             `json:"start_count"`
	Status     string              `json:"status"`
	Remains    flexInt             `json:"remains"`
	Currency   string              `json:"currency"`
	Error      string              `json:"error"`
}

// OrderStatuses queries up to 100 orders in one action=status&orders= call
func (c *SMMPanelClient) OrderStatuses(ctx context.Context, ids []string) (map[string]SMMOrderStatus, error) {
	if len(ids) == 0 {
		return map[string]SMMOrderStatus{}, nil
	}
	form := url.Values{"action": {"status"}, "orders": {strings.Join(ids, ",")}}

	return execute(c.cb, func() (map[string]SMMOrderStatus, error) {
		var wire map[string]smmStatusWire
		if err := c.call(ctx, form, &wire); err != nil {
			return nil, err
		}
		out := make(map[string]SMMOrderStatus, len(wire))
		for id, w := range wire {
			st := SMMOrderStatus{
				Charge:     w.Charge.Decimal,
				StartCount: int(w.StartCount),
				Remains:    int(w.Remains),
				Status:     w.Status,
				Currency:   w.Currency,
				Error:      w.Error,
			}
			if w.Error == "" {
				mapped, err := MapSMMStatus(w.Status)
				if err != nil {
					st.Error = err.Error()
				}
				st.Mapped = mapped
			}
			out[id] = st
		}
		return out, nil
	})
}

func (c *SMMPanelClient) call(ctx context.Context, form url.Values, out any) error {
	form.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
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
		c.logger.Warn("smm provider request failed",
			zap.String("action", form.Get("action")),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("smm provider: status %d", resp.StatusCode)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if len(data) > 0 && data[0] == '{' && json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("smm provider: %s", apiErr.Error)
	}
	return json.Unmarshal(data, out)
}
