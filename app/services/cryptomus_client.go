package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CryptoPaymentGateway opens hosted crypto payment sessions and authenticates their callbacks
type CryptoPaymentGateway interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error)
	ParseWebhook(raw []byte) (*CryptomusWebhook, error)
}

type CreatePaymentInput struct {
	Amount      decimal.Decimal
	Currency    string
	OrderID     string
	CallbackURL string
	ReturnURL   string
	Lifetime    time.Duration
}

type CreatePaymentResult struct {
	UUID       string
	OrderID    string
	PaymentURL string
	Status     string
	ExpiresAt  *time.Time
}

// CryptomusWebhook is the subset of the payment callback the ledger acts on
type CryptomusWebhook struct {
	Type          string          `json:"type"`
	UUID          string          `json:"uuid"`
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	Currency      string          `json:"currency"`
	PayerCurrency string          `json:"payer_currency"`
	Network       string          `json:"network"`
	Status        string          `json:"status"`
	IsFinal       bool            `json:"is_final"`
	TxID          string          `json:"txid"`
}

var (
	// ErrWebhookSignatureMismatch is returned when the callback sign does not verify
	ErrWebhookSignatureMismatch = errors.New("webhook signature mismatch")
	errCryptomusEmptyURL        = errors.New("cryptomus: empty payment url in response")
)

// CryptomusClientConfig holds merchant credentials and transport settings
type CryptomusClientConfig struct {
	BaseURL    string
	MerchantID string
	APIKey     string
	Timeout    time.Duration
	Breaker    BreakerSettings
}

type CryptomusClient struct {
	BaseURL    string
	MerchantID string
	APIKey     string
	HTTPClient *http.Client

	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func NewCryptomusClient(cfg CryptomusClientConfig, logger *zap.Logger) *CryptomusClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CryptomusClient{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		MerchantID: cfg.MerchantID,
		APIKey:     cfg.APIKey,
		HTTPClient: &http.Client{Timeout: timeout},
		cb:         newBreaker("cryptomus", cfg.Breaker, logger),
		logger:     logger,
	}
}

type cryptomusPaymentReq struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	URLCallback string `json:"url_callback,omitempty"`
	URLReturn   string `json:"url_return,omitempty"`
	Lifetime    int    `json:"lifetime,omitempty"`
}

type cryptomusEnvelope struct {
	State   int             `json:"state"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Result  struct {
		UUID          string `json:"uuid"`
		OrderID       string `json:"order_id"`
		Amount        string `json:"amount"`
		URL           string `json:"url"`
		PaymentStatus string `json:"payment_status"`
		ExpiredAt     int64  `json:"expired_at"`
	} `json:"result"`
}

// CreatePayment opens an invoice via POST /v1/payment
func (c *CryptomusClient) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	body := cryptomusPaymentReq{
		Amount:      in.Amount.StringFixed(2),
		Currency:    strings.ToUpper(in.Currency),
		OrderID:     in.OrderID,
		URLCallback: in.CallbackURL,
		URLReturn:   in.ReturnURL,
		Lifetime:    int(in.Lifetime / time.Second),
	}

	return execute(c.cb, func() (*CreatePaymentResult, error) {
		var env cryptomusEnvelope
		if err := c.postSigned(ctx, "/v1/payment", body, &env); err != nil {
			return nil, err
		}
		if env.State != 0 {
			return nil, fmt.Errorf("cryptomus: state %d: %s", env.State, env.Message)
		}
		if env.Result.URL == "" {
			return nil, errCryptomusEmptyURL
		}

		res := &CreatePaymentResult{
			UUID:       env.Result.UUID,
			OrderID:    env.Result.OrderID,
			PaymentURL: env.Result.URL,
			Status:     env.Result.PaymentStatus,
		}
		if env.Result.ExpiredAt > 0 {
			t := time.Unix(env.Result.ExpiredAt, 0).UTC()
			res.ExpiresAt = &t
		}
		return res, nil
	})
}

// ParseWebhook verifies the callback sign and decodes the payload
func (c *CryptomusClient) ParseWebhook(raw []byte) (*CryptomusWebhook, error) {
	ok, err := VerifyCryptomusSignature(raw, c.APIKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWebhookSignatureMismatch
	}

	var hook CryptomusWebhook
	if err := json.Unmarshal(raw, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}
	return &hook, nil
}

func (c *CryptomusClient) postSigned(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("merchant", c.MerchantID)
	req.Header.Set("sign", CryptomusSign(b, c.APIKey))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("cryptomus request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data))
		return fmt.Errorf("cryptomus: status %d for %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
