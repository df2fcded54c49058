package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/smm-panel/app/handlers"
	"github.com/amirphl/smm-panel/app/middleware"
	"github.com/amirphl/smm-panel/app/router"
	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/config"
	"github.com/amirphl/smm-panel/mocks"
	"github.com/amirphl/smm-panel/models"
	testingutil "github.com/amirphl/smm-panel/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	app      *fiber.App
	store    *testingutil.MemStore
	fixtures *testingutil.TestFixtures
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := testingutil.NewMemStore()

	tokens, err := services.NewTokenService(15*time.Minute, time.Hour, "smm-panel", "smm-panel-api", false, "", "", "handler-test-secret")
	require.NoError(t, err)

	notifier := mocks.NewMockNotificationService(ctrl)
	notifier.EXPECT().SendEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	notifier.EXPECT().NotifyAdmin(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	gateway := mocks.NewMockCryptoPaymentGateway(ctrl)
	rates := mocks.NewMockExchangeRateService(ctrl)
	smm := mocks.NewMockSMMProvider(ctrl)
	sms := mocks.NewMockSMSVerificationProvider(ctrl)
	events := services.NewLocalEventBus(8)

	cfg := &config.ProductionConfig{
		Deposit: config.DepositConfig{
			MinBankAmountNGN: decimal.NewFromInt(1000),
			MinCryptoUSD:     decimal.NewFromInt(1),
			MinCryptoNGN:     decimal.NewFromInt(1000),
			MaxProofSize:     1024 * 1024,
		},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Deployment: config.DeploymentConfig{Environment: "test", Version: "test"},
	}

	ledger := businessflow.NewLedger(store, store.Users(), store.Transactions(), store.Notifications(), store.AuditLogs(), nil)
	referrals := businessflow.NewReferralFlow(store, store.Users(), store.CountedDeposits(), store.Referrals(),
		store.Commissions(), store.ReferralWithdrawals(), store.BankAccounts(), store.Notifications(), store.AuditLogs(),
		decimal.NewFromInt(1000), nil)
	deposits := businessflow.NewDepositFlow(store, store.Users(), store.PendingDeposits(), store.Transactions(), store.AuditLogs(),
		gateway, rates, notifier, cfg.Deposit, cfg.Cryptomus, nil)
	review := businessflow.NewAdminDepositFlow(store, store.Users(), store.PendingDeposits(), store.Transactions(),
		store.Notifications(), store.AuditLogs(), ledger, referrals, notifier, events, nil)
	webhook := businessflow.NewCryptomusWebhookFlow(store, store.Users(), store.Transactions(), store.AuditLogs(),
		ledger, gateway, rates, events, []string{"91.227.144.54"}, nil)
	withdrawals := businessflow.NewWithdrawalFlow(store, store.Users(), store.BankAccounts(), store.Withdrawals(),
		store.Transactions(), store.Notifications(), store.AuditLogs(), ledger, nil)
	orders := businessflow.NewOrderFlow(store, store.Users(), store.SMMOrders(), store.SMSOrders(), store.Products(),
		store.AuditLogs(), ledger, smm, sms, rates,
		config.ProviderConfig{Currency: "NGN", PriceMultiplier: decimal.NewFromInt(1)},
		config.ProviderConfig{Currency: "NGN", PriceMultiplier: decimal.NewFromInt(1)},
		nil)
	auth := businessflow.NewAuthFlow(store.Users(), store.Admins(), store.AuditLogs(), tokens, 15*time.Minute, nil)

	r := router.NewFiberRouter(router.Handlers{
		Auth:         handlers.NewAuthHandler(auth, nil),
		Wallet:       handlers.NewWalletHandler(ledger, nil),
		Deposit:      handlers.NewDepositHandler(deposits, webhook, cfg.Deposit.MaxProofSize, nil),
		AdminDeposit: handlers.NewAdminDepositHandler(review, nil),
		Withdrawal:   handlers.NewWithdrawalHandler(withdrawals, nil),
		Referral:     handlers.NewReferralHandler(referrals, nil),
		Order:        handlers.NewOrderHandler(orders, nil),
		Events:       handlers.NewEventsHandler(events, nil),
	}, middleware.NewAuthMiddleware(tokens), cfg, nil)
	r.SetupRoutes()

	return &server{app: r.GetApp(), store: store, fixtures: testingutil.NewTestFixtures(store)}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s *server) do(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp, env
}

func jsonRequest(method, path, token string, body any) *http.Request {
	var buf io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func (s *server) userToken(t *testing.T, user *models.User) string {
	t.Helper()
	resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": user.Email, "password": testingutil.TestPassword,
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	return login.Session.AccessToken
}

func (s *server) adminToken(t *testing.T) string {
	t.Helper()
	admin := s.fixtures.CreateAdmin(fmt.Sprintf("ops%d", time.Now().UnixNano()))
	resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/admin/auth/login", "", map[string]string{
		"username": admin.Username, "password": testingutil.TestPassword,
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	return login.Session.AccessToken
}

func pngProof() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
}

func bankDepositRequest(t *testing.T, token, amount string, proof []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("amount", amount))
	require.NoError(t, w.WriteField("reference", "TRF-001"))
	if proof != nil {
		part, err := w.CreateFormFile("proof", "proof.png")
		require.NoError(t, err)
		_, err = part.Write(proof)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/deposit/bank", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

func TestAuthMiddleware(t *testing.T) {
	s := newServer(t)

	t.Run("MissingHeader", func(t *testing.T) {
		resp, env := s.do(t, jsonRequest(http.MethodGet, "/api/v1/wallet", "", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", env.Error.Code)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		resp, env := s.do(t, jsonRequest(http.MethodGet, "/api/v1/wallet", "not-a-jwt", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "TOKEN_INVALID", env.Error.Code)
	})

	t.Run("UserTokenOnAdminRoute", func(t *testing.T) {
		user := s.fixtures.CreateUser("NGN", "0")
		resp, _ := s.do(t, jsonRequest(http.MethodGet, "/admin/deposits", s.userToken(t, user), nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		user := s.fixtures.CreateUser("NGN", "0")
		resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email": user.Email, "password": "wrong-password",
		}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	s := newServer(t)
	user := s.fixtures.CreateUser("NGN", "0")

	resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": user.Email, "password": testingutil.TestPassword,
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Session struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	t.Run("RequiresBearer", func(t *testing.T) {
		resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/logout", "", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", env.Error.Code)
	})

	t.Run("RevokesSession", func(t *testing.T) {
		resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/logout", login.Session.AccessToken,
			map[string]string{"refresh_token": login.Session.RefreshToken}))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, env.Success)

		resp, env = s.do(t, jsonRequest(http.MethodGet, "/api/v1/wallet", login.Session.AccessToken, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "TOKEN_REVOKED", env.Error.Code)

		resp, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/refresh", "",
			map[string]string{"refresh_token": login.Session.RefreshToken}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestWalletHandler(t *testing.T) {
	s := newServer(t)
	user := s.fixtures.CreateUser("NGN", "5000")
	token := s.userToken(t, user)

	resp, env := s.do(t, jsonRequest(http.MethodGet, "/api/v1/wallet", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"balance":"5000.00","business_balance":"0.00","currency":"NGN"}`, string(env.Data))

	t.Run("Transfer", func(t *testing.T) {
		resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/wallet/transfer", token, map[string]any{
			"from": "balance", "to": "business_balance", "amount": "1500",
		}))
		require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
		assert.Equal(t, "3500.00", s.store.User(user.ID).Balance.StringFixed(2))
		assert.Equal(t, "1500.00", s.store.User(user.ID).BusinessBalance.StringFixed(2))
	})

	t.Run("SameBalanceRejected", func(t *testing.T) {
		resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/wallet/transfer", token, map[string]any{
			"from": "balance", "to": "balance", "amount": "1",
		}))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("Overdraw", func(t *testing.T) {
		resp, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/wallet/transfer", token, map[string]any{
			"from": "business_balance", "to": "balance", "amount": "99999",
		}))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INSUFFICIENT_FUNDS", env.Error.Code)
	})
}

func TestBankDepositReview(t *testing.T) {
	s := newServer(t)
	user := s.fixtures.CreateUser("NGN", "0")
	token := s.userToken(t, user)
	admin := s.adminToken(t)

	t.Run("MissingProof", func(t *testing.T) {
		resp, env := s.do(t, bankDepositRequest(t, token, "5000", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "PROOF_REQUIRED", env.Error.Code)
	})

	t.Run("NotANumber", func(t *testing.T) {
		resp, _ := s.do(t, bankDepositRequest(t, token, "five", pngProof()))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	resp, env := s.do(t, bankDepositRequest(t, token, "5000", pngProof()))
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "0.00", s.store.User(user.ID).Balance.StringFixed(2))

	resp, env = s.do(t, jsonRequest(http.MethodGet, "/admin/deposits?status=Pending", admin, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Items []struct {
			ID     uint   `json:"id"`
			Amount string `json:"amount"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Items, 1)
	depositID := list.Items[0].ID

	t.Run("Proof", func(t *testing.T) {
		resp, err := s.app.Test(jsonRequest(http.MethodGet, fmt.Sprintf("/admin/deposits/%d/proof", depositID), admin, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	})

	t.Run("ApproveOnce", func(t *testing.T) {
		path := fmt.Sprintf("/admin/deposits/%d/approve", depositID)
		resp, env := s.do(t, jsonRequest(http.MethodPost, path, admin, nil))
		require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
		assert.Equal(t, "5000.00", s.store.User(user.ID).Balance.StringFixed(2))

		resp, _ = s.do(t, jsonRequest(http.MethodPost, path, admin, nil))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp, _ = s.do(t, jsonRequest(http.MethodPost, fmt.Sprintf("/admin/deposits/%d/reject", depositID), admin, nil))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "5000.00", s.store.User(user.ID).Balance.StringFixed(2))
	})

	t.Run("UnknownDeposit", func(t *testing.T) {
		resp, _ := s.do(t, jsonRequest(http.MethodPost, "/admin/deposits/987654/approve", admin, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Export", func(t *testing.T) {
		resp, err := s.app.Test(jsonRequest(http.MethodGet, "/admin/deposits/export", admin, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
	})
}

func TestCryptomusWebhook_ForeignSourceForbidden(t *testing.T) {
	s := newServer(t)
	resp, env := s.do(t, jsonRequest(http.MethodPost, "/cryptomus-webhook", "", map[string]any{
		"order_id": "DEP-1", "status": "paid", "sign": "x",
	}))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "WEBHOOK_IP_NOT_ALLOWED", env.Error.Code)
}

func TestWithdrawHandler(t *testing.T) {
	s := newServer(t)
	user := s.fixtures.CreateUser("NGN", "1000")
	account := s.fixtures.CreateBankAccount(user)
	token := s.userToken(t, user)

	resp, env := s.do(t, jsonRequest(http.MethodPost, "/withdraw", token, map[string]any{
		"bank_id": account.ID, "amount": "5000",
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_FUNDS", env.Error.Code)
	assert.Empty(t, s.store.AllWithdrawals())

	resp, env = s.do(t, jsonRequest(http.MethodPost, "/withdraw", token, map[string]any{
		"bank_id": account.ID, "amount": "400",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "600.00", s.store.User(user.ID).Balance.StringFixed(2))
}

func TestProductPurchase_UnknownProduct(t *testing.T) {
	s := newServer(t)
	user := s.fixtures.CreateUser("NGN", "1000")
	resp, _ := s.do(t, jsonRequest(http.MethodPost, "/api/v1/products/4040/purchase", s.userToken(t, user), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Ambient(t *testing.T) {
	s := newServer(t)

	resp, env := s.do(t, jsonRequest(http.MethodGet, "/no/such/route", "", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	resp, _ = s.do(t, jsonRequest(http.MethodGet, "/health", "", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "smm_http_requests_total")
}
