package businessflow_test

import (
	"testing"

	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/config"
	"github.com/amirphl/smm-panel/mocks"
	testingutil "github.com/amirphl/smm-panel/testing"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
)

// harness wires every flow onto one in-memory store and a set of mocks
type harness struct {
	store    *testingutil.MemStore
	fixtures *testingutil.TestFixtures

	gateway  *mocks.MockCryptoPaymentGateway
	smm      *mocks.MockSMMProvider
	sms      *mocks.MockSMSVerificationProvider
	rates    *mocks.MockExchangeRateService
	notifier *mocks.MockNotificationService
	events   *services.LocalEventBus

	ledger      businessflow.Ledger
	referrals   businessflow.ReferralFlow
	deposits    businessflow.DepositFlow
	review      businessflow.AdminDepositFlow
	webhook     businessflow.CryptomusWebhookFlow
	withdrawals businessflow.WithdrawalFlow
	orders      businessflow.OrderFlow
	reconciler  businessflow.OrderReconciler
}

var webhookIPs = []string{"91.227.144.54"}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	store := testingutil.NewMemStore()
	h := &harness{
		store:    store,
		fixtures: testingutil.NewTestFixtures(store),
		gateway:  mocks.NewMockCryptoPaymentGateway(ctrl),
		smm:      mocks.NewMockSMMProvider(ctrl),
		sms:      mocks.NewMockSMSVerificationProvider(ctrl),
		rates:    mocks.NewMockExchangeRateService(ctrl),
		notifier: mocks.NewMockNotificationService(ctrl),
		events:   services.NewLocalEventBus(16),
	}
	h.notifier.EXPECT().SendEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.notifier.EXPECT().NotifyAdmin(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	h.ledger = businessflow.NewLedger(store, store.Users(), store.Transactions(), store.Notifications(), store.AuditLogs(), nil)
	h.referrals = businessflow.NewReferralFlow(store, store.Users(), store.CountedDeposits(), store.Referrals(),
		store.Commissions(), store.ReferralWithdrawals(), store.BankAccounts(), store.Notifications(), store.AuditLogs(),
		decimal.NewFromInt(1000), nil)
	h.deposits = businessflow.NewDepositFlow(store, store.Users(), store.PendingDeposits(), store.Transactions(), store.AuditLogs(),
		h.gateway, h.rates, h.notifier,
		config.DepositConfig{
			MinBankAmountNGN: decimal.NewFromInt(1000),
			MinCryptoUSD:     decimal.NewFromInt(1),
			MinCryptoNGN:     decimal.NewFromInt(1000),
		},
		config.CryptomusConfig{CallbackURL: "https://api.example.com/api/v1/cryptomus/webhook"},
		nil)
	h.review = businessflow.NewAdminDepositFlow(store, store.Users(), store.PendingDeposits(), store.Transactions(),
		store.Notifications(), store.AuditLogs(), h.ledger, h.referrals, h.notifier, h.events, nil)
	h.webhook = businessflow.NewCryptomusWebhookFlow(store, store.Users(), store.Transactions(), store.AuditLogs(),
		h.ledger, h.gateway, h.rates, h.events, webhookIPs, nil)
	h.withdrawals = businessflow.NewWithdrawalFlow(store, store.Users(), store.BankAccounts(), store.Withdrawals(),
		store.Transactions(), store.Notifications(), store.AuditLogs(), h.ledger, nil)
	h.orders = businessflow.NewOrderFlow(store, store.Users(), store.SMMOrders(), store.SMSOrders(), store.Products(),
		store.AuditLogs(), h.ledger, h.smm, h.sms, h.rates,
		config.ProviderConfig{Currency: "NGN", PriceMultiplier: decimal.NewFromInt(1)},
		config.ProviderConfig{Currency: "NGN", PriceMultiplier: decimal.NewFromInt(2)},
		nil)
	h.reconciler = businessflow.NewOrderReconciler(store, store.Users(), store.Transactions(), store.SMMOrders(),
		store.SMSOrders(), store.AuditLogs(), h.ledger, h.smm, h.sms, h.events, 2, nil)
	return h
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balanceOf(h *harness, userID uint) string {
	u := h.store.User(userID)
	return u.Balance.StringFixed(2)
}
