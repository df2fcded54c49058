package businessflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/models"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngProof = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestDepositFlow_SubmitBankDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		resp, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID:    user.ID,
			Amount:    dec("5000"),
			Reference: "  GTB-12345 ",
			Proof:     pngProof,
		}, businessflow.NewClientMetadata("10.0.0.1", "test"))
		require.NoError(t, err)
		assert.Contains(t, resp.Reference, "#DEP")

		txs := h.store.AllTransactions()
		require.Len(t, txs, 1)
		assert.Equal(t, resp.Reference, txs[0].Reference)
		assert.Equal(t, models.TransactionStatusPending, txs[0].Status)
		assert.Equal(t, models.TransactionProviderBank, txs[0].Provider)

		deposits, err := h.store.PendingDeposits().ByFilter(ctx, models.PendingDepositFilter{}, 10, 0)
		require.NoError(t, err)
		require.Len(t, deposits, 1)
		deposit := deposits[0]
		assert.Equal(t, resp.Reference, deposit.Reference)
		assert.Equal(t, "GTB-12345", deposit.UserReference)
		assert.Equal(t, "image/png", deposit.ProofMimeType)
		assert.Equal(t, models.PendingDepositStatusPending, deposit.Status)

		// nothing is credited until review
		assert.Equal(t, "0.00", balanceOf(h, user.ID))
	})

	t.Run("BelowMinimum", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		_, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: user.ID, Amount: dec("999.99"), Reference: "x", Proof: pngProof,
		}, nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsInvalidAmount(err))
		assert.Empty(t, h.store.AllTransactions())
	})

	t.Run("MinimumConvertedForUSDUser", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("USD", "0")
		h.rates.EXPECT().Convert(gomock.Any(), gomock.Any(), "NGN", "USD").Return(dec("0.65"), nil)

		_, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: user.ID, Amount: dec("0.70"), Reference: "x", Proof: pngProof,
		}, nil)
		require.NoError(t, err)
	})

	t.Run("RateUnavailable", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("USD", "0")
		h.rates.EXPECT().Convert(gomock.Any(), gomock.Any(), "NGN", "USD").Return(dec("0"), errors.New("upstream down"))

		_, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: user.ID, Amount: dec("10"), Reference: "x", Proof: pngProof,
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrExchangeRateUnavailable)
	})

	t.Run("ProofMustBeImage", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		_, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: user.ID, Amount: dec("5000"), Reference: "x", Proof: []byte("just some text"),
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrProofNotImage)

		_, err = h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: user.ID, Amount: dec("5000"), Reference: "x",
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrProofRequired)
	})

	t.Run("ReferenceRequired", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		_, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: user.ID, Amount: dec("5000"), Reference: "   ", Proof: pngProof,
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrReferenceRequired)
	})

	t.Run("SaveFailureRollsBack", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")
		h.store.FailSave = func(table string) error {
			if table == "audit_log" {
				return errors.New("disk full")
			}
			return nil
		}

		_, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: user.ID, Amount: dec("5000"), Reference: "x", Proof: pngProof,
		}, nil)
		require.Error(t, err)
		assert.Empty(t, h.store.AllTransactions())
	})
}

func TestDepositFlow_CreateCryptomusPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")
		h.gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in services.CreatePaymentInput) (*services.CreatePaymentResult, error) {
				assert.Equal(t, "USD", in.Currency)
				assert.Equal(t, "25.00", in.Amount.StringFixed(2))
				return &services.CreatePaymentResult{UUID: "uuid-1", OrderID: in.OrderID, PaymentURL: "https://pay.cryptomus.com/pay/uuid-1"}, nil
			})

		resp, err := h.deposits.CreateCryptomusPayment(ctx, &dto.CreateCryptomusPaymentRequest{
			UserID: user.ID, CryptomusAmount: dec("25"), Currency: "usd",
		}, nil)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "https://pay.cryptomus.com/pay/uuid-1", resp.PaymentURL)

		txs := h.store.AllTransactions()
		require.Len(t, txs, 1)
		assert.Equal(t, resp.Reference, txs[0].Reference)
		assert.Equal(t, models.TransactionProviderCryptomus, txs[0].Provider)
		assert.Equal(t, models.TransactionStatusPending, txs[0].Status)
		assert.Equal(t, "USD", txs[0].Currency)
		assert.Contains(t, string(txs[0].Metadata), "uuid-1")
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")
		h.gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

		_, err := h.deposits.CreateCryptomusPayment(ctx, &dto.CreateCryptomusPaymentRequest{
			UserID: user.ID, CryptomusAmount: dec("25"), Currency: "USD",
		}, nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsProviderError(err))
		assert.Empty(t, h.store.AllTransactions())
	})

	t.Run("UnsupportedCurrency", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		_, err := h.deposits.CreateCryptomusPayment(ctx, &dto.CreateCryptomusPaymentRequest{
			UserID: user.ID, CryptomusAmount: dec("25"), Currency: "EUR",
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrUnsupportedCurrency)
	})

	t.Run("BelowMinimum", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		_, err := h.deposits.CreateCryptomusPayment(ctx, &dto.CreateCryptomusPaymentRequest{
			UserID: user.ID, CryptomusAmount: dec("0.5"), Currency: "USD",
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrAmountTooLow)
	})

	t.Run("WalletCurrencyMismatch", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		_, err := h.deposits.CreateCryptomusPayment(ctx, &dto.CreateCryptomusPaymentRequest{
			UserID: user.ID, CryptomusAmount: dec("25"), Currency: "USD", UserCurrency: "usd",
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrUnsupportedCurrency)
		assert.True(t, businessflow.IsValidation(err))
		assert.Empty(t, h.store.AllTransactions())
	})

	t.Run("WalletCurrencyMatchesAccount", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")
		h.gateway.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).
			Return(&services.CreatePaymentResult{UUID: "uuid-2", PaymentURL: "https://pay.cryptomus.com/pay/uuid-2"}, nil)

		_, err := h.deposits.CreateCryptomusPayment(ctx, &dto.CreateCryptomusPaymentRequest{
			UserID: user.ID, CryptomusAmount: dec("25"), Currency: "USD", UserCurrency: "ngn",
		}, nil)
		require.NoError(t, err)
		txs := h.store.AllTransactions()
		require.Len(t, txs, 1)
		assert.NotContains(t, string(txs[0].Metadata), "user_currency")
	})
}

func TestDepositFlow_ListDeposits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.fixtures.CreateUser("NGN", "0")
	bob := h.fixtures.CreateUser("NGN", "0")

	var refs []string
	for _, u := range []uint{alice.ID, alice.ID, bob.ID} {
		resp, err := h.deposits.SubmitBankDeposit(ctx, &dto.BankDepositRequest{
			UserID: u, Amount: dec("2000"), Reference: "ref", Proof: pngProof,
		}, nil)
		require.NoError(t, err)
		refs = append(refs, resp.Reference)
	}

	list, err := h.deposits.ListDeposits(ctx, &dto.ListDepositsRequest{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	for _, item := range list.Items {
		assert.Contains(t, refs[:2], item.Reference)
		assert.Equal(t, string(models.TransactionStatusPending), item.Status)
	}

	paged, err := h.deposits.ListDeposits(ctx, &dto.ListDepositsRequest{UserID: alice.ID, Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, 2, paged.Page)
}
