package businessflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("CreditAndDebit", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "100")

		balance, err := h.ledger.Credit(ctx, user.ID, dec("50.25"), models.BalanceFieldMain, &businessflow.LedgerNote{Title: "t", Message: "m"})
		require.NoError(t, err)
		assert.Equal(t, "150.25", balance.StringFixed(2))

		balance, err = h.ledger.Debit(ctx, user.ID, dec("150.25"), models.BalanceFieldMain, nil)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
		assert.Len(t, h.store.AllNotifications(), 1)
	})

	t.Run("DebitInsufficientFundsChangesNothing", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "10")

		_, err := h.ledger.Debit(ctx, user.ID, dec("10.01"), models.BalanceFieldMain, &businessflow.LedgerNote{Title: "t", Message: "m"})
		require.Error(t, err)
		assert.True(t, businessflow.IsInsufficientFunds(err))
		assert.Equal(t, "10.00", balanceOf(h, user.ID))
		assert.Empty(t, h.store.AllNotifications())
	})

	t.Run("RejectsBadInput", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "10")

		_, err := h.ledger.Debit(ctx, user.ID, dec("0"), models.BalanceFieldMain, nil)
		assert.ErrorIs(t, err, businessflow.ErrInvalidAmount)

		_, err = h.ledger.Credit(ctx, user.ID, dec("1"), models.BalanceField("bonus"), nil)
		assert.ErrorIs(t, err, businessflow.ErrInvalidBalanceField)

		_, err = h.ledger.Credit(ctx, 9999, dec("1"), models.BalanceFieldMain, nil)
		assert.ErrorIs(t, err, businessflow.ErrUserNotFound)
	})

	t.Run("ConcurrentDebitsNeverOverdraw", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "500")

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.ledger.Debit(ctx, user.ID, dec("100"), models.BalanceFieldMain, nil); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, succeeded)
		assert.Equal(t, "0.00", balanceOf(h, user.ID))
	})

	t.Run("Transfer", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "300")

		resp, err := h.ledger.Transfer(ctx, &dto.WalletTransferRequest{
			UserID: user.ID,
			From:   string(models.BalanceFieldMain),
			To:     string(models.BalanceFieldBusiness),
			Amount: dec("120"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "180.00", resp.Balance)
		assert.Equal(t, "120.00", resp.BusinessBalance)

		txs := h.store.AllTransactions()
		require.Len(t, txs, 1)
		assert.Equal(t, models.TransactionTypeTransfer, txs[0].Type)
		assert.Equal(t, models.TransactionStatusSuccess, txs[0].Status)
	})

	t.Run("TransferInsufficientFundsPersistsNothing", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "50")

		_, err := h.ledger.Transfer(ctx, &dto.WalletTransferRequest{
			UserID: user.ID,
			From:   string(models.BalanceFieldMain),
			To:     string(models.BalanceFieldBusiness),
			Amount: dec("60"),
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrInsufficientFunds)

		got := h.store.User(user.ID)
		assert.Equal(t, "50.00", got.Balance.StringFixed(2))
		assert.True(t, got.BusinessBalance.IsZero())
		assert.Empty(t, h.store.AllTransactions())
		assert.Empty(t, h.store.AllAuditLogs())
	})

	t.Run("TransferSameField", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "50")

		_, err := h.ledger.Transfer(ctx, &dto.WalletTransferRequest{
			UserID: user.ID,
			From:   string(models.BalanceFieldMain),
			To:     string(models.BalanceFieldMain),
			Amount: dec("1"),
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrSameBalanceField)
	})
}
