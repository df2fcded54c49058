package businessflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminDepositFlow_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("CreditsOnce", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "100")
		admin := h.fixtures.CreateAdmin("root")
		deposit := h.fixtures.CreatePendingDeposit(user, "5000", "#DEP000001aaaa")

		events, cancel := h.events.Subscribe(user.ID)
		defer cancel()

		resp, err := h.review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: admin.ID, DepositID: deposit.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, string(models.PendingDepositStatusApproved), resp.Status)
		assert.Equal(t, "5100.00", balanceOf(h, user.ID))

		stored := h.store.PendingDeposit(deposit.ID)
		assert.Equal(t, models.PendingDepositStatusApproved, stored.Status)
		require.NotNil(t, stored.ReviewedBy)
		assert.Equal(t, admin.ID, *stored.ReviewedBy)

		txs := h.store.AllTransactions()
		require.Len(t, txs, 1)
		assert.Equal(t, models.TransactionStatusSuccess, txs[0].Status)

		ev := <-events
		assert.Equal(t, "balance.changed", ev.Type)

		_, err = h.review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: admin.ID, DepositID: deposit.ID}, nil)
		assert.ErrorIs(t, err, businessflow.ErrDepositAlreadyProcessed)
		assert.Equal(t, "5100.00", balanceOf(h, user.ID))
	})

	t.Run("ConcurrentApprovalsCreditOnce", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")
		admin := h.fixtures.CreateAdmin("root")
		deposit := h.fixtures.CreatePendingDeposit(user, "2500", "#DEP000002bbbb")

		var wg sync.WaitGroup
		var mu sync.Mutex
		var okCount, conflictCount int
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: admin.ID, DepositID: deposit.ID}, nil)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					okCount++
				case businessflow.IsStateConflict(err):
					conflictCount++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, okCount)
		assert.Equal(t, 7, conflictCount)
		assert.Equal(t, "2500.00", balanceOf(h, user.ID))
		assert.Len(t, h.store.AllCountedDeposits(), 1)
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: 1, DepositID: 404}, nil)
		assert.ErrorIs(t, err, businessflow.ErrDepositNotFound)
	})

	t.Run("FailureLeavesDepositPending", func(t *testing.T) {
		h := newHarness(t)
		referrer := h.fixtures.CreateUser("NGN", "0")
		user := h.fixtures.CreateUser("NGN", "0")
		h.fixtures.LinkReferral(referrer, user)
		deposit := h.fixtures.CreatePendingDeposit(user, "1000", "#DEP000003cccc")
		h.store.FailSave = func(table string) error {
			if table == "commissions" {
				return errors.New("constraint violation")
			}
			return nil
		}

		_, err := h.review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: 1, DepositID: deposit.ID}, nil)
		require.Error(t, err)

		assert.Equal(t, models.PendingDepositStatusPending, h.store.PendingDeposit(deposit.ID).Status)
		assert.Equal(t, "0.00", balanceOf(h, user.ID))
		assert.Empty(t, h.store.AllCountedDeposits())
		txs := h.store.AllTransactions()
		require.Len(t, txs, 1)
		assert.Equal(t, models.TransactionStatusPending, txs[0].Status)
	})
}

func TestAdminDepositFlow_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")
		deposit := h.fixtures.CreatePendingDeposit(user, "5000", "#DEP000004dddd")
		note := "blurry receipt"

		resp, err := h.review.Reject(ctx, &dto.ReviewDepositRequest{AdminID: 1, DepositID: deposit.ID, Note: &note}, nil)
		require.NoError(t, err)
		assert.Equal(t, string(models.PendingDepositStatusRejected), resp.Status)

		// the row is kept for the record
		stored := h.store.PendingDeposit(deposit.ID)
		assert.Equal(t, models.PendingDepositStatusRejected, stored.Status)
		assert.Equal(t, models.TransactionStatusCanceled, h.store.AllTransactions()[0].Status)
		assert.Equal(t, "0.00", balanceOf(h, user.ID))

		notes := h.store.AllNotifications()
		require.Len(t, notes, 1)
		assert.Contains(t, notes[0].Message, note)

		_, err = h.review.Reject(ctx, &dto.ReviewDepositRequest{AdminID: 1, DepositID: deposit.ID}, nil)
		assert.ErrorIs(t, err, businessflow.ErrDepositAlreadyProcessed)
	})

	t.Run("IsTransactional", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")
		deposit := h.fixtures.CreatePendingDeposit(user, "5000", "#DEP000005eeee")
		h.store.FailSave = func(table string) error {
			if table == "notifications" {
				return errors.New("connection reset")
			}
			return nil
		}

		_, err := h.review.Reject(ctx, &dto.ReviewDepositRequest{AdminID: 1, DepositID: deposit.ID}, nil)
		require.Error(t, err)
		assert.Equal(t, models.PendingDepositStatusPending, h.store.PendingDeposit(deposit.ID).Status)
		assert.Equal(t, models.TransactionStatusPending, h.store.AllTransactions()[0].Status)
	})
}

func TestAdminDepositFlow_ReferralTiers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	referrer := h.fixtures.CreateUser("NGN", "0")
	user := h.fixtures.CreateUser("NGN", "0")
	h.fixtures.LinkReferral(referrer, user)

	for i := 1; i <= 4; i++ {
		deposit := h.fixtures.CreatePendingDeposit(user, "10000", fmt.Sprintf("#DEP00000%dffff", i))
		_, err := h.review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: 1, DepositID: deposit.ID}, nil)
		require.NoError(t, err)
	}

	commissions := h.store.AllCommissions()
	require.Len(t, commissions, 3)
	got := map[int]string{}
	for _, c := range commissions {
		assert.Equal(t, referrer.ID, c.ReferrerID)
		got[c.DepositNumber] = c.Amount.StringFixed(2)
	}
	assert.Equal(t, map[int]string{1: "1000.00", 2: "600.00", 3: "300.00"}, got)
	assert.Len(t, h.store.AllCountedDeposits(), 3)
	assert.True(t, h.store.Referral(user.ID).CommissionEarned)

	// commission is tracked apart from the referrer's spendable balance
	assert.Equal(t, "0.00", balanceOf(h, referrer.ID))
	assert.Equal(t, "40000.00", balanceOf(h, user.ID))

	summary, err := h.referrals.Summary(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ReferredCount)
	assert.Equal(t, "1900.00", summary.TotalEarned)
	assert.Equal(t, "1900.00", summary.Available)
}

func TestAdminDepositFlow_ListAndExport(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.fixtures.CreateUser("NGN", "0")
	h.fixtures.CreatePendingDeposit(user, "1000", "#DEP000010aaaa")
	second := h.fixtures.CreatePendingDeposit(user, "2000", "#DEP000011bbbb")
	_, err := h.review.Reject(ctx, &dto.ReviewDepositRequest{AdminID: 1, DepositID: second.ID}, nil)
	require.NoError(t, err)

	list, err := h.review.List(ctx, &dto.AdminListDepositsRequest{Status: "Pending"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "#DEP000010aaaa", list.Items[0].Reference)

	proof, err := h.review.Proof(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", proof.MimeType)

	file, err := h.review.Export(ctx, &dto.AdminListDepositsRequest{})
	require.NoError(t, err)
	assert.Equal(t, "deposits.xlsx", file.Filename)
	assert.NotEmpty(t, file.Data)
}
