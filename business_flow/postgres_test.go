package businessflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/mocks"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	testingutil "github.com/amirphl/smm-panel/testing"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAdminDepositFlow_Postgres(t *testing.T) {
	if !testingutil.GetTestDBConfig().Available() {
		t.Skip("TEST_DB_HOST not set")
	}
	ctx := context.Background()

	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		db := tdb.DB
		ctrl := gomock.NewController(t)
		notifier := mocks.NewMockNotificationService(ctrl)
		notifier.EXPECT().SendEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		tx := repository.NewTransactor(db)
		users := repository.NewUserRepository(db)
		txRepo := repository.NewTransactionRepository(db)
		pending := repository.NewPendingDepositRepository(db)
		notifs := repository.NewNotificationRepository(db)
		audit := repository.NewAuditLogRepository(db)

		ledger := businessflow.NewLedger(tx, users, txRepo, notifs, audit, nil)
		referrals := businessflow.NewReferralFlow(tx, users, repository.NewCountedDepositRepository(db),
			repository.NewReferralRepository(db), repository.NewCommissionRepository(db),
			repository.NewReferralWithdrawalRepository(db), repository.NewBankAccountRepository(db),
			notifs, audit, decimal.NewFromInt(1000), nil)
		review := businessflow.NewAdminDepositFlow(tx, users, pending, txRepo, notifs, audit,
			ledger, referrals, notifier, services.NewLocalEventBus(16), nil)

		t.Run("ConcurrentApprovalsCreditOnce", func(t *testing.T) {
			user, admin, deposit := seedBankDeposit(t, db, "5000.00", "#DEPPG0000001")

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				approved int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: admin.ID, DepositID: deposit.ID}, nil)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						approved++
					case errors.Is(err, businessflow.ErrDepositAlreadyProcessed),
						errors.Is(err, businessflow.ErrTransactionStateConflict):
					default:
						t.Errorf("unexpected approve error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, approved)

			got, err := users.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, "5000.00", got.Balance.StringFixed(2))

			d, err := pending.ByID(ctx, deposit.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PendingDepositStatusApproved, d.Status)

			txn, err := txRepo.ByReference(ctx, deposit.Reference)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
		})

		t.Run("RejectAfterApproveRefused", func(t *testing.T) {
			user, admin, deposit := seedBankDeposit(t, db, "2000.00", "#DEPPG0000002")

			_, err := review.Approve(ctx, &dto.ReviewDepositRequest{AdminID: admin.ID, DepositID: deposit.ID}, nil)
			require.NoError(t, err)
			_, err = review.Reject(ctx, &dto.ReviewDepositRequest{AdminID: admin.ID, DepositID: deposit.ID}, nil)
			assert.ErrorIs(t, err, businessflow.ErrDepositAlreadyProcessed)

			got, err := users.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, "2000.00", got.Balance.StringFixed(2))
		})
		return nil
	})
	require.NoError(t, err)
}

// seedBankDeposit writes a user, an admin and a pending bank deposit with its
// pending transaction.
func seedBankDeposit(t *testing.T, db *gorm.DB, amount, reference string) (*models.User, *models.Admin, *models.PendingDeposit) {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()

	user := &models.User{
		Email:        id.String() + "@example.com",
		Username:     "u" + id.String()[:8],
		PasswordHash: "x",
		Currency:     "NGN",
	}
	require.NoError(t, repository.NewUserRepository(db).Save(ctx, user))

	admin := &models.Admin{Username: "a" + id.String()[:8], PasswordHash: "x"}
	require.NoError(t, repository.NewAdminRepository(db).Save(ctx, admin))

	value := decimal.RequireFromString(amount)
	require.NoError(t, repository.NewTransactionRepository(db).Save(ctx, &models.Transaction{
		UserID:    user.ID,
		Type:      models.TransactionTypeDeposit,
		Status:    models.TransactionStatusPending,
		Amount:    value,
		Currency:  "NGN",
		Provider:  models.TransactionProviderBank,
		Reference: reference,
	}))

	deposit := &models.PendingDeposit{
		UserID:        user.ID,
		Amount:        value,
		Currency:      "NGN",
		Reference:     reference,
		UserReference: "bank transfer " + reference,
		Status:        models.PendingDepositStatusPending,
	}
	require.NoError(t, repository.NewPendingDepositRepository(db).Save(ctx, deposit))
	return user, admin, deposit
}
