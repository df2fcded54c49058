package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// commissionTiers maps a counted deposit ordinal to its percentage
var commissionTiers = map[int]decimal.Decimal{
	1: decimal.NewFromInt(10),
	2: decimal.NewFromInt(6),
	3: decimal.NewFromInt(3),
}

// CommissionPercentage returns the tier for a deposit ordinal, zero past the third
func CommissionPercentage(ordinal int) decimal.Decimal {
	if p, ok := commissionTiers[ordinal]; ok {
		return p
	}
	return decimal.Zero
}

// ReferralFlow counts approved deposits and pays referral commission on the first three
type ReferralFlow interface {
	// RecordDeposit must run inside the approval transaction. It returns the
	// commission written, or nil when none was due.
	RecordDeposit(ctx context.Context, userID uint, amount decimal.Decimal, transactionID uint) (*models.Commission, error)
	Summary(ctx context.Context, userID uint) (*dto.ReferralSummaryResponse, error)
	Withdraw(ctx context.Context, req *dto.ReferralWithdrawRequest, metadata *ClientMetadata) (*dto.ReferralWithdrawResponse, error)
}

type ReferralFlowImpl struct {
	tx             repository.Transactor
	userRepo       repository.UserRepository
	countedRepo    repository.CountedDepositRepository
	referralRepo   repository.ReferralRepository
	commissionRepo repository.CommissionRepository
	withdrawRepo   repository.ReferralWithdrawalRepository
	bankRepo       repository.BankAccountRepository
	notifRepo      repository.NotificationRepository
	auditRepo      repository.AuditLogRepository
	minWithdrawal  decimal.Decimal
	logger         *zap.Logger
}

func NewReferralFlow(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	countedRepo repository.CountedDepositRepository,
	referralRepo repository.ReferralRepository,
	commissionRepo repository.CommissionRepository,
	withdrawRepo repository.ReferralWithdrawalRepository,
	bankRepo repository.BankAccountRepository,
	notifRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	minWithdrawal decimal.Decimal,
	logger *zap.Logger,
) ReferralFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferralFlowImpl{
		tx:             tx,
		userRepo:       userRepo,
		countedRepo:    countedRepo,
		referralRepo:   referralRepo,
		commissionRepo: commissionRepo,
		withdrawRepo:   withdrawRepo,
		bankRepo:       bankRepo,
		notifRepo:      notifRepo,
		auditRepo:      auditRepo,
		minWithdrawal:  minWithdrawal,
		logger:         logger,
	}
}

func (f *ReferralFlowImpl) RecordDeposit(ctx context.Context, userID uint, amount decimal.Decimal, transactionID uint) (*models.Commission, error) {
	var commission *models.Commission
	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		count, err := f.countedRepo.CountByUser(txCtx, userID)
		if err != nil {
			return err
		}
		if count >= models.MaxCountedDeposits {
			return nil
		}
		ordinal := int(count) + 1
		if err := f.countedRepo.Save(txCtx, &models.CountedDeposit{
			UserID:        userID,
			DepositNumber: ordinal,
			Amount:        amount,
			TransactionID: transactionID,
		}); err != nil {
			return err
		}

		referral, err := f.referralRepo.LockByReferredID(txCtx, userID)
		if err != nil {
			return err
		}
		if referral == nil || referral.CommissionEarned {
			return nil
		}

		percentage := CommissionPercentage(ordinal)
		c := &models.Commission{
			ReferrerID:    referral.ReferrerID,
			ReferredID:    userID,
			DepositNumber: ordinal,
			Percentage:    percentage,
			Amount:        amount.Mul(percentage).Div(decimal.NewFromInt(100)).Round(2),
		}
		inserted, err := f.commissionRepo.SaveIfAbsent(txCtx, c)
		if err != nil {
			return err
		}
		if inserted {
			commission = c
			if err := f.notifRepo.Save(txCtx, &models.Notification{
				UserID:  referral.ReferrerID,
				Title:   "Referral commission earned",
				Message: fmt.Sprintf("You earned %s commission on a referred user's deposit #%d.", c.Amount.StringFixed(2), ordinal),
			}); err != nil {
				return err
			}
			referrerID := referral.ReferrerID
			audit := newAuditLog(models.AuditActionCommissionPaid, models.AuditEntityUser, fmt.Sprint(referrerID),
				"referral commission", nil, map[string]any{
					"referred_id":    userID,
					"deposit_number": ordinal,
					"percentage":     percentage.String(),
					"amount":         c.Amount.String(),
				})
			audit.UserID = &referrerID
			if err := f.auditRepo.Save(txCtx, audit); err != nil {
				return err
			}
		}

		if ordinal == models.MaxCountedDeposits {
			return f.referralRepo.MarkCommissionEarned(txCtx, referral.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if commission != nil {
		f.logger.Info("referral commission recorded",
			zap.Uint("referrer_id", commission.ReferrerID),
			zap.Uint("referred_id", userID),
			zap.Int("deposit_number", commission.DepositNumber),
			zap.String("amount", commission.Amount.String()))
	}
	return commission, nil
}

func (f *ReferralFlowImpl) summary(ctx context.Context, userID uint) (*models.ReferralSummary, error) {
	referred, err := f.referralRepo.CountByReferrer(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := f.commissionRepo.SumByReferrer(ctx, userID)
	if err != nil {
		return nil, err
	}
	withdrawn, err := f.withdrawRepo.SumActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.ReferralSummary{
		ReferredCount:  referred,
		TotalEarned:    earned,
		TotalWithdrawn: withdrawn,
		Available:      earned.Sub(withdrawn),
	}, nil
}

func (f *ReferralFlowImpl) Summary(ctx context.Context, userID uint) (*dto.ReferralSummaryResponse, error) {
	s, err := f.summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.ReferralSummaryResponse{
		ReferredCount:  s.ReferredCount,
		TotalEarned:    s.TotalEarned.StringFixed(2),
		TotalWithdrawn: s.TotalWithdrawn.StringFixed(2),
		Available:      s.Available.StringFixed(2),
	}, nil
}

func (f *ReferralFlowImpl) Withdraw(ctx context.Context, req *dto.ReferralWithdrawRequest, metadata *ClientMetadata) (*dto.ReferralWithdrawResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount := req.Amount.Round(2)
	if amount.LessThan(f.minWithdrawal) {
		return nil, NewBusinessErrorf("REFERRAL_WITHDRAWAL_TOO_LOW", "minimum referral withdrawal is %s", ErrAmountTooLow, f.minWithdrawal.StringFixed(2))
	}

	var resp *dto.ReferralWithdrawResponse
	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		// serialises concurrent withdrawals of the same referrer
		user, err := f.userRepo.LockByID(txCtx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if !user.CanTransact() {
			return ErrAccountInactive
		}

		account, err := f.bankRepo.ByID(txCtx, req.BankID)
		if err != nil {
			return err
		}
		if account == nil || account.UserID != user.ID {
			return ErrBankAccountNotFound
		}

		s, err := f.summary(txCtx, user.ID)
		if err != nil {
			return err
		}
		if s.Available.LessThan(amount) {
			return ErrInsufficientReferralBalance
		}

		w := &models.ReferralWithdrawal{
			UserID:        user.ID,
			BankAccountID: account.ID,
			Amount:        amount,
			Status:        models.PayoutStatusPending,
		}
		if err := f.withdrawRepo.Save(txCtx, w); err != nil {
			return err
		}
		if err := f.notifRepo.Save(txCtx, &models.Notification{
			UserID:  user.ID,
			Title:   "Referral withdrawal requested",
			Message: fmt.Sprintf("Your referral withdrawal of %s is being processed.", amount.StringFixed(2)),
		}); err != nil {
			return err
		}
		userID := user.ID
		audit := newAuditLog(models.AuditActionWithdrawRequested, models.AuditEntityUser, fmt.Sprint(user.ID),
			"referral withdrawal requested", metadata, map[string]any{"referral_withdrawal_id": w.ID, "amount": amount.String()})
		audit.UserID = &userID
		if err := f.auditRepo.Save(txCtx, audit); err != nil {
			return err
		}

		resp = &dto.ReferralWithdrawResponse{
			ID:        w.ID,
			Amount:    amount.StringFixed(2),
			Status:    string(w.Status),
			Available: s.Available.Sub(amount).StringFixed(2),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
