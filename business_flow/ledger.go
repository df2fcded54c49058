package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/metrics"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/amirphl/smm-panel/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerNote is the user-facing notification written with a mutation. A nil
// note writes none.
type LedgerNote struct {
	Title   string
	Message string
}

// Ledger mutates user balances. Each call runs in the caller's transaction
// when there is one and in its own otherwise.
type Ledger interface {
	Credit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField, note *LedgerNote) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField, note *LedgerNote) (decimal.Decimal, error)
	Transfer(ctx context.Context, req *dto.WalletTransferRequest, metadata *ClientMetadata) (*dto.WalletResponse, error)
	Wallet(ctx context.Context, userID uint) (*dto.WalletResponse, error)
}

type LedgerImpl struct {
	tx        repository.Transactor
	userRepo  repository.UserRepository
	txRepo    repository.TransactionRepository
	notifRepo repository.NotificationRepository
	auditRepo repository.AuditLogRepository
	logger    *zap.Logger
}

func NewLedger(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	txRepo repository.TransactionRepository,
	notifRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	logger *zap.Logger,
) Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerImpl{
		tx:        tx,
		userRepo:  userRepo,
		txRepo:    txRepo,
		notifRepo: notifRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (l *LedgerImpl) Credit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField, note *LedgerNote) (decimal.Decimal, error) {
	return l.mutate(ctx, "credit", userID, amount, field, note, l.userRepo.Credit)
}

func (l *LedgerImpl) Debit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField, note *LedgerNote) (decimal.Decimal, error) {
	return l.mutate(ctx, "debit", userID, amount, field, note, l.userRepo.Debit)
}

type ledgerStatement func(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField) (decimal.Decimal, error)

func (l *LedgerImpl) mutate(ctx context.Context, kind string, userID uint, amount decimal.Decimal, field models.BalanceField, note *LedgerNote, stmt ledgerStatement) (decimal.Decimal, error) {
	if !field.Valid() {
		return decimal.Zero, ErrInvalidBalanceField
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := l.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		balance, err = stmt(txCtx, userID, amount, field)
		if err != nil {
			return translateLedgerError(err)
		}
		if note == nil {
			return nil
		}
		return l.notifRepo.Save(txCtx, &models.Notification{
			UserID:  userID,
			Title:   note.Title,
			Message: note.Message,
		})
	})

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		l.logger.Debug("ledger mutation rejected",
			zap.String("kind", kind),
			zap.Uint("user_id", userID),
			zap.String("field", string(field)),
			zap.String("amount", amount.String()),
			zap.Error(err))
	}
	metrics.LedgerMutations.WithLabelValues(kind, string(field), outcome).Inc()
	return balance, err
}

// Transfer moves funds between the caller's main and business balances
func (l *LedgerImpl) Transfer(ctx context.Context, req *dto.WalletTransferRequest, metadata *ClientMetadata) (*dto.WalletResponse, error) {
	from, to := models.BalanceField(req.From), models.BalanceField(req.To)
	if !from.Valid() || !to.Valid() {
		return nil, ErrInvalidBalanceField
	}
	if from == to {
		return nil, ErrSameBalanceField
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount := req.Amount.Round(2)

	reference, err := utils.NewReference(utils.TransferReferencePrefix)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = l.tx.Do(ctx, func(txCtx context.Context) error {
		u, err := l.userRepo.ByID(txCtx, req.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		if !u.CanTransact() {
			return ErrAccountInactive
		}

		if _, err := l.Debit(txCtx, u.ID, amount, from, nil); err != nil {
			return err
		}
		if _, err := l.Credit(txCtx, u.ID, amount, to, &LedgerNote{
			Title:   "Wallet transfer",
			Message: fmt.Sprintf("%s %s moved from %s to %s.", amount.StringFixed(2), u.Currency, from, to),
		}); err != nil {
			return err
		}

		if err := l.txRepo.Save(txCtx, &models.Transaction{
			UserID:      u.ID,
			Type:        models.TransactionTypeTransfer,
			Status:      models.TransactionStatusSuccess,
			Amount:      amount,
			Currency:    u.Currency,
			Provider:    models.TransactionProviderInternal,
			Reference:   reference,
			Description: fmt.Sprintf("transfer %s -> %s", from, to),
		}); err != nil {
			return err
		}

		userID := u.ID
		audit := newAuditLog(models.AuditActionWalletTransfer, models.AuditEntityUser, fmt.Sprint(u.ID),
			"wallet transfer", metadata, map[string]any{"from": from, "to": to, "amount": amount.String(), "reference": reference})
		audit.UserID = &userID
		if err := l.auditRepo.Save(txCtx, audit); err != nil {
			return err
		}

		user, err = l.userRepo.ByID(txCtx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toWalletResponse(user), nil
}

func (l *LedgerImpl) Wallet(ctx context.Context, userID uint) (*dto.WalletResponse, error) {
	u, err := l.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return toWalletResponse(u), nil
}

func toWalletResponse(u *models.User) *dto.WalletResponse {
	return &dto.WalletResponse{
		Balance:         u.Balance.StringFixed(2),
		BusinessBalance: u.BusinessBalance.StringFixed(2),
		Currency:        u.Currency,
	}
}
