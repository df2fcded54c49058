package businessflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/amirphl/smm-panel/utils"
	"go.uber.org/zap"
)

// WithdrawalFlow pays out the main balance to a user's bank account. The debit
// happens on request; rejection credits it back.
type WithdrawalFlow interface {
	Withdraw(ctx context.Context, req *dto.WithdrawRequest, metadata *ClientMetadata) (*dto.WithdrawResponse, error)
	AddBankAccount(ctx context.Context, req *dto.AddBankAccountRequest) (*dto.BankAccountDTO, error)
	ListBankAccounts(ctx context.Context, userID uint) ([]dto.BankAccountDTO, error)
	ListWithdrawals(ctx context.Context, req *dto.ListWithdrawalsRequest) (*dto.ListWithdrawalsResponse, error)

	// Admin
	Approve(ctx context.Context, req *dto.ReviewWithdrawalRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error)
	Reject(ctx context.Context, req *dto.ReviewWithdrawalRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error)
	AdminList(ctx context.Context, req *dto.ListWithdrawalsRequest) (*dto.ListWithdrawalsResponse, error)
	Export(ctx context.Context, req *dto.ListWithdrawalsRequest) (*dto.ExportFile, error)
}

type WithdrawalFlowImpl struct {
	tx             repository.Transactor
	userRepo       repository.UserRepository
	bankRepo       repository.BankAccountRepository
	withdrawalRepo repository.WithdrawalRepository
	txRepo         repository.TransactionRepository
	notifRepo      repository.NotificationRepository
	auditRepo      repository.AuditLogRepository
	ledger         Ledger
	logger         *zap.Logger
}

func NewWithdrawalFlow(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	bankRepo repository.BankAccountRepository,
	withdrawalRepo repository.WithdrawalRepository,
	txRepo repository.TransactionRepository,
	notifRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	ledger Ledger,
	logger *zap.Logger,
) WithdrawalFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalFlowImpl{
		tx:             tx,
		userRepo:       userRepo,
		bankRepo:       bankRepo,
		withdrawalRepo: withdrawalRepo,
		txRepo:         txRepo,
		notifRepo:      notifRepo,
		auditRepo:      auditRepo,
		ledger:         ledger,
		logger:         logger,
	}
}

func (f *WithdrawalFlowImpl) Withdraw(ctx context.Context, req *dto.WithdrawRequest, metadata *ClientMetadata) (*dto.WithdrawResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount := req.Amount.Round(2)

	reference, err := utils.NewReference(utils.WithdrawalReferencePrefix)
	if err != nil {
		return nil, err
	}

	var resp *dto.WithdrawResponse
	err = f.tx.Do(ctx, func(txCtx context.Context) error {
		user, err := f.userRepo.ByID(txCtx, req.UserID)
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

		balance, err := f.ledger.Debit(txCtx, user.ID, amount, models.BalanceFieldMain, &LedgerNote{
			Title: "Withdrawal requested",
			Message: fmt.Sprintf("Your withdrawal of %s %s to %s (%s) is being processed.",
				amount.StringFixed(2), user.Currency, account.BankName, account.AccountNumber),
		})
		if err != nil {
			return err
		}

		if err := f.txRepo.Save(txCtx, &models.Transaction{
			UserID:      user.ID,
			Type:        models.TransactionTypeWithdraw,
			Status:      models.TransactionStatusPending,
			Amount:      amount,
			Currency:    user.Currency,
			Provider:    models.TransactionProviderBank,
			Reference:   reference,
			Description: fmt.Sprintf("withdrawal to %s %s", account.BankName, account.AccountNumber),
		}); err != nil {
			return err
		}
		w := &models.Withdrawal{
			UserID:        user.ID,
			BankAccountID: account.ID,
			Amount:        amount,
			Reference:     reference,
			Status:        models.PayoutStatusPending,
		}
		if err := f.withdrawalRepo.Save(txCtx, w); err != nil {
			return err
		}

		userID := user.ID
		audit := newAuditLog(models.AuditActionWithdrawRequested, models.AuditEntityWithdrawal, strconv.FormatUint(uint64(w.ID), 10),
			"withdrawal requested", metadata, map[string]any{"reference": reference, "amount": amount.String(), "bank_account_id": account.ID})
		audit.UserID = &userID
		if err := f.auditRepo.Save(txCtx, audit); err != nil {
			return err
		}

		resp = &dto.WithdrawResponse{
			Message:   "Withdrawal request submitted",
			Reference: reference,
			Balance:   balance.StringFixed(2),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *WithdrawalFlowImpl) AddBankAccount(ctx context.Context, req *dto.AddBankAccountRequest) (*dto.BankAccountDTO, error) {
	user, err := f.userRepo.ByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	account := &models.BankAccount{
		UserID:        user.ID,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	}
	if err := f.bankRepo.Save(ctx, account); err != nil {
		return nil, err
	}
	out := toBankAccountDTO(account)
	return &out, nil
}

func (f *WithdrawalFlowImpl) ListBankAccounts(ctx context.Context, userID uint) ([]dto.BankAccountDTO, error) {
	rows, err := f.bankRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BankAccountDTO, 0, len(rows))
	for _, a := range rows {
		out = append(out, toBankAccountDTO(a))
	}
	return out, nil
}

func toBankAccountDTO(a *models.BankAccount) dto.BankAccountDTO {
	return dto.BankAccountDTO{
		ID:            a.ID,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		AccountName:   a.AccountName,
	}
}

func withdrawalFilter(req *dto.ListWithdrawalsRequest, userScoped bool) models.WithdrawalFilter {
	var filter models.WithdrawalFilter
	if userScoped || req.UserID != 0 {
		userID := req.UserID
		filter.UserID = &userID
	}
	if req.Status != "" {
		status := models.PayoutStatus(req.Status)
		filter.Status = &status
	}
	return filter
}

func (f *WithdrawalFlowImpl) list(ctx context.Context, req *dto.ListWithdrawalsRequest, userScoped bool) (*dto.ListWithdrawalsResponse, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)
	rows, err := f.withdrawalRepo.ByFilter(ctx, withdrawalFilter(req, userScoped), limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WithdrawalDTO, 0, len(rows))
	for _, w := range rows {
		items = append(items, ToWithdrawalDTO(w))
	}
	return &dto.ListWithdrawalsResponse{Items: items, Page: page, PageSize: size}, nil
}

func (f *WithdrawalFlowImpl) ListWithdrawals(ctx context.Context, req *dto.ListWithdrawalsRequest) (*dto.ListWithdrawalsResponse, error) {
	return f.list(ctx, req, true)
}

func (f *WithdrawalFlowImpl) AdminList(ctx context.Context, req *dto.ListWithdrawalsRequest) (*dto.ListWithdrawalsResponse, error) {
	return f.list(ctx, req, false)
}

// review locks a pending withdrawal and its transaction and applies the decision
func (f *WithdrawalFlowImpl) review(ctx context.Context, req *dto.ReviewWithdrawalRequest, decision models.PayoutStatus, metadata *ClientMetadata) (*dto.WithdrawalDTO, error) {
	txStatus := models.TransactionStatusSuccess
	action := models.AuditActionWithdrawApproved
	if decision == models.PayoutStatusRejected {
		txStatus = models.TransactionStatusCanceled
		action = models.AuditActionWithdrawRejected
	}

	var out *dto.WithdrawalDTO
	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		w, err := f.withdrawalRepo.LockByID(txCtx, req.WithdrawalID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWithdrawalNotFound
		}
		if !w.IsPending() {
			return ErrWithdrawalAlreadyProcessed
		}

		now := utils.UTCNow()
		ok, err := f.withdrawalRepo.MarkReviewed(txCtx, w.ID, decision, req.AdminID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWithdrawalAlreadyProcessed
		}

		t, err := f.txRepo.LockByReference(txCtx, w.Reference)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransactionNotFound
		}
		ok, err = f.txRepo.UpdateStatusIfPending(txCtx, t.ID, txStatus, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTransactionStateConflict
		}

		if decision == models.PayoutStatusRejected {
			if _, err := f.ledger.Credit(txCtx, w.UserID, w.Amount, models.BalanceFieldMain, &LedgerNote{
				Title:   "Withdrawal rejected",
				Message: fmt.Sprintf("Your withdrawal %s was rejected and %s has been returned to your balance.", w.Reference, w.Amount.StringFixed(2)),
			}); err != nil {
				return err
			}
		} else if err := f.notifRepo.Save(txCtx, &models.Notification{
			UserID:  w.UserID,
			Title:   "Withdrawal paid",
			Message: fmt.Sprintf("Your withdrawal %s of %s has been paid.", w.Reference, w.Amount.StringFixed(2)),
		}); err != nil {
			return err
		}

		adminID, userID := req.AdminID, w.UserID
		audit := newAuditLog(action, models.AuditEntityWithdrawal, strconv.FormatUint(uint64(w.ID), 10),
			"withdrawal reviewed", metadata, map[string]any{"reference": w.Reference, "amount": w.Amount.String(), "decision": decision})
		audit.AdminID = &adminID
		audit.UserID = &userID
		if err := f.auditRepo.Save(txCtx, audit); err != nil {
			return err
		}

		w.Status = decision
		w.ReviewedBy = &adminID
		w.ReviewedAt = &now
		d := ToWithdrawalDTO(w)
		out = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.logger.Info("withdrawal reviewed",
		zap.Uint("withdrawal_id", req.WithdrawalID),
		zap.Uint("admin_id", req.AdminID),
		zap.String("decision", string(decision)))
	return out, nil
}

func (f *WithdrawalFlowImpl) Approve(ctx context.Context, req *dto.ReviewWithdrawalRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error) {
	return f.review(ctx, req, models.PayoutStatusPaid, metadata)
}

func (f *WithdrawalFlowImpl) Reject(ctx context.Context, req *dto.ReviewWithdrawalRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error) {
	return f.review(ctx, req, models.PayoutStatusRejected, metadata)
}

func (f *WithdrawalFlowImpl) Export(ctx context.Context, req *dto.ListWithdrawalsRequest) (*dto.ExportFile, error) {
	rows, err := f.withdrawalRepo.ByFilter(ctx, withdrawalFilter(req, false), maxExportRows, 0)
	if err != nil {
		return nil, err
	}
	header := []string{"id", "user_id", "bank_account_id", "amount", "reference", "status", "reviewed_at", "created_at"}
	records := make([][]string, 0, len(rows))
	for _, w := range rows {
		reviewedAt := ""
		if w.ReviewedAt != nil {
			reviewedAt = formatTime(*w.ReviewedAt)
		}
		records = append(records, []string{
			strconv.FormatUint(uint64(w.ID), 10),
			strconv.FormatUint(uint64(w.UserID), 10),
			strconv.FormatUint(uint64(w.BankAccountID), 10),
			w.Amount.StringFixed(2),
			w.Reference,
			string(w.Status),
			reviewedAt,
			formatTime(w.CreatedAt),
		})
	}
	return buildWorkbook("withdrawals.xlsx", "Withdrawals", header, records)
}
