package businessflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/metrics"
	"github.com/amirphl/smm-panel/app/services"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/amirphl/smm-panel/utils"
	"go.uber.org/zap"
)

// AdminDepositFlow reviews bank deposits. Approval and rejection each run as
// one transaction around a locked pending row.
type AdminDepositFlow interface {
	Approve(ctx context.Context, req *dto.ReviewDepositRequest, metadata *ClientMetadata) (*dto.ReviewDepositResponse, error)
	Reject(ctx context.Context, req *dto.ReviewDepositRequest, metadata *ClientMetadata) (*dto.ReviewDepositResponse, error)
	List(ctx context.Context, req *dto.AdminListDepositsRequest) (*dto.AdminListDepositsResponse, error)
	Proof(ctx context.Context, depositID uint) (*dto.ProofImage, error)
	Export(ctx context.Context, req *dto.AdminListDepositsRequest) (*dto.ExportFile, error)
}

type AdminDepositFlowImpl struct {
	tx          repository.Transactor
	userRepo    repository.UserRepository
	pendingRepo repository.PendingDepositRepository
	txRepo      repository.TransactionRepository
	notifRepo   repository.NotificationRepository
	auditRepo   repository.AuditLogRepository
	ledger      Ledger
	referrals   ReferralFlow
	notifier    services.NotificationService
	events      services.EventBus
	logger      *zap.Logger
}

func NewAdminDepositFlow(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	pendingRepo repository.PendingDepositRepository,
	txRepo repository.TransactionRepository,
	notifRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	ledger Ledger,
	referrals ReferralFlow,
	notifier services.NotificationService,
	events services.EventBus,
	logger *zap.Logger,
) AdminDepositFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminDepositFlowImpl{
		tx:          tx,
		userRepo:    userRepo,
		pendingRepo: pendingRepo,
		txRepo:      txRepo,
		notifRepo:   notifRepo,
		auditRepo:   auditRepo,
		ledger:      ledger,
		referrals:   referrals,
		notifier:    notifier,
		events:      events,
		logger:      logger,
	}
}

// lockPending locks the deposit and its transaction, both still pending
func (f *AdminDepositFlowImpl) lockPending(ctx context.Context, depositID uint) (*models.PendingDeposit, *models.Transaction, error) {
	deposit, err := f.pendingRepo.LockByID(ctx, depositID)
	if err != nil {
		return nil, nil, err
	}
	if deposit == nil {
		return nil, nil, ErrDepositNotFound
	}
	if !deposit.IsPending() {
		return nil, nil, ErrDepositAlreadyProcessed
	}
	t, err := f.txRepo.LockByReference(ctx, deposit.Reference)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, ErrTransactionNotFound
	}
	return deposit, t, nil
}

func (f *AdminDepositFlowImpl) Approve(ctx context.Context, req *dto.ReviewDepositRequest, metadata *ClientMetadata) (*dto.ReviewDepositResponse, error) {
	var deposit *models.PendingDeposit
	var commission *models.Commission

	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		d, t, err := f.lockPending(txCtx, req.DepositID)
		if err != nil {
			return err
		}
		deposit = d

		now := utils.UTCNow()
		ok, err := f.pendingRepo.MarkReviewed(txCtx, d.ID, models.PendingDepositStatusApproved, req.AdminID, req.Note, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDepositAlreadyProcessed
		}
		ok, err = f.txRepo.UpdateStatusIfPending(txCtx, t.ID, models.TransactionStatusSuccess, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTransactionStateConflict
		}

		if _, err := f.ledger.Credit(txCtx, d.UserID, d.Amount, models.BalanceFieldMain, &LedgerNote{
			Title:   "Deposit approved",
			Message: fmt.Sprintf("Your deposit of %s %s (reference %s) has been credited.", d.Amount.StringFixed(2), d.Currency, d.Reference),
		}); err != nil {
			return err
		}

		commission, err = f.referrals.RecordDeposit(txCtx, d.UserID, d.Amount, t.ID)
		if err != nil {
			return err
		}

		adminID, userID := req.AdminID, d.UserID
		audit := newAuditLog(models.AuditActionDepositApproved, models.AuditEntityPendingDeposit, strconv.FormatUint(uint64(d.ID), 10),
			"bank deposit approved", metadata, map[string]any{"reference": d.Reference, "amount": d.Amount.String(), "transaction_id": t.ID})
		audit.AdminID = &adminID
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	f.recordReview("approve", err)
	if err != nil {
		return nil, err
	}

	f.logger.Info("deposit approved",
		zap.Uint("deposit_id", deposit.ID),
		zap.Uint("admin_id", req.AdminID),
		zap.String("reference", deposit.Reference),
		zap.Bool("commission", commission != nil))

	f.publishBalance(deposit.UserID, deposit.Reference)
	f.emailUser(ctx, deposit.UserID, "Deposit approved",
		fmt.Sprintf("Your deposit of %s %s (reference %s) has been approved and credited.", deposit.Amount.StringFixed(2), deposit.Currency, deposit.Reference))

	return reviewResponse(deposit, models.PendingDepositStatusApproved), nil
}

func (f *AdminDepositFlowImpl) Reject(ctx context.Context, req *dto.ReviewDepositRequest, metadata *ClientMetadata) (*dto.ReviewDepositResponse, error) {
	var deposit *models.PendingDeposit

	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		d, t, err := f.lockPending(txCtx, req.DepositID)
		if err != nil {
			return err
		}
		deposit = d

		ok, err := f.pendingRepo.MarkReviewed(txCtx, d.ID, models.PendingDepositStatusRejected, req.AdminID, req.Note, utils.UTCNow())
		if err != nil {
			return err
		}
		if !ok {
			return ErrDepositAlreadyProcessed
		}
		ok, err = f.txRepo.UpdateStatusIfPending(txCtx, t.ID, models.TransactionStatusCanceled, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTransactionStateConflict
		}

		message := fmt.Sprintf("Your deposit of %s %s (reference %s) was rejected.", d.Amount.StringFixed(2), d.Currency, d.Reference)
		if req.Note != nil && *req.Note != "" {
			message += " Reason: " + *req.Note
		}
		if err := f.notifRepo.Save(txCtx, &models.Notification{
			UserID:  d.UserID,
			Title:   "Deposit rejected",
			Message: message,
		}); err != nil {
			return err
		}

		adminID, userID := req.AdminID, d.UserID
		audit := newAuditLog(models.AuditActionDepositRejected, models.AuditEntityPendingDeposit, strconv.FormatUint(uint64(d.ID), 10),
			"bank deposit rejected", metadata, map[string]any{"reference": d.Reference, "amount": d.Amount.String()})
		audit.AdminID = &adminID
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	f.recordReview("reject", err)
	if err != nil {
		return nil, err
	}

	f.logger.Info("deposit rejected",
		zap.Uint("deposit_id", deposit.ID),
		zap.Uint("admin_id", req.AdminID),
		zap.String("reference", deposit.Reference))

	return reviewResponse(deposit, models.PendingDepositStatusRejected), nil
}

func (f *AdminDepositFlowImpl) recordReview(decision string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case IsStateConflict(err):
		outcome = metrics.OutcomeNoop
	default:
		outcome = metrics.OutcomeError
	}
	metrics.DepositReviews.WithLabelValues(decision, outcome).Inc()
}

func reviewResponse(d *models.PendingDeposit, status models.PendingDepositStatus) *dto.ReviewDepositResponse {
	return &dto.ReviewDepositResponse{
		ID:        d.ID,
		Status:    string(status),
		Reference: d.Reference,
		Amount:    d.Amount.StringFixed(2),
		UserID:    d.UserID,
	}
}

func (f *AdminDepositFlowImpl) publishBalance(userID uint, reference string) {
	if f.events == nil {
		return
	}
	f.events.Publish(services.NewEvent(services.EventBalanceChanged, userID, map[string]any{"reference": reference}))
}

func (f *AdminDepositFlowImpl) emailUser(ctx context.Context, userID uint, subject, body string) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil || user == nil || user.Email == "" {
		return
	}
	if err := f.notifier.SendEmail(ctx, user.Email, subject, body); err != nil {
		f.logger.Warn("deposit review email failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func depositFilter(req *dto.AdminListDepositsRequest) models.PendingDepositFilter {
	var filter models.PendingDepositFilter
	if req.Status != "" {
		status := models.PendingDepositStatus(req.Status)
		filter.Status = &status
	}
	filter.UserID = req.UserID
	return filter
}

func (f *AdminDepositFlowImpl) List(ctx context.Context, req *dto.AdminListDepositsRequest) (*dto.AdminListDepositsResponse, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)
	rows, err := f.pendingRepo.ByFilter(ctx, depositFilter(req), limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.PendingDepositDTO, 0, len(rows))
	for _, d := range rows {
		items = append(items, ToPendingDepositDTO(d))
	}
	return &dto.AdminListDepositsResponse{Items: items, Page: page, PageSize: size}, nil
}

func (f *AdminDepositFlowImpl) Proof(ctx context.Context, depositID uint) (*dto.ProofImage, error) {
	d, err := f.pendingRepo.ByID(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDepositNotFound
	}
	if len(d.ProofImage) == 0 {
		return nil, ErrProofNotFound
	}
	return &dto.ProofImage{Data: d.ProofImage, MimeType: d.ProofMimeType}, nil
}

func (f *AdminDepositFlowImpl) Export(ctx context.Context, req *dto.AdminListDepositsRequest) (*dto.ExportFile, error) {
	rows, err := f.pendingRepo.ByFilter(ctx, depositFilter(req), maxExportRows, 0)
	if err != nil {
		return nil, err
	}
	header := []string{"id", "user_id", "amount", "currency", "reference", "user_reference", "status", "reviewed_by", "reviewed_at", "created_at"}
	records := make([][]string, 0, len(rows))
	for _, d := range rows {
		reviewedBy := ""
		if d.ReviewedBy != nil {
			reviewedBy = strconv.FormatUint(uint64(*d.ReviewedBy), 10)
		}
		reviewedAt := ""
		if d.ReviewedAt != nil {
			reviewedAt = formatTime(*d.ReviewedAt)
		}
		records = append(records, []string{
			strconv.FormatUint(uint64(d.ID), 10),
			strconv.FormatUint(uint64(d.UserID), 10),
			d.Amount.StringFixed(2),
			d.Currency,
			d.Reference,
			d.UserReference,
			string(d.Status),
			reviewedBy,
			reviewedAt,
			formatTime(d.CreatedAt),
		})
	}
	return buildWorkbook("deposits.xlsx", "Deposits", header, records)
}
