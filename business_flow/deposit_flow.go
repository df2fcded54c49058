package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/services"
	"github.com/amirphl/smm-panel/config"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/amirphl/smm-panel/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepositFlow accepts bank-transfer and crypto deposit requests. Neither path
// touches a balance; crediting happens on review or webhook.
type DepositFlow interface {
	SubmitBankDeposit(ctx context.Context, req *dto.BankDepositRequest, metadata *ClientMetadata) (*dto.BankDepositResponse, error)
	CreateCryptomusPayment(ctx context.Context, req *dto.CreateCryptomusPaymentRequest, metadata *ClientMetadata) (*dto.CreateCryptomusPaymentResponse, error)
	ListDeposits(ctx context.Context, req *dto.ListDepositsRequest) (*dto.ListTransactionsResponse, error)
}

type DepositFlowImpl struct {
	tx           repository.Transactor
	userRepo     repository.UserRepository
	pendingRepo  repository.PendingDepositRepository
	txRepo       repository.TransactionRepository
	auditRepo    repository.AuditLogRepository
	gateway      services.CryptoPaymentGateway
	rates        services.ExchangeRateService
	notifier     services.NotificationService
	depositCfg   config.DepositConfig
	cryptomusCfg config.CryptomusConfig
	logger       *zap.Logger
}

func NewDepositFlow(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	pendingRepo repository.PendingDepositRepository,
	txRepo repository.TransactionRepository,
	auditRepo repository.AuditLogRepository,
	gateway services.CryptoPaymentGateway,
	rates services.ExchangeRateService,
	notifier services.NotificationService,
	depositCfg config.DepositConfig,
	cryptomusCfg config.CryptomusConfig,
	logger *zap.Logger,
) DepositFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepositFlowImpl{
		tx:           tx,
		userRepo:     userRepo,
		pendingRepo:  pendingRepo,
		txRepo:       txRepo,
		auditRepo:    auditRepo,
		gateway:      gateway,
		rates:        rates,
		notifier:     notifier,
		depositCfg:   depositCfg,
		cryptomusCfg: cryptomusCfg,
		logger:       logger,
	}
}

func (f *DepositFlowImpl) SubmitBankDeposit(ctx context.Context, req *dto.BankDepositRequest, metadata *ClientMetadata) (*dto.BankDepositResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount := req.Amount.Round(2)

	userReference := strings.TrimSpace(req.Reference)
	if userReference == "" {
		return nil, ErrReferenceRequired
	}
	mimeType, err := f.checkProof(req.Proof)
	if err != nil {
		return nil, err
	}

	user, err := f.userRepo.ByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.CanTransact() {
		return nil, ErrAccountInactive
	}

	minimum, err := f.minimumIn(ctx, f.depositCfg.MinBankAmountNGN, utils.CurrencyNGN, user.Currency)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(minimum) {
		return nil, NewBusinessErrorf("DEPOSIT_AMOUNT_TOO_LOW", "minimum bank deposit is %s %s", ErrAmountTooLow, minimum.StringFixed(2), user.Currency)
	}

	reference, err := utils.NewReference(utils.DepositReferencePrefix)
	if err != nil {
		return nil, err
	}

	err = f.tx.Do(ctx, func(txCtx context.Context) error {
		deposit := &models.PendingDeposit{
			UserID:        user.ID,
			Amount:        amount,
			Currency:      user.Currency,
			Reference:     reference,
			UserReference: userReference,
			ProofImage:    req.Proof,
			ProofMimeType: mimeType,
			Status:        models.PendingDepositStatusPending,
		}
		if err := f.pendingRepo.Save(txCtx, deposit); err != nil {
			return err
		}
		if err := f.txRepo.Save(txCtx, &models.Transaction{
			UserID:      user.ID,
			Type:        models.TransactionTypeDeposit,
			Status:      models.TransactionStatusPending,
			Amount:      amount,
			Currency:    user.Currency,
			Provider:    models.TransactionProviderBank,
			Reference:   reference,
			Description: "bank transfer deposit",
		}); err != nil {
			return err
		}
		userID := user.ID
		audit := newAuditLog(models.AuditActionDepositRequested, models.AuditEntityPendingDeposit, fmt.Sprint(deposit.ID),
			"bank deposit submitted", metadata, map[string]any{"reference": reference, "amount": amount.String()})
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	f.sendEmail(ctx, user.Email, "Deposit received",
		fmt.Sprintf("We received your deposit of %s %s (reference %s). It will be credited once verified.",
			amount.StringFixed(2), user.Currency, reference))
	if err := f.notifier.NotifyAdmin(ctx, "New bank deposit",
		fmt.Sprintf("User %d submitted a bank deposit of %s %s, reference %s.", user.ID, amount.StringFixed(2), user.Currency, reference)); err != nil {
		f.logger.Warn("admin deposit notification failed", zap.String("reference", reference), zap.Error(err))
	}

	return &dto.BankDepositResponse{
		Message:   "Deposit submitted and awaiting verification",
		Reference: reference,
	}, nil
}

// checkProof sniffs the upload and returns its mime type
func (f *DepositFlowImpl) checkProof(proof []byte) (string, error) {
	if len(proof) == 0 {
		return "", ErrProofRequired
	}
	limit := f.depositCfg.MaxProofSize
	if limit <= 0 {
		limit = utils.MaxProofImageSize
	}
	if len(proof) > limit {
		return "", ErrProofTooLarge
	}
	mime := mimetype.Detect(proof)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", ErrProofNotImage
	}
	return mime.String(), nil
}

func (f *DepositFlowImpl) minimumIn(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}
	converted, err := f.rates.Convert(ctx, amount, from, to)
	if err != nil {
		return decimal.Zero, NewBusinessError("EXCHANGE_RATE_UNAVAILABLE", "Failed to convert currency", fmt.Errorf("%w: %v", ErrExchangeRateUnavailable, err))
	}
	return converted, nil
}

func (f *DepositFlowImpl) CreateCryptomusPayment(ctx context.Context, req *dto.CreateCryptomusPaymentRequest, metadata *ClientMetadata) (*dto.CreateCryptomusPaymentResponse, error) {
	if !req.CryptomusAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount := req.CryptomusAmount.Round(2)

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	var minimum decimal.Decimal
	switch currency {
	case utils.CurrencyUSD:
		minimum = f.depositCfg.MinCryptoUSD
	case utils.CurrencyNGN:
		minimum = f.depositCfg.MinCryptoNGN
	default:
		return nil, ErrUnsupportedCurrency
	}
	if amount.LessThan(minimum) {
		return nil, NewBusinessErrorf("CRYPTO_AMOUNT_TOO_LOW", "minimum crypto deposit is %s %s", ErrAmountTooLow, minimum.StringFixed(2), currency)
	}

	user, err := f.userRepo.ByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.CanTransact() {
		return nil, ErrAccountInactive
	}
	// the wallet is held in the account currency and the webhook credits into it
	if uc := strings.TrimSpace(req.UserCurrency); uc != "" && !strings.EqualFold(uc, user.Currency) {
		return nil, NewBusinessErrorf("CURRENCY_MISMATCH", "wallet currency is %s", ErrUnsupportedCurrency, user.Currency)
	}

	orderID, err := utils.NewReference(utils.CryptoReferencePrefix)
	if err != nil {
		return nil, err
	}

	payment, err := f.gateway.CreatePayment(ctx, services.CreatePaymentInput{
		Amount:      amount,
		Currency:    currency,
		OrderID:     orderID,
		CallbackURL: f.cryptomusCfg.CallbackURL,
		ReturnURL:   f.cryptomusCfg.ReturnURL,
		Lifetime:    f.cryptomusCfg.PaymentLifetime,
	})
	if err != nil {
		f.logger.Error("cryptomus payment creation failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, NewBusinessError("CRYPTO_PROVIDER_FAILED", "Failed to create crypto payment", fmt.Errorf("%w: %v", ErrCryptoProviderUnavailable, err))
	}

	meta, _ := json.Marshal(map[string]any{
		"cryptomus_uuid": payment.UUID,
		"payment_url":    payment.PaymentURL,
	})

	err = f.tx.Do(ctx, func(txCtx context.Context) error {
		if err := f.txRepo.Save(txCtx, &models.Transaction{
			UserID:      user.ID,
			Type:        models.TransactionTypeDeposit,
			Status:      models.TransactionStatusPending,
			Amount:      amount,
			Currency:    currency,
			Provider:    models.TransactionProviderCryptomus,
			Reference:   orderID,
			Description: "cryptomus deposit",
			Metadata:    meta,
		}); err != nil {
			return err
		}
		userID := user.ID
		audit := newAuditLog(models.AuditActionCryptoPaymentOpened, models.AuditEntityTransaction, orderID,
			"cryptomus invoice opened", metadata, map[string]any{"amount": amount.String(), "currency": currency, "uuid": payment.UUID})
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return &dto.CreateCryptomusPaymentResponse{
		Success:    true,
		PaymentURL: payment.PaymentURL,
		Reference:  orderID,
	}, nil
}

func (f *DepositFlowImpl) ListDeposits(ctx context.Context, req *dto.ListDepositsRequest) (*dto.ListTransactionsResponse, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)
	userID := req.UserID
	typ := models.TransactionTypeDeposit
	rows, err := f.txRepo.ByFilter(ctx, models.TransactionFilter{UserID: &userID, Type: &typ}, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.TransactionDTO, 0, len(rows))
	for _, t := range rows {
		items = append(items, ToTransactionDTO(t))
	}
	return &dto.ListTransactionsResponse{Items: items, Page: page, PageSize: size}, nil
}

func (f *DepositFlowImpl) sendEmail(ctx context.Context, to, subject, body string) {
	if to == "" {
		return
	}
	if err := f.notifier.SendEmail(ctx, to, subject, body); err != nil {
		f.logger.Warn("deposit email failed", zap.String("subject", subject), zap.Error(err))
	}
}
