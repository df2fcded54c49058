package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/metrics"
	"github.com/amirphl/smm-panel/app/services"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"go.uber.org/zap"
)

// Webhook outcomes, also used as metric labels
const (
	WebhookOutcomeCredited  = "credited"
	WebhookOutcomeFailed    = "failed"
	WebhookOutcomeCanceled  = "canceled"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeIgnored   = "ignored"
	WebhookOutcomeForbidden = "forbidden"
	WebhookOutcomeBadSign   = "bad_signature"
	WebhookOutcomeError     = "error"
)

// cryptomusFailureStatuses maps terminal non-paid payment statuses
var cryptomusFailureStatuses = map[string]models.TransactionStatus{
	"cancel":      models.TransactionStatusCanceled,
	"fail":        models.TransactionStatusFailed,
	"system_fail": models.TransactionStatusFailed,
	"refund_paid": models.TransactionStatusFailed,
}

func isCryptomusPaid(status string) bool {
	return status == "paid" || status == "paid_over"
}

// CryptomusWebhookFlow applies payment callbacks to pending crypto deposits.
// A delivery credits at most once however often it is repeated.
type CryptomusWebhookFlow interface {
	Handle(ctx context.Context, raw []byte, metadata *ClientMetadata) (*dto.CryptomusWebhookResult, error)
}

type CryptomusWebhookFlowImpl struct {
	tx        repository.Transactor
	userRepo  repository.UserRepository
	txRepo    repository.TransactionRepository
	auditRepo repository.AuditLogRepository
	ledger    Ledger
	gateway   services.CryptoPaymentGateway
	rates     services.ExchangeRateService
	events    services.EventBus
	allowed   map[string]struct{}
	logger    *zap.Logger
}

func NewCryptomusWebhookFlow(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	txRepo repository.TransactionRepository,
	auditRepo repository.AuditLogRepository,
	ledger Ledger,
	gateway services.CryptoPaymentGateway,
	rates services.ExchangeRateService,
	events services.EventBus,
	allowedIPs []string,
	logger *zap.Logger,
) CryptomusWebhookFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(allowedIPs))
	for _, ip := range allowedIPs {
		if parsed := net.ParseIP(strings.TrimSpace(ip)); parsed != nil {
			allowed[parsed.String()] = struct{}{}
		}
	}
	return &CryptomusWebhookFlowImpl{
		tx:        tx,
		userRepo:  userRepo,
		txRepo:    txRepo,
		auditRepo: auditRepo,
		ledger:    ledger,
		gateway:   gateway,
		rates:     rates,
		events:    events,
		allowed:   allowed,
		logger:    logger,
	}
}

func (f *CryptomusWebhookFlowImpl) ipAllowed(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	_, ok := f.allowed[parsed.String()]
	return ok
}

func (f *CryptomusWebhookFlowImpl) Handle(ctx context.Context, raw []byte, metadata *ClientMetadata) (*dto.CryptomusWebhookResult, error) {
	outcome, err := f.handle(ctx, raw, metadata)
	metrics.WebhookOutcomes.WithLabelValues(outcome).Inc()
	if err != nil {
		return nil, err
	}
	return &dto.CryptomusWebhookResult{Success: true, Outcome: outcome}, nil
}

func (f *CryptomusWebhookFlowImpl) handle(ctx context.Context, raw []byte, metadata *ClientMetadata) (string, error) {
	ip := ""
	if metadata != nil {
		ip = metadata.IPAddress
	}
	if !f.ipAllowed(ip) {
		f.logger.Warn("cryptomus webhook from unlisted ip", zap.String("ip", ip))
		return WebhookOutcomeForbidden, ErrWebhookIPNotAllowed
	}

	hook, err := f.gateway.ParseWebhook(raw)
	if err != nil {
		if errors.Is(err, services.ErrWebhookSignatureMismatch) {
			f.logger.Warn("cryptomus webhook signature mismatch", zap.String("ip", ip))
			return WebhookOutcomeBadSign, ErrInvalidSignature
		}
		return WebhookOutcomeError, NewBusinessError("INVALID_WEBHOOK", "Invalid webhook payload", fmt.Errorf("%w: %v", ErrInvalidWebhook, err))
	}
	if hook.OrderID == "" {
		return WebhookOutcomeError, ErrInvalidWebhook
	}
	status := strings.ToLower(hook.Status)

	// Unlocked read to learn the user and convert outside the row lock
	existing, err := f.txRepo.ByReference(ctx, hook.OrderID)
	if err != nil {
		return WebhookOutcomeError, err
	}
	if existing == nil || existing.Provider != models.TransactionProviderCryptomus {
		return WebhookOutcomeError, ErrTransactionNotFound
	}
	if !existing.IsPending() {
		return WebhookOutcomeDuplicate, nil
	}

	switch {
	case isCryptomusPaid(status):
		return f.credit(ctx, existing, hook, metadata)
	case cryptomusFailureStatuses[status] != "":
		return f.fail(ctx, existing, hook, cryptomusFailureStatuses[status], metadata)
	default:
		f.logger.Debug("cryptomus webhook status ignored", zap.String("order_id", hook.OrderID), zap.String("status", status))
		return WebhookOutcomeIgnored, nil
	}
}

func (f *CryptomusWebhookFlowImpl) credit(ctx context.Context, existing *models.Transaction, hook *services.CryptomusWebhook, metadata *ClientMetadata) (string, error) {
	user, err := f.userRepo.ByID(ctx, existing.UserID)
	if err != nil {
		return WebhookOutcomeError, err
	}
	if user == nil {
		return WebhookOutcomeError, ErrUserNotFound
	}

	paid := hook.Amount
	currency := strings.ToUpper(hook.Currency)
	if !paid.IsPositive() {
		paid = existing.Amount
	}
	if currency == "" {
		currency = existing.Currency
	}
	credited := paid.Round(2)
	if !strings.EqualFold(currency, user.Currency) {
		credited, err = f.rates.Convert(ctx, paid, currency, user.Currency)
		if err != nil {
			return WebhookOutcomeError, NewBusinessError("EXCHANGE_RATE_UNAVAILABLE", "Failed to convert payment amount", fmt.Errorf("%w: %v", ErrExchangeRateUnavailable, err))
		}
	}
	if !credited.IsPositive() {
		return WebhookOutcomeError, ErrInvalidAmount
	}

	outcome := WebhookOutcomeCredited
	err = f.tx.Do(ctx, func(txCtx context.Context) error {
		t, err := f.txRepo.LockByReference(txCtx, hook.OrderID)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransactionNotFound
		}
		if !t.IsPending() {
			outcome = WebhookOutcomeDuplicate
			return nil
		}

		ok, err := f.txRepo.UpdateStatusIfPending(txCtx, t.ID, models.TransactionStatusSuccess,
			mergeMetadata(t.Metadata, map[string]any{
				"paid_status":     hook.Status,
				"paid_amount":     paid.String(),
				"paid_currency":   currency,
				"credited_amount": credited.String(),
				"txid":            hook.TxID,
				"network":         hook.Network,
			}))
		if err != nil {
			return err
		}
		if !ok {
			outcome = WebhookOutcomeDuplicate
			return nil
		}

		if _, err := f.ledger.Credit(txCtx, t.UserID, credited, models.BalanceFieldMain, &LedgerNote{
			Title:   "Crypto deposit received",
			Message: fmt.Sprintf("Your crypto deposit of %s %s has been credited as %s %s.", paid.StringFixed(2), currency, credited.StringFixed(2), user.Currency),
		}); err != nil {
			return err
		}

		userID := t.UserID
		audit := newAuditLog(models.AuditActionCryptoWebhookPaid, models.AuditEntityTransaction, t.Reference,
			"cryptomus payment credited", metadata, map[string]any{"status": hook.Status, "credited": credited.String(), "uuid": hook.UUID})
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	if err != nil {
		return WebhookOutcomeError, err
	}

	if outcome == WebhookOutcomeCredited {
		f.logger.Info("cryptomus deposit credited",
			zap.String("order_id", hook.OrderID),
			zap.Uint("user_id", user.ID),
			zap.String("credited", credited.String()))
		if f.events != nil {
			f.events.Publish(services.NewEvent(services.EventBalanceChanged, user.ID, map[string]any{"reference": hook.OrderID}))
		}
	}
	return outcome, nil
}

func (f *CryptomusWebhookFlowImpl) fail(ctx context.Context, existing *models.Transaction, hook *services.CryptomusWebhook, status models.TransactionStatus, metadata *ClientMetadata) (string, error) {
	outcome := WebhookOutcomeFailed
	if status == models.TransactionStatusCanceled {
		outcome = WebhookOutcomeCanceled
	}
	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		t, err := f.txRepo.LockByReference(txCtx, existing.Reference)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransactionNotFound
		}
		ok, err := f.txRepo.UpdateStatusIfPending(txCtx, t.ID, status,
			mergeMetadata(t.Metadata, map[string]any{"provider_status": hook.Status}))
		if err != nil {
			return err
		}
		if !ok {
			outcome = WebhookOutcomeDuplicate
			return nil
		}
		userID := t.UserID
		audit := newAuditLog(models.AuditActionCryptoWebhookFailed, models.AuditEntityTransaction, t.Reference,
			"cryptomus payment not completed", metadata, map[string]any{"status": hook.Status})
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	if err != nil {
		return WebhookOutcomeError, err
	}
	return outcome, nil
}

// mergeMetadata overlays extra onto a JSON object, keeping existing keys
func mergeMetadata(current json.RawMessage, extra map[string]any) json.RawMessage {
	merged := map[string]any{}
	if len(current) > 0 {
		_ = json.Unmarshal(current, &merged)
	}
	for k, v := range extra {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		merged[k] = v
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return nil
	}
	return b
}
