package businessflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amirphl/smm-panel/app/metrics"
	"github.com/amirphl/smm-panel/app/services"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/amirphl/smm-panel/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Poller names, also used as metric labels
const (
	PollerSMS = "sms"
	PollerSMM = "smm"
)

const defaultSMMBatchSize = 100

// ReconcileStats summarises one reconciliation cycle
type ReconcileStats struct {
	Checked  int
	Updated  int
	Refunded int
	Failed   int
}

// OrderReconciler brings local orders in line with their provider. Each order
// is applied in its own transaction on a claimed row, so one failure never
// stops the cycle and no row is processed twice concurrently.
type OrderReconciler interface {
	ReconcileSMS(ctx context.Context) (ReconcileStats, error)
	ReconcileSMM(ctx context.Context) (ReconcileStats, error)
}

type OrderReconcilerImpl struct {
	tx        repository.Transactor
	userRepo  repository.UserRepository
	txRepo    repository.TransactionRepository
	smmRepo   repository.SMMOrderRepository
	smsRepo   repository.SMSOrderRepository
	auditRepo repository.AuditLogRepository
	ledger    Ledger
	smm       services.SMMProvider
	sms       services.SMSVerificationProvider
	events    services.EventBus
	batchSize int
	logger    *zap.Logger
}

func NewOrderReconciler(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	txRepo repository.TransactionRepository,
	smmRepo repository.SMMOrderRepository,
	smsRepo repository.SMSOrderRepository,
	auditRepo repository.AuditLogRepository,
	ledger Ledger,
	smm services.SMMProvider,
	sms services.SMSVerificationProvider,
	events services.EventBus,
	batchSize int,
	logger *zap.Logger,
) OrderReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = defaultSMMBatchSize
	}
	return &OrderReconcilerImpl{
		tx:        tx,
		userRepo:  userRepo,
		txRepo:    txRepo,
		smmRepo:   smmRepo,
		smsRepo:   smsRepo,
		auditRepo: auditRepo,
		ledger:    ledger,
		smm:       smm,
		sms:       sms,
		events:    events,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (r *OrderReconcilerImpl) ReconcileSMS(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats

	userIDs, err := r.smsRepo.ListUsersWithOpenOrders(ctx)
	if err != nil {
		return stats, err
	}
	if len(userIDs) == 0 {
		return stats, nil
	}

	active, err := r.sms.ActiveOrders(ctx)
	if err != nil {
		return stats, fmt.Errorf("sms active orders: %w", err)
	}
	history, err := r.sms.OrderHistory(ctx)
	if err != nil {
		return stats, fmt.Errorf("sms order history: %w", err)
	}
	// active listings win over history for the same code
	remote := make(map[string]services.SMSProviderOrder, len(active)+len(history))
	for _, o := range history {
		remote[o.OrderCode] = o
	}
	for _, o := range active {
		remote[o.OrderCode] = o
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		orders, err := r.smsRepo.ListOpenByUser(ctx, userID)
		if err != nil {
			r.logger.Warn("list open sms orders failed", zap.Uint("user_id", userID), zap.Error(err))
			continue
		}
		for _, o := range orders {
			p, ok := remote[o.OrderCode]
			if !ok {
				continue
			}
			stats.Checked++
			if p.Mapped == "" {
				r.logger.Warn("sms order has unknown provider status",
					zap.String("order_code", o.OrderCode),
					zap.String("status", p.Status))
				continue
			}
			changed, refunded, err := r.applySMS(ctx, o.ID, p)
			if err != nil {
				stats.Failed++
				metrics.PollerOrderFailures.WithLabelValues(PollerSMS).Inc()
				r.logger.Error("sms order reconciliation rolled back",
					zap.Uint("order_id", o.ID),
					zap.String("order_code", o.OrderCode),
					zap.Error(err))
				continue
			}
			if changed {
				stats.Updated++
			}
			if refunded {
				stats.Refunded++
			}
		}
	}
	return stats, nil
}

// applySMS claims one SMS order and applies the provider state to it
func (r *OrderReconcilerImpl) applySMS(ctx context.Context, orderID uint, p services.SMSProviderOrder) (bool, bool, error) {
	var changed, refunded bool
	var pending []services.Event

	err := r.tx.Do(ctx, func(txCtx context.Context) error {
		o, err := r.smsRepo.ClaimByID(txCtx, orderID)
		if err != nil {
			return err
		}
		// held by another worker or settled since listing
		if o == nil || !o.Status.SMSWatched(o.UpdatedAt, utils.UTCNow()) {
			return nil
		}
		// an expired rental only moves on when the provider refunds it
		if o.Status == models.OrderStatusExpired && p.Mapped != models.OrderStatusRefunded {
			return nil
		}

		if p.Mapped == o.Status && p.StartCount == o.StartCount && p.Remaining == o.Remaining &&
			(p.Code == "" || p.Code == o.Code) {
			return nil
		}

		previous := o.Status
		switch p.Mapped {
		case models.OrderStatusRefunded:
			if o.Amount.IsPositive() {
				if err := r.refund(txCtx, o.UserID, o.Amount, models.TransactionProviderSMS,
					models.AuditEntitySMSOrder, o.ID, fmt.Sprintf("refund of sms order %s", o.OrderCode)); err != nil {
					return err
				}
				refunded = true
				pending = append(pending, services.NewEvent(services.EventOrderRefunded, o.UserID,
					map[string]any{"kind": PollerSMS, "order_id": o.ID, "amount": o.Amount.StringFixed(2)}))
			}
			o.Status = models.OrderStatusRefunded
		case models.OrderStatusExpired:
			o.Status = models.OrderStatusExpired
		default:
			o.Status = p.Mapped
			o.StartCount = p.StartCount
			o.Remaining = p.Remaining
			if p.Code != "" {
				o.Code = p.Code
			}
			if p.PhoneNumber != "" {
				o.PhoneNumber = p.PhoneNumber
			}
			if p.Mapped == models.OrderStatusCompleted && previous != models.OrderStatusCompleted {
				pending = append(pending, services.NewEvent(services.EventOrderCompleted, o.UserID,
					map[string]any{"kind": PollerSMS, "order_id": o.ID, "code": o.Code}))
			}
		}
		o.ProviderStatus = p.Status
		changed = true
		return r.smsRepo.Update(txCtx, o)
	})
	if err != nil {
		return false, false, err
	}
	if refunded {
		metrics.PollerRefunds.WithLabelValues(PollerSMS, string(models.OrderStatusRefunded)).Inc()
	}
	r.publish(pending)
	return changed, refunded, nil
}

func (r *OrderReconcilerImpl) ReconcileSMM(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats
	var afterID uint

	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		batch, err := r.smmRepo.ListOpen(ctx, afterID, r.batchSize)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			return stats, nil
		}
		afterID = batch[len(batch)-1].ID

		ids := make([]string, 0, len(batch))
		for _, o := range batch {
			ids = append(ids, o.ProviderOrderID)
		}
		statuses, err := r.smm.OrderStatuses(ctx, ids)
		if err != nil {
			return stats, fmt.Errorf("smm order statuses: %w", err)
		}

		for _, o := range batch {
			st, ok := statuses[o.ProviderOrderID]
			if !ok {
				continue
			}
			stats.Checked++
			if st.Error != "" || st.Mapped == "" {
				r.logger.Warn("smm provider reported order error",
					zap.Uint("order_id", o.ID),
					zap.String("provider_order_id", o.ProviderOrderID),
					zap.String("error", st.Error))
				continue
			}
			changed, refunded, err := r.applySMM(ctx, o.ID, st)
			if err != nil {
				stats.Failed++
				metrics.PollerOrderFailures.WithLabelValues(PollerSMM).Inc()
				r.logger.Error("smm order reconciliation rolled back",
					zap.Uint("order_id", o.ID),
					zap.String("provider_order_id", o.ProviderOrderID),
					zap.Error(err))
				continue
			}
			if changed {
				stats.Updated++
			}
			if refunded {
				stats.Refunded++
			}
		}

		if len(batch) < r.batchSize {
			return stats, nil
		}
	}
}

// applySMM claims one SMM order and applies the provider state to it
func (r *OrderReconcilerImpl) applySMM(ctx context.Context, orderID uint, st services.SMMOrderStatus) (bool, bool, error) {
	var changed, refunded bool
	var pending []services.Event

	err := r.tx.Do(ctx, func(txCtx context.Context) error {
		o, err := r.smmRepo.ClaimByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if o == nil || o.Status.IsTerminal() {
			return nil
		}
		if o.Status == st.Mapped && o.Remains == st.Remains && o.StartCount == st.StartCount {
			return nil
		}

		var amount decimal.Decimal
		switch st.Mapped {
		case models.OrderStatusPartial:
			amount = o.PartialRefund(st.Remains)
		case models.OrderStatusCanceled, models.OrderStatusRefunded:
			amount = o.Charge
		}
		if amount.IsPositive() {
			if err := r.refund(txCtx, o.UserID, amount, models.TransactionProviderSMM,
				models.AuditEntitySMMOrder, o.ID, fmt.Sprintf("refund of smm order %s", o.ProviderOrderID)); err != nil {
				return err
			}
			o.RefundAmount = amount
			refunded = true
			pending = append(pending, services.NewEvent(services.EventOrderRefunded, o.UserID,
				map[string]any{"kind": PollerSMM, "order_id": o.ID, "amount": amount.StringFixed(2), "status": st.Mapped}))
		}
		if st.Mapped == models.OrderStatusCompleted {
			pending = append(pending, services.NewEvent(services.EventOrderCompleted, o.UserID,
				map[string]any{"kind": PollerSMM, "order_id": o.ID}))
		}

		o.Status = st.Mapped
		o.StartCount = st.StartCount
		o.Remains = st.Remains
		o.ProviderStatus = st.Status
		changed = true
		return r.smmRepo.Update(txCtx, o)
	})
	if err != nil {
		return false, false, err
	}
	if refunded {
		metrics.PollerRefunds.WithLabelValues(PollerSMM, string(st.Mapped)).Inc()
	}
	r.publish(pending)
	return changed, refunded, nil
}

// refund credits the user and logs a refund transaction and audit row
func (r *OrderReconcilerImpl) refund(ctx context.Context, userID uint, amount decimal.Decimal, provider models.TransactionProvider, entity string, orderID uint, description string) error {
	user, err := r.userRepo.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if _, err := r.ledger.Credit(ctx, userID, amount, models.BalanceFieldMain, &LedgerNote{
		Title:   "Order refunded",
		Message: fmt.Sprintf("%s %s was returned to your balance (%s).", amount.StringFixed(2), user.Currency, description),
	}); err != nil {
		return err
	}

	reference, err := utils.NewReference(utils.RefundReferencePrefix)
	if err != nil {
		return err
	}
	if err := r.txRepo.Save(ctx, &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionTypeRefund,
		Status:      models.TransactionStatusSuccess,
		Amount:      amount,
		Currency:    user.Currency,
		Provider:    provider,
		Reference:   reference,
		Description: description,
	}); err != nil {
		return err
	}

	audit := newAuditLog(models.AuditActionOrderRefunded, entity, strconv.FormatUint(uint64(orderID), 10),
		description, nil, map[string]any{"amount": amount.String(), "reference": reference})
	audit.UserID = &userID
	return r.auditRepo.Save(ctx, audit)
}

func (r *OrderReconcilerImpl) publish(events []services.Event) {
	if r.events == nil {
		return
	}
	for _, ev := range events {
		r.events.Publish(ev)
	}
}
