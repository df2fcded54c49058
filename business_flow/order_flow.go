package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/services"
	"github.com/amirphl/smm-panel/config"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/amirphl/smm-panel/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderFlow places provider-backed orders and sells listed products. Every
// purchase debits the main balance atomically.
type OrderFlow interface {
	SMMServices(ctx context.Context, userID uint) ([]dto.SMMServiceDTO, error)
	CreateSMMOrder(ctx context.Context, req *dto.CreateSMMOrderRequest, metadata *ClientMetadata) (*dto.SMMOrderDTO, error)
	ListSMMOrders(ctx context.Context, req *dto.ListOrdersRequest) (*dto.ListSMMOrdersResponse, error)
	CreateSMSOrder(ctx context.Context, req *dto.CreateSMSOrderRequest, metadata *ClientMetadata) (*dto.SMSOrderDTO, error)
	ListSMSOrders(ctx context.Context, req *dto.ListOrdersRequest) (*dto.ListSMSOrdersResponse, error)
	ListProducts(ctx context.Context, req *dto.ListProductsRequest) (*dto.ListProductsResponse, error)
	PurchaseProduct(ctx context.Context, req *dto.PurchaseProductRequest, metadata *ClientMetadata) (*dto.ProductPurchaseResponse, error)
}

type OrderFlowImpl struct {
	tx          repository.Transactor
	userRepo    repository.UserRepository
	smmRepo     repository.SMMOrderRepository
	smsRepo     repository.SMSOrderRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditLogRepository
	ledger      Ledger
	smm         services.SMMProvider
	sms         services.SMSVerificationProvider
	rates       services.ExchangeRateService
	smmCfg      config.ProviderConfig
	smsCfg      config.ProviderConfig
	logger      *zap.Logger
}

func NewOrderFlow(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	smmRepo repository.SMMOrderRepository,
	smsRepo repository.SMSOrderRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditLogRepository,
	ledger Ledger,
	smm services.SMMProvider,
	sms services.SMSVerificationProvider,
	rates services.ExchangeRateService,
	smmCfg config.ProviderConfig,
	smsCfg config.ProviderConfig,
	logger *zap.Logger,
) OrderFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderFlowImpl{
		tx:          tx,
		userRepo:    userRepo,
		smmRepo:     smmRepo,
		smsRepo:     smsRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		ledger:      ledger,
		smm:         smm,
		sms:         sms,
		rates:       rates,
		smmCfg:      smmCfg,
		smsCfg:      smsCfg,
		logger:      logger,
	}
}

func (f *OrderFlowImpl) activeUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.CanTransact() {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// retailPrice converts a provider cost into the user's currency and applies the markup
func (f *OrderFlowImpl) retailPrice(ctx context.Context, cost decimal.Decimal, cfg config.ProviderConfig, currency string) (decimal.Decimal, error) {
	price := cost
	from := cfg.Currency
	if from == "" {
		from = utils.CurrencyUSD
	}
	if !strings.EqualFold(from, currency) {
		converted, err := f.rates.Convert(ctx, cost, from, currency)
		if err != nil {
			return decimal.Zero, NewBusinessError("EXCHANGE_RATE_UNAVAILABLE", "Failed to price order", fmt.Errorf("%w: %v", ErrExchangeRateUnavailable, err))
		}
		price = converted
	}
	if cfg.PriceMultiplier.IsPositive() {
		price = price.Mul(cfg.PriceMultiplier)
	}
	return price.Round(2), nil
}

func (f *OrderFlowImpl) SMMServices(ctx context.Context, userID uint) ([]dto.SMMServiceDTO, error) {
	user, err := f.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := f.smm.Services(ctx)
	if err != nil {
		return nil, NewBusinessError("ORDER_PROVIDER_FAILED", "Failed to load services", fmt.Errorf("%w: %v", ErrOrderProviderFailed, err))
	}
	out := make([]dto.SMMServiceDTO, 0, len(list))
	for _, s := range list {
		rate, err := f.retailPrice(ctx, s.Rate, f.smmCfg, user.Currency)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.SMMServiceDTO{
			ID:       s.ID,
			Name:     s.Name,
			Category: s.Category,
			Rate:     rate.StringFixed(2),
			Min:      s.Min,
			Max:      s.Max,
			Currency: user.Currency,
		})
	}
	return out, nil
}

// CreateSMMOrder debits the price and places the provider order in one
// transaction; a provider failure rolls the debit back.
func (f *OrderFlowImpl) CreateSMMOrder(ctx context.Context, req *dto.CreateSMMOrderRequest, metadata *ClientMetadata) (*dto.SMMOrderDTO, error) {
	user, err := f.activeUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	service, err := services.FindService(ctx, f.smm, req.ServiceID)
	if err != nil {
		if errors.Is(err, services.ErrSMMServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, NewBusinessError("ORDER_PROVIDER_FAILED", "Failed to load services", fmt.Errorf("%w: %v", ErrOrderProviderFailed, err))
	}
	if req.Quantity < service.Min || (service.Max > 0 && req.Quantity > service.Max) {
		return nil, NewBusinessErrorf("QUANTITY_OUT_OF_RANGE", "quantity must be between %d and %d", ErrQuantityOutOfRange, service.Min, service.Max)
	}

	charge, err := f.retailPrice(ctx, service.Price(req.Quantity), f.smmCfg, user.Currency)
	if err != nil {
		return nil, err
	}
	if !charge.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var order *models.SMMOrder
	err = f.tx.Do(ctx, func(txCtx context.Context) error {
		if _, err := f.ledger.Debit(txCtx, user.ID, charge, models.BalanceFieldMain, nil); err != nil {
			return err
		}

		providerOrderID, err := f.smm.AddOrder(txCtx, service.ID, req.Link, req.Quantity)
		if err != nil {
			f.logger.Warn("smm provider rejected order",
				zap.Uint("user_id", user.ID),
				zap.Int("service_id", service.ID),
				zap.Error(err))
			return NewBusinessError("ORDER_PROVIDER_FAILED", "Failed to place order", fmt.Errorf("%w: %v", ErrOrderProviderFailed, err))
		}

		order = &models.SMMOrder{
			UserID:          user.ID,
			ProviderOrderID: providerOrderID,
			ServiceID:       service.ID,
			Link:            req.Link,
			Quantity:        req.Quantity,
			Charge:          charge,
			Remains:         req.Quantity,
			Status:          models.OrderStatusPending,
		}
		if err := f.smmRepo.Save(txCtx, order); err != nil {
			return err
		}

		userID := user.ID
		audit := newAuditLog(models.AuditActionOrderPlaced, models.AuditEntitySMMOrder, strconv.FormatUint(uint64(order.ID), 10),
			"smm order placed", metadata, map[string]any{"provider_order_id": providerOrderID, "charge": charge.String(), "service_id": service.ID})
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("smm order placed",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", user.ID),
		zap.String("provider_order_id", order.ProviderOrderID),
		zap.String("charge", charge.String()))
	out := ToSMMOrderDTO(order)
	return &out, nil
}

func (f *OrderFlowImpl) ListSMMOrders(ctx context.Context, req *dto.ListOrdersRequest) (*dto.ListSMMOrdersResponse, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)
	rows, err := f.smmRepo.ListByUser(ctx, req.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SMMOrderDTO, 0, len(rows))
	for _, o := range rows {
		items = append(items, ToSMMOrderDTO(o))
	}
	return &dto.ListSMMOrdersResponse{Items: items, Page: page, PageSize: size}, nil
}

// CreateSMSOrder rents a number first since the provider quotes the cost only
// on purchase. An empty balance is refused before calling out, and a rental
// that cannot be charged and recorded is cancelled at the provider.
func (f *OrderFlowImpl) CreateSMSOrder(ctx context.Context, req *dto.CreateSMSOrderRequest, metadata *ClientMetadata) (*dto.SMSOrderDTO, error) {
	user, err := f.activeUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Balance.IsPositive() {
		return nil, ErrInsufficientFunds
	}

	purchase, err := f.sms.Purchase(ctx, req.Service, req.Country)
	if err != nil {
		f.logger.Warn("sms provider purchase failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, NewBusinessError("ORDER_PROVIDER_FAILED", "Failed to rent number", fmt.Errorf("%w: %v", ErrOrderProviderFailed, err))
	}

	order, err := f.recordSMSOrder(ctx, user, req, purchase, metadata)
	if err != nil {
		f.cancelRental(ctx, user.ID, purchase.OrderCode, err)
		return nil, err
	}

	out := ToSMSOrderDTO(order)
	return &out, nil
}

func (f *OrderFlowImpl) recordSMSOrder(ctx context.Context, user *models.User, req *dto.CreateSMSOrderRequest, purchase *services.SMSPurchase, metadata *ClientMetadata) (*models.SMSOrder, error) {
	amount, err := f.retailPrice(ctx, purchase.Cost, f.smsCfg, user.Currency)
	if err != nil {
		return nil, err
	}
	// a free rental could never be refunded
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var order *models.SMSOrder
	err = f.tx.Do(ctx, func(txCtx context.Context) error {
		if _, err := f.ledger.Debit(txCtx, user.ID, amount, models.BalanceFieldMain, nil); err != nil {
			return err
		}
		order = &models.SMSOrder{
			UserID:      user.ID,
			OrderCode:   purchase.OrderCode,
			Service:     req.Service,
			Country:     req.Country,
			PhoneNumber: purchase.PhoneNumber,
			Amount:      amount,
			Status:      models.OrderStatusPending,
		}
		if err := f.smsRepo.Save(txCtx, order); err != nil {
			return err
		}
		userID := user.ID
		audit := newAuditLog(models.AuditActionOrderPlaced, models.AuditEntitySMSOrder, strconv.FormatUint(uint64(order.ID), 10),
			"sms number rented", metadata, map[string]any{"order_code": purchase.OrderCode, "amount": amount.String()})
		audit.UserID = &userID
		return f.auditRepo.Save(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// cancelRental runs on a context detached from the request so a client
// disconnect cannot leave the number paid for.
func (f *OrderFlowImpl) cancelRental(ctx context.Context, userID uint, orderCode string, cause error) {
	cancelCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer stop()
	if err := f.sms.Cancel(cancelCtx, orderCode); err != nil {
		f.logger.Error("sms rental not charged and not cancelled",
			zap.Uint("user_id", userID),
			zap.String("order_code", orderCode),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	f.logger.Info("sms rental cancelled after failed charge",
		zap.Uint("user_id", userID),
		zap.String("order_code", orderCode),
		zap.NamedError("cause", cause))
}

func (f *OrderFlowImpl) ListSMSOrders(ctx context.Context, req *dto.ListOrdersRequest) (*dto.ListSMSOrdersResponse, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)
	rows, err := f.smsRepo.ListByUser(ctx, req.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SMSOrderDTO, 0, len(rows))
	for _, o := range rows {
		items = append(items, ToSMSOrderDTO(o))
	}
	return &dto.ListSMSOrdersResponse{Items: items, Page: page, PageSize: size}, nil
}

func (f *OrderFlowImpl) ListProducts(ctx context.Context, req *dto.ListProductsRequest) (*dto.ListProductsResponse, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)
	status := models.ProductStatusAvailable
	filter := models.ProductFilter{Status: &status}
	if req.Platform != "" {
		platform := req.Platform
		filter.Platform = &platform
	}
	rows, err := f.productRepo.ByFilter(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductDTO, 0, len(rows))
	for _, p := range rows {
		items = append(items, ToProductDTO(p))
	}
	return &dto.ListProductsResponse{Items: items, Page: page, PageSize: size}, nil
}

// PurchaseProduct sells a listed account. Product prices are in the user's currency.
func (f *OrderFlowImpl) PurchaseProduct(ctx context.Context, req *dto.PurchaseProductRequest, metadata *ClientMetadata) (*dto.ProductPurchaseResponse, error) {
	var resp *dto.ProductPurchaseResponse
	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		user, err := f.activeUser(txCtx, req.UserID)
		if err != nil {
			return err
		}
		product, err := f.productRepo.LockByID(txCtx, req.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if product.Status != models.ProductStatusAvailable {
			return ErrProductNotAvailable
		}

		balance, err := f.ledger.Debit(txCtx, user.ID, product.Price, models.BalanceFieldMain, &LedgerNote{
			Title:   "Purchase complete",
			Message: fmt.Sprintf("You bought %s for %s %s.", product.Title, product.Price.StringFixed(2), user.Currency),
		})
		if err != nil {
			return err
		}
		ok, err := f.productRepo.MarkSold(txCtx, product.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProductNotAvailable
		}
		purchase := &models.ProductPurchase{UserID: user.ID, ProductID: product.ID, Price: product.Price}
		if err := f.productRepo.SavePurchase(txCtx, purchase); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrProductNotAvailable
			}
			return err
		}

		userID := user.ID
		audit := newAuditLog(models.AuditActionProductPurchased, models.AuditEntityProduct, strconv.FormatUint(uint64(product.ID), 10),
			"product purchased", metadata, map[string]any{"purchase_id": purchase.ID, "price": product.Price.String()})
		audit.UserID = &userID
		if err := f.auditRepo.Save(txCtx, audit); err != nil {
			return err
		}

		resp = &dto.ProductPurchaseResponse{
			PurchaseID:  purchase.ID,
			ProductID:   product.ID,
			Price:       product.Price.StringFixed(2),
			Credentials: product.Credentials,
			Balance:     balance.StringFixed(2),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
