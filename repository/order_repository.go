package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/utils"
	"gorm.io/gorm"
)

// SMMOrderRepositoryImpl implements SMMOrderRepository interface
type SMMOrderRepositoryImpl struct {
	*BaseRepository[models.SMMOrder, models.SMMOrderFilter]
}

// NewSMMOrderRepository creates a new SMM order repository
func NewSMMOrderRepository(db *gorm.DB) SMMOrderRepository {
	return &SMMOrderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SMMOrder, models.SMMOrderFilter](db),
	}
}

func (r *SMMOrderRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.SMMOrder, error) {
	var orders []*models.SMMOrder
	query := r.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if err := paginate(query, limit, offset).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list smm orders: %w", err)
	}
	return orders, nil
}

// ListOpen returns up to limit non-terminal orders with id > afterID
func (r *SMMOrderRepositoryImpl) ListOpen(ctx context.Context, afterID uint, limit int) ([]*models.SMMOrder, error) {
	var orders []*models.SMMOrder
	err := r.getDB(ctx).
		Where("status IN ? AND id > ?", models.NonTerminalOrderStatuses, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open smm orders: %w", err)
	}
	return orders, nil
}

// ClaimByID locks the order unless another worker holds it
func (r *SMMOrderRepositoryImpl) ClaimByID(ctx context.Context, id uint) (*models.SMMOrder, error) {
	return r.claimByID(ctx, id)
}

// SMSOrderRepositoryImpl implements SMSOrderRepository interface
type SMSOrderRepositoryImpl struct {
	*BaseRepository[models.SMSOrder, models.SMSOrderFilter]
}

// NewSMSOrderRepository creates a new SMS order repository
func NewSMSOrderRepository(db *gorm.DB) SMSOrderRepository {
	return &SMSOrderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SMSOrder, models.SMSOrderFilter](db),
	}
}

func (r *SMSOrderRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.SMSOrder, error) {
	var orders []*models.SMSOrder
	query := r.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if err := paginate(query, limit, offset).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list sms orders: %w", err)
	}
	return orders, nil
}

// ListUsersWithOpenOrders returns the distinct owners of non-terminal orders
func (r *SMSOrderRepositoryImpl) ListUsersWithOpenOrders(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.getDB(ctx).Model(&models.SMSOrder{}).
		Where("status IN ? OR (status = ? AND updated_at > ?)",
			models.NonTerminalOrderStatuses, models.OrderStatusExpired, smsWatchCutoff()).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sms order users: %w", err)
	}
	return ids, nil
}

func (r *SMSOrderRepositoryImpl) ListOpenByUser(ctx context.Context, userID uint) ([]*models.SMSOrder, error) {
	var orders []*models.SMSOrder
	err := r.getDB(ctx).
		Where("user_id = ? AND (status IN ? OR (status = ? AND updated_at > ?))",
			userID, models.NonTerminalOrderStatuses, models.OrderStatusExpired, smsWatchCutoff()).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open sms orders: %w", err)
	}
	return orders, nil
}

// expired rentals stay listed for late provider refunds
func smsWatchCutoff() time.Time {
	return utils.UTCNow().Add(-models.SMSRefundWatch)
}

// ClaimByID locks the order unless another worker holds it
func (r *SMSOrderRepositoryImpl) ClaimByID(ctx context.Context, id uint) (*models.SMSOrder, error) {
	return r.claimByID(ctx, id)
}
