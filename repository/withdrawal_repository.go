package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/smm-panel/models"
	"gorm.io/gorm"
)

// BankAccountRepositoryImpl implements BankAccountRepository interface
type BankAccountRepositoryImpl struct {
	*BaseRepository[models.BankAccount, struct{}]
}

func NewBankAccountRepository(db *gorm.DB) BankAccountRepository {
	return &BankAccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BankAccount, struct{}](db),
	}
}

func (r *BankAccountRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.BankAccount, error) {
	var accounts []*models.BankAccount
	err := r.getDB(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// WithdrawalRepositoryImpl implements WithdrawalRepository interface
type WithdrawalRepositoryImpl struct {
	*BaseRepository[models.Withdrawal, models.WithdrawalFilter]
}

func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &WithdrawalRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Withdrawal, models.WithdrawalFilter](db),
	}
}

func (r *WithdrawalRepositoryImpl) LockByID(ctx context.Context, id uint) (*models.Withdrawal, error) {
	return r.lockByID(ctx, id)
}

func (r *WithdrawalRepositoryImpl) ByFilter(ctx context.Context, filter models.WithdrawalFilter, limit, offset int) ([]*models.Withdrawal, error) {
	query := r.getDB(ctx)
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var withdrawals []*models.Withdrawal
	if err := paginate(query.Order("created_at DESC, id DESC"), limit, offset).Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (r *WithdrawalRepositoryImpl) MarkReviewed(ctx context.Context, id uint, status models.PayoutStatus, adminID uint, at time.Time) (bool, error) {
	res := r.getDB(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, models.PayoutStatusPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": adminID,
			"reviewed_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to review withdrawal %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// NotificationRepositoryImpl implements NotificationRepository interface
type NotificationRepositoryImpl struct {
	*BaseRepository[models.Notification, struct{}]
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Notification, struct{}](db),
	}
}

func (r *NotificationRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	query := r.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	err := paginate(query, limit, offset).Find(&notifications).Error
	return notifications, err
}
