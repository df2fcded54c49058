package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CountedDepositRepositoryImpl implements CountedDepositRepository interface
type CountedDepositRepositoryImpl struct {
	*BaseRepository[models.CountedDeposit, struct{}]
}

func NewCountedDepositRepository(db *gorm.DB) CountedDepositRepository {
	return &CountedDepositRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CountedDeposit, struct{}](db),
	}
}

func (r *CountedDepositRepositoryImpl) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.CountedDeposit{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count deposits of user %d: %w", userID, err)
	}
	return count, nil
}

// ReferralRepositoryImpl implements ReferralRepository interface
type ReferralRepositoryImpl struct {
	*BaseRepository[models.Referral, struct{}]
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &ReferralRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Referral, struct{}](db),
	}
}

// LockByReferredID returns the referral that brought in the user, locked
func (r *ReferralRepositoryImpl) LockByReferredID(ctx context.Context, referredID uint) (*models.Referral, error) {
	var referral models.Referral
	err := r.getDB(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("referred_id = ?", referredID).
		Take(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

func (r *ReferralRepositoryImpl) MarkCommissionEarned(ctx context.Context, id uint) error {
	return r.getDB(ctx).Model(&models.Referral{}).
		Where("id = ?", id).
		Updates(map[string]any{"commission_earned": true, "updated_at": utils.UTCNow()}).Error
}

func (r *ReferralRepositoryImpl) CountByReferrer(ctx context.Context, referrerID uint) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.Referral{}).Where("referrer_id = ?", referrerID).Count(&count).Error
	return count, err
}

// CommissionRepositoryImpl implements CommissionRepository interface
type CommissionRepositoryImpl struct {
	*BaseRepository[models.Commission, struct{}]
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &CommissionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Commission, struct{}](db),
	}
}

// SaveIfAbsent inserts the commission unless its (referrer, referred, deposit
// number) triple exists. It reports whether a row was written. A unique
// violation would abort the surrounding transaction, so the conflict is
// resolved in SQL.
func (r *CommissionRepositoryImpl) SaveIfAbsent(ctx context.Context, commission *models.Commission) (bool, error) {
	res := r.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "referrer_id"}, {Name: "referred_id"}, {Name: "deposit_number"}},
		DoNothing: true,
	}).Create(commission)
	if res.Error != nil {
		return false, fmt.Errorf("failed to save commission: %w", mapDBError(res.Error))
	}
	return res.RowsAffected > 0, nil
}

func (r *CommissionRepositoryImpl) ListByReferrer(ctx context.Context, referrerID uint) ([]*models.Commission, error) {
	var commissions []*models.Commission
	err := r.getDB(ctx).Where("referrer_id = ?", referrerID).Order("created_at ASC, id ASC").Find(&commissions).Error
	return commissions, err
}

func (r *CommissionRepositoryImpl) SumByReferrer(ctx context.Context, referrerID uint) (decimal.Decimal, error) {
	return sumAmount(r.getDB(ctx).Model(&models.Commission{}).Where("referrer_id = ?", referrerID))
}

// ReferralWithdrawalRepositoryImpl implements ReferralWithdrawalRepository interface
type ReferralWithdrawalRepositoryImpl struct {
	*BaseRepository[models.ReferralWithdrawal, struct{}]
}

func NewReferralWithdrawalRepository(db *gorm.DB) ReferralWithdrawalRepository {
	return &ReferralWithdrawalRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ReferralWithdrawal, struct{}](db),
	}
}

func (r *ReferralWithdrawalRepositoryImpl) SumActiveByUser(ctx context.Context, userID uint) (decimal.Decimal, error) {
	return sumAmount(r.getDB(ctx).Model(&models.ReferralWithdrawal{}).
		Where("user_id = ? AND status <> ?", userID, models.PayoutStatusRejected))
}

func sumAmount(query *gorm.DB) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := query.Select("SUM(amount)").Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum amounts: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
