package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/smm-panel/models"
	"gorm.io/gorm"
)

// PendingDepositRepositoryImpl implements PendingDepositRepository interface
type PendingDepositRepositoryImpl struct {
	*BaseRepository[models.PendingDeposit, models.PendingDepositFilter]
}

// NewPendingDepositRepository creates a new pending deposit repository
func NewPendingDepositRepository(db *gorm.DB) PendingDepositRepository {
	return &PendingDepositRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PendingDeposit, models.PendingDepositFilter](db),
	}
}

// LockByID selects the deposit FOR UPDATE so concurrent reviews serialize
func (r *PendingDepositRepositoryImpl) LockByID(ctx context.Context, id uint) (*models.PendingDeposit, error) {
	return r.lockByID(ctx, id)
}

// ByFilter lists deposits without the proof blob, newest first
func (r *PendingDepositRepositoryImpl) ByFilter(ctx context.Context, filter models.PendingDepositFilter, limit, offset int) ([]*models.PendingDeposit, error) {
	db := r.getDB(ctx)
	query := db.Omit("proof_image")

	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Reference != nil {
		query = query.Where("reference = ?", *filter.Reference)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var deposits []*models.PendingDeposit
	if err := paginate(query.Order("created_at DESC, id DESC"), limit, offset).Find(&deposits).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending deposits: %w", err)
	}
	return deposits, nil
}

// MarkReviewed records the terminal review status. The row is kept.
func (r *PendingDepositRepositoryImpl) MarkReviewed(ctx context.Context, id uint, status models.PendingDepositStatus, adminID uint, note *string, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.PendingDeposit{}).
		Where("id = ? AND status = ?", id, models.PendingDepositStatusPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": adminID,
			"reviewed_at": at,
			"review_note": note,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to review pending deposit %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
