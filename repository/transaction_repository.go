package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionRepositoryImpl implements TransactionRepository interface
type TransactionRepositoryImpl struct {
	*BaseRepository[models.Transaction, models.TransactionFilter]
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &TransactionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Transaction, models.TransactionFilter](db),
	}
}

// ByReference finds a transaction by its unique reference
func (r *TransactionRepositoryImpl) ByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	db := r.getDB(ctx)
	var transaction models.Transaction
	err := db.Where("reference = ?", reference).Take(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

// LockByReference finds a transaction by reference and holds its row lock
func (r *TransactionRepositoryImpl) LockByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	db := r.getDB(ctx)
	var transaction models.Transaction
	err := db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("reference = ?", reference).
		Take(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

// ByFilter retrieves transactions matching the filter, newest first
func (r *TransactionRepositoryImpl) ByFilter(ctx context.Context, filter models.TransactionFilter, limit, offset int) ([]*models.Transaction, error) {
	db := r.getDB(ctx)
	query := paginate(r.applyFilter(db, filter).Order("created_at DESC, id DESC"), limit, offset)

	var transactions []*models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// UpdateStatusIfPending moves the row out of pending exactly once
func (r *TransactionRepositoryImpl) UpdateStatusIfPending(ctx context.Context, id uint, status models.TransactionStatus, metadata json.RawMessage) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":     status,
		"updated_at": utils.UTCNow(),
	}
	if len(metadata) > 0 {
		updates["metadata"] = metadata
	}

	res := db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update transaction %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// applyFilter applies filter conditions to the query
func (r *TransactionRepositoryImpl) applyFilter(query *gorm.DB, filter models.TransactionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
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
	return query
}
