package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ByEmail retrieves a user by email
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Where("email = ?", email).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// LockByID selects the user FOR UPDATE
func (r *UserRepositoryImpl) LockByID(ctx context.Context, id uint) (*models.User, error) {
	return r.lockByID(ctx, id)
}

// Credit atomically adds amount to the balance column
func (r *UserRepositoryImpl) Credit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField) (decimal.Decimal, error) {
	if err := checkLedgerArgs(amount, field); err != nil {
		return decimal.Zero, err
	}

	query := fmt.Sprintf(
		"UPDATE users SET %[1]s = %[1]s + ?, updated_at = ? WHERE id = ? RETURNING %[1]s",
		field,
	)

	var balance decimal.Decimal
	err := r.getDB(ctx).Raw(query, amount, utils.UTCNow(), userID).Row().Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to credit user %d: %w", userID, err)
	}

	return balance, nil
}

// Debit atomically subtracts amount when the column still covers it. The
// guard and the write are one statement, so concurrent debits cannot both
// pass the check against the same value.
func (r *UserRepositoryImpl) Debit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField) (decimal.Decimal, error) {
	if err := checkLedgerArgs(amount, field); err != nil {
		return decimal.Zero, err
	}

	query := fmt.Sprintf(
		"UPDATE users SET %[1]s = %[1]s - ?, updated_at = ? WHERE id = ? AND %[1]s >= ? RETURNING %[1]s",
		field,
	)

	db := r.getDB(ctx)

	var balance decimal.Decimal
	err := db.Raw(query, amount, utils.UTCNow(), userID, amount).Row().Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to debit user %d: %w", userID, err)
	}

	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	if count == 0 {
		return decimal.Zero, ErrUserNotFound
	}

	return decimal.Zero, ErrInsufficientFunds
}

// UpdateLastLogin stamps the last successful login
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func checkLedgerArgs(amount decimal.Decimal, field models.BalanceField) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidBalanceField, field)
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}
