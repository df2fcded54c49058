// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amirphl/smm-panel/models"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// UserRepository owns the ledger statements on users
type UserRepository interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	// Credit adds amount to field and returns the new value
	Credit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField) (decimal.Decimal, error)
	// Debit subtracts amount only when the current value covers it
	Debit(ctx context.Context, userID uint, amount decimal.Decimal, field models.BalanceField) (decimal.Decimal, error)
	LockByID(ctx context.Context, id uint) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

type AdminRepository interface {
	ByID(ctx context.Context, id uint) (*models.Admin, error)
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	Save(ctx context.Context, admin *models.Admin) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

// TransactionRepository defines operations for the transaction log
type TransactionRepository interface {
	ByID(ctx context.Context, id uint) (*models.Transaction, error)
	ByReference(ctx context.Context, reference string) (*models.Transaction, error)
	LockByReference(ctx context.Context, reference string) (*models.Transaction, error)
	ByFilter(ctx context.Context, filter models.TransactionFilter, limit, offset int) ([]*models.Transaction, error)
	Save(ctx context.Context, tx *models.Transaction) error
	// UpdateStatusIfPending moves a pending row to status. It reports false when
	// the row was no longer pending.
	UpdateStatusIfPending(ctx context.Context, id uint, status models.TransactionStatus, metadata json.RawMessage) (bool, error)
}

type PendingDepositRepository interface {
	ByID(ctx context.Context, id uint) (*models.PendingDeposit, error)
	LockByID(ctx context.Context, id uint) (*models.PendingDeposit, error)
	ByFilter(ctx context.Context, filter models.PendingDepositFilter, limit, offset int) ([]*models.PendingDeposit, error)
	Save(ctx context.Context, deposit *models.PendingDeposit) error
	MarkReviewed(ctx context.Context, id uint, status models.PendingDepositStatus, adminID uint, note *string, at time.Time) (bool, error)
}

// CountedDepositRepository numbers approved deposits per user
type CountedDepositRepository interface {
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Save(ctx context.Context, deposit *models.CountedDeposit) error
}

type ReferralRepository interface {
	Save(ctx context.Context, referral *models.Referral) error
	LockByReferredID(ctx context.Context, referredID uint) (*models.Referral, error)
	MarkCommissionEarned(ctx context.Context, id uint) error
	CountByReferrer(ctx context.Context, referrerID uint) (int64, error)
}

// CommissionRepository is append-only
type CommissionRepository interface {
	Save(ctx context.Context, commission *models.Commission) error
	SaveIfAbsent(ctx context.Context, commission *models.Commission) (bool, error)
	ListByReferrer(ctx context.Context, referrerID uint) ([]*models.Commission, error)
	SumByReferrer(ctx context.Context, referrerID uint) (decimal.Decimal, error)
}

type ReferralWithdrawalRepository interface {
	Save(ctx context.Context, withdrawal *models.ReferralWithdrawal) error
	// SumActiveByUser totals pending and paid referral withdrawals
	SumActiveByUser(ctx context.Context, userID uint) (decimal.Decimal, error)
}

type BankAccountRepository interface {
	ByID(ctx context.Context, id uint) (*models.BankAccount, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.BankAccount, error)
	Save(ctx context.Context, account *models.BankAccount) error
}

type WithdrawalRepository interface {
	ByID(ctx context.Context, id uint) (*models.Withdrawal, error)
	LockByID(ctx context.Context, id uint) (*models.Withdrawal, error)
	ByFilter(ctx context.Context, filter models.WithdrawalFilter, limit, offset int) ([]*models.Withdrawal, error)
	Save(ctx context.Context, withdrawal *models.Withdrawal) error
	MarkReviewed(ctx context.Context, id uint, status models.PayoutStatus, adminID uint, at time.Time) (bool, error)
}

type NotificationRepository interface {
	Save(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error)
}

// SMMOrderRepository backs the SMM purchase flow and poller
type SMMOrderRepository interface {
	ByID(ctx context.Context, id uint) (*models.SMMOrder, error)
	Save(ctx context.Context, order *models.SMMOrder) error
	Update(ctx context.Context, order *models.SMMOrder) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.SMMOrder, error)
	// ListOpen pages through non-terminal orders by ascending id
	ListOpen(ctx context.Context, afterID uint, limit int) ([]*models.SMMOrder, error)
	ClaimByID(ctx context.Context, id uint) (*models.SMMOrder, error)
}

// SMSOrderRepository backs the SMS purchase flow and poller
type SMSOrderRepository interface {
	ByID(ctx context.Context, id uint) (*models.SMSOrder, error)
	Save(ctx context.Context, order *models.SMSOrder) error
	Update(ctx context.Context, order *models.SMSOrder) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.SMSOrder, error)
	ListUsersWithOpenOrders(ctx context.Context) ([]uint, error)
	ListOpenByUser(ctx context.Context, userID uint) ([]*models.SMSOrder, error)
	ClaimByID(ctx context.Context, id uint) (*models.SMSOrder, error)
}

type ProductRepository interface {
	ByID(ctx context.Context, id uint) (*models.Product, error)
	LockByID(ctx context.Context, id uint) (*models.Product, error)
	ByFilter(ctx context.Context, filter models.ProductFilter, limit, offset int) ([]*models.Product, error)
	Save(ctx context.Context, product *models.Product) error
	MarkSold(ctx context.Context, id uint) (bool, error)
	SavePurchase(ctx context.Context, purchase *models.ProductPurchase) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Save(ctx context.Context, log *models.AuditLog) error
	ByFilter(ctx context.Context, filter models.AuditLogFilter, limit, offset int) ([]*models.AuditLog, error)
}
