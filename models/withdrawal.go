package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount is a payout destination owned by a user
type BankAccount struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	BankName      string    `gorm:"type:varchar(255);not null" json:"bank_name"`
	AccountNumber string    `gorm:"type:varchar(32);not null" json:"account_number"`
	AccountName   string    `gorm:"type:varchar(255);not null" json:"account_name"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BankAccount) TableName() string {
	return "bank_accounts"
}

// Withdrawal is a payout from the main balance. Reference equals the
// reference of the withdraw transaction created in the same unit of work.
type Withdrawal struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	BankAccountID uint            `gorm:"not null" json:"bank_account_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Reference     string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_withdrawals_reference" json:"reference"`
	Status        PayoutStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedBy    *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}

func (w *Withdrawal) IsPending() bool {
	return w.Status == PayoutStatusPending
}

// WithdrawalFilter represents filter criteria for withdrawal queries
type WithdrawalFilter struct {
	ID     *uint
	UserID *uint
	Status *PayoutStatus
}
