package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxCountedDeposits is the number of approved deposits that take part in referral tiers
const MaxCountedDeposits = 3

// CountedDeposit numbers a user's first approved deposits
type CountedDeposit struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint            `gorm:"not null;uniqueIndex:uk_deposits_user_number,priority:1" json:"user_id"`
	DepositNumber int             `gorm:"not null;uniqueIndex:uk_deposits_user_number,priority:2" json:"deposit_number"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	TransactionID uint            `gorm:"not null" json:"transaction_id"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CountedDeposit) TableName() string {
	return "deposits"
}
