package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral links a referring user to the user they brought in.
// CommissionEarned closes the commission window permanently once set.
type Referral struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID       uint      `gorm:"not null;index" json:"referrer_id"`
	ReferredID       uint      `gorm:"not null;uniqueIndex:uk_referrals_referred" json:"referred_id"`
	CommissionEarned bool      `gorm:"not null;default:false" json:"commission_earned"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Referral) TableName() string {
	return "referrals"
}

// Commission is an append-only row of earned referral commission
type Commission struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerID    uint            `gorm:"not null;uniqueIndex:uk_commissions_triple,priority:1" json:"referrer_id"`
	ReferredID    uint            `gorm:"not null;uniqueIndex:uk_commissions_triple,priority:2" json:"referred_id"`
	DepositNumber int             `gorm:"not null;uniqueIndex:uk_commissions_triple,priority:3" json:"deposit_number"`
	Percentage    decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"percentage"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Commission) TableName() string {
	return "commissions"
}

// PayoutStatus is shared by withdrawals and referral withdrawals
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusPaid     PayoutStatus = "paid"
	PayoutStatusRejected PayoutStatus = "rejected"
)

// ReferralWithdrawal is a payout request against earned commission
type ReferralWithdrawal struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	BankAccountID uint            `gorm:"not null" json:"bank_account_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Status        PayoutStatus    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ReferralWithdrawal) TableName() string {
	return "referral_withdrawals"
}

// ReferralSummary aggregates a referrer's commission position
type ReferralSummary struct {
	ReferredCount  int64           `json:"referred_count"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	Available      decimal.Decimal `json:"available"`
}
