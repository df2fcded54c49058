package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingDepositStatus is the review state of a bank deposit
type PendingDepositStatus string

const (
	PendingDepositStatusPending  PendingDepositStatus = "Pending"
	PendingDepositStatusApproved PendingDepositStatus = "Approved"
	PendingDepositStatusRejected PendingDepositStatus = "Rejected"
)

// PendingDeposit is a bank transfer awaiting admin verification. Reviewed rows
// are kept with their terminal status and review timestamp.
type PendingDeposit struct {
	ID            uint                 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint                 `gorm:"not null;index" json:"user_id"`
	Amount        decimal.Decimal      `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency      string               `gorm:"type:varchar(3);not null;default:'NGN'" json:"currency"`
	Reference     string               `gorm:"type:varchar(64);not null;uniqueIndex:uk_pending_deposits_reference" json:"reference"`
	UserReference string               `gorm:"type:varchar(255);not null" json:"user_reference"`
	ProofImage    []byte               `gorm:"type:bytea" json:"-"`
	ProofMimeType string               `gorm:"type:varchar(100)" json:"proof_mime_type"`
	Status        PendingDepositStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	ReviewedBy    *uint                `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time           `json:"reviewed_at,omitempty"`
	ReviewNote    *string              `gorm:"type:text" json:"review_note,omitempty"`
	CreatedAt     time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PendingDeposit) TableName() string {
	return "pending_deposits"
}

func (d *PendingDeposit) IsPending() bool {
	return d.Status == PendingDepositStatusPending
}

// PendingDepositFilter represents filter criteria for pending deposit queries
type PendingDepositFilter struct {
	ID            *uint
	UserID        *uint
	Status        *PendingDepositStatus
	Reference     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
