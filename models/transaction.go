package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeRefund   TransactionType = "refund" // provider refund of an order
)

// TransactionStatus represents the current status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusCanceled TransactionStatus = "canceled"
	TransactionStatusFailed   TransactionStatus = "failed"
)

// TransactionProvider names where a transaction originated
type TransactionProvider string

const (
	TransactionProviderBank      TransactionProvider = "bank"
	TransactionProviderCryptomus TransactionProvider = "cryptomus"
	TransactionProviderInternal  TransactionProvider = "internal"
	TransactionProviderSMM       TransactionProvider = "smm"
	TransactionProviderSMS       TransactionProvider = "sms"
)

// Transaction is the user-visible log of money movements. Status moves at most
// once, from pending to one of the terminal statuses.
type Transaction struct {
	ID       uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID           `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	UserID   uint                `gorm:"not null;index" json:"user_id"`
	Type     TransactionType     `gorm:"type:varchar(20);not null;index" json:"type"`
	Status   TransactionStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount   decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency string              `gorm:"type:varchar(3);not null;default:'NGN'" json:"currency"`
	Provider TransactionProvider `gorm:"type:varchar(20);not null" json:"provider"`

	// Reference is shared with pending_deposits / withdrawals, or is the crypto order id
	Reference string `gorm:"type:varchar(64);not null;uniqueIndex:uk_transactions_reference" json:"reference"`

	Description string          `gorm:"type:text" json:"description"`
	Metadata    json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate ensures UUID is set
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if len(t.Metadata) == 0 {
		t.Metadata = json.RawMessage(`{}`)
	}
	return nil
}

// IsTerminal returns true if the transaction reached a final state
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess ||
		t.Status == TransactionStatusCanceled ||
		t.Status == TransactionStatusFailed
}

// IsPending returns true if the transaction is still being processed
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// CanTransitionTo reports whether status may move to next
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	return t.Status == TransactionStatusPending && next != TransactionStatusPending
}

// TransactionFilter represents filter criteria for transaction queries
type TransactionFilter struct {
	ID            *uint
	UserID        *uint
	Type          *TransactionType
	Status        *TransactionStatus
	Provider      *TransactionProvider
	Reference     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
