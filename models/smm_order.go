package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SMMOrder is an engagement order placed with the SMM panel
type SMMOrder struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID            uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	ProviderOrderID string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_smm_orders_provider_order" json:"provider_order_id"`
	ServiceID       int             `gorm:"not null" json:"service_id"`
	Link            string          `gorm:"type:text;not null" json:"link"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	Charge          decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"charge"`
	StartCount      int             `gorm:"not null;default:0" json:"start_count"`
	Remains         int             `gorm:"not null;default:0" json:"remains"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProviderStatus  string          `gorm:"type:varchar(50)" json:"provider_status"`
	RefundAmount    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"refund_amount"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SMMOrder) TableName() string {
	return "smm_orders"
}

func (o *SMMOrder) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	return nil
}

// PartialRefund is the unfulfilled share of the charge, rounded half-up to 2 places
func (o *SMMOrder) PartialRefund(remains int) decimal.Decimal {
	if o.Quantity <= 0 || remains <= 0 {
		return decimal.Zero
	}
	if remains > o.Quantity {
		remains = o.Quantity
	}
	return o.Charge.Mul(decimal.NewFromInt(int64(remains))).
		Div(decimal.NewFromInt(int64(o.Quantity))).
		Round(2)
}

// SMMOrderFilter represents filter criteria for SMM order queries
type SMMOrderFilter struct {
	ID       *uint
	UserID   *uint
	Statuses []OrderStatus
}
