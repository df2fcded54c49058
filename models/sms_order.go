package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SMSOrder is a rented verification number
type SMSOrder struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID           uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	OrderCode      string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_sms_orders_code" json:"order_code"`
	Service        string          `gorm:"type:varchar(100);not null" json:"service"`
	Country        string          `gorm:"type:varchar(100);not null" json:"country"`
	PhoneNumber    string          `gorm:"type:varchar(32)" json:"phone_number"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Code           string          `gorm:"type:varchar(64)" json:"code"`
	StartCount     int             `gorm:"not null;default:0" json:"start_count"`
	Remaining      int             `gorm:"not null;default:0" json:"remaining"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProviderStatus string          `gorm:"type:varchar(50)" json:"provider_status"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SMSOrder) TableName() string {
	return "sms_orders"
}

func (o *SMSOrder) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	return nil
}

// SMSOrderFilter represents filter criteria for SMS order queries
type SMSOrderFilter struct {
	ID        *uint
	UserID    *uint
	OrderCode *string
	Statuses  []OrderStatus
}
