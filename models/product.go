package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
)

// Product is a peer-to-peer social account listed by an admin
type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Platform    string          `gorm:"type:varchar(50);not null;index" json:"platform"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price"`
	Credentials string          `gorm:"type:text;not null" json:"-"`
	Features    pq.StringArray  `gorm:"type:text[]" json:"features"`
	Status      ProductStatus   `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string {
	return "admin_products"
}

// ProductPurchase records a sold product and its price at purchase time
type ProductPurchase struct {
	ID        uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	ProductID uint            `gorm:"not null;uniqueIndex:uk_product_purchases_product" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ProductPurchase) TableName() string {
	return "product_purchases"
}

// ProductFilter represents filter criteria for product queries
type ProductFilter struct {
	Platform *string
	Status   *ProductStatus
}
