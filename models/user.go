// Package models contains domain entities and business models for the reseller ledger
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceField names one of the two mutable balance columns on users
type BalanceField string

const (
	BalanceFieldMain     BalanceField = "balance"
	BalanceFieldBusiness BalanceField = "business_balance"
)

// Valid reports whether the field is one of the known balance columns
func (f BalanceField) Valid() bool {
	return f == BalanceFieldMain || f == BalanceFieldBusiness
}

// User is the account that owns balances. Identity fields are managed by the
// account subsystem; the ledger only mutates Balance and BusinessBalance.
type User struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	Email           string          `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	Username        string          `gorm:"size:100;not null;uniqueIndex:uk_users_username" json:"username"`
	PasswordHash    string          `gorm:"size:255;not null" json:"-"`
	Balance         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	BusinessBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"business_balance"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'NGN'" json:"currency"`
	IsSuspended     *bool           `gorm:"default:false" json:"is_suspended"`
	IsLocked        *bool           `gorm:"default:false" json:"is_locked"`
	CreatedAt       time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt     *time.Time      `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}

// CanTransact reports whether the account may move funds
func (u *User) CanTransact() bool {
	return !(u.IsSuspended != nil && *u.IsSuspended) && !(u.IsLocked != nil && *u.IsLocked)
}

// BalanceOf returns the value of the given balance field
func (u *User) BalanceOf(field BalanceField) decimal.Decimal {
	if field == BalanceFieldBusiness {
		return u.BusinessBalance
	}
	return u.Balance
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID          *uint
	UUID        *uuid.UUID
	Email       *string
	Username    *string
	IsSuspended *bool
}
