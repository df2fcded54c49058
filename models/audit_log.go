package models

import (
	"encoding/json"
	"time"
)

// AuditLog records who changed which financial row
type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	AdminID      *uint           `gorm:"index:idx_audit_admin_id" json:"admin_id,omitempty"`
	Action       string          `gorm:"type:varchar(64);not null;index:idx_audit_action" json:"action"`
	EntityType   string          `gorm:"type:varchar(64);not null" json:"entity_type"`
	EntityID     string          `gorm:"type:varchar(64);not null;index:idx_audit_entity" json:"entity_id"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionDepositRequested    = "deposit_requested"
	AuditActionDepositApproved     = "deposit_approved"
	AuditActionDepositRejected     = "deposit_rejected"
	AuditActionCryptoPaymentOpened = "crypto_payment_opened"
	AuditActionCryptoWebhookPaid   = "crypto_webhook_paid"
	AuditActionCryptoWebhookFailed = "crypto_webhook_failed"
	AuditActionWithdrawRequested   = "withdraw_requested"
	AuditActionWithdrawApproved    = "withdraw_approved"
	AuditActionWithdrawRejected    = "withdraw_rejected"
	AuditActionCommissionPaid      = "commission_paid"
	AuditActionOrderPlaced         = "order_placed"
	AuditActionOrderRefunded       = "order_refunded"
	AuditActionProductPurchased    = "product_purchased"
	AuditActionWalletTransfer      = "wallet_transfer"
	AuditActionLoginSuccess        = "login_success"
	AuditActionLoginFailed         = "login_failed"
)

// Audited entity types
const (
	AuditEntityPendingDeposit = "pending_deposit"
	AuditEntityTransaction    = "transaction"
	AuditEntityWithdrawal     = "withdrawal"
	AuditEntitySMMOrder       = "smm_order"
	AuditEntitySMSOrder       = "sms_order"
	AuditEntityUser           = "user"
	AuditEntityAdmin          = "admin"
	AuditEntityProduct        = "product"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	UserID        *uint
	AdminID       *uint
	Action        *string
	EntityType    *string
	EntityID      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
