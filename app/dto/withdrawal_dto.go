package dto

import "github.com/shopspring/decimal"

type WithdrawRequest struct {
	UserID uint            `json:"-"`
	BankID uint            `json:"bank_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type WithdrawResponse struct {
	Message   string `json:"message"`
	Reference string `json:"reference"`
	Balance   string `json:"balance"`
}

type ReviewWithdrawalRequest struct {
	AdminID      uint `json:"-"`
	WithdrawalID uint `json:"-"`
}

type WithdrawalDTO struct {
	ID            uint    `json:"id"`
	UserID        uint    `json:"user_id"`
	BankAccountID uint    `json:"bank_account_id"`
	Amount        string  `json:"amount"`
	Reference     string  `json:"reference"`
	Status        string  `json:"status"`
	ReviewedAt    *string `json:"reviewed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type AddBankAccountRequest struct {
	UserID        uint   `json:"-"`
	BankName      string `json:"bank_name" validate:"required,max=255"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=32"`
	AccountName   string `json:"account_name" validate:"required,max=255"`
}

type BankAccountDTO struct {
	ID            uint   `json:"id"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type ListWithdrawalsRequest struct {
	UserID   uint   `json:"-"`
	Status   string `query:"status" validate:"omitempty,oneof=pending paid rejected"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

type ListWithdrawalsResponse struct {
	Items    []WithdrawalDTO `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}
