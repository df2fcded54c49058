package dto

import "github.com/shopspring/decimal"

// WalletTransferRequest moves funds between a user's two balances
type WalletTransferRequest struct {
	UserID uint            `json:"-"`
	From   string          `json:"from" validate:"required,oneof=balance business_balance"`
	To     string          `json:"to" validate:"required,oneof=balance business_balance,nefield=From"`
	Amount decimal.Decimal `json:"amount"`
}

type WalletResponse struct {
	Balance         string `json:"balance"`
	BusinessBalance string `json:"business_balance"`
	Currency        string `json:"currency"`
}
