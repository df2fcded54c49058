package dto

import "github.com/shopspring/decimal"

type ReferralSummaryResponse struct {
	ReferredCount  int64  `json:"referred_count"`
	TotalEarned    string `json:"total_earned"`
	TotalWithdrawn string `json:"total_withdrawn"`
	Available      string `json:"available"`
}

type ReferralWithdrawRequest struct {
	UserID uint            `json:"-"`
	BankID uint            `json:"bank_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type ReferralWithdrawResponse struct {
	ID        uint   `json:"id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	Available string `json:"available"`
}
