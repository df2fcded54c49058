package dto

import "github.com/shopspring/decimal"

// BankDepositRequest carries the multipart bank-transfer form
type BankDepositRequest struct {
	UserID        uint            `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference" validate:"required,max=255"`
	Proof         []byte          `json:"-"`
	ProofFilename string          `json:"-"`
}

type BankDepositResponse struct {
	Message   string `json:"message"`
	Reference string `json:"reference"`
}

// CreateCryptomusPaymentRequest opens a hosted crypto invoice
type CreateCryptomusPaymentRequest struct {
	UserID          uint            `json:"-"`
	CryptomusAmount decimal.Decimal `json:"cryptomus_amount"`
	Currency        string          `json:"currency" validate:"required,oneof=USD NGN usd ngn"`
	UserCurrency    string          `json:"userCurrency" validate:"omitempty,oneof=USD NGN usd ngn"`
}

type CreateCryptomusPaymentResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl"`
	Reference  string `json:"reference,omitempty"`
}

type ListDepositsRequest struct {
	UserID   uint `json:"-"`
	Page     int  `query:"page" validate:"omitempty,min=1"`
	PageSize int  `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// TransactionDTO is a transaction row as shown to its owner
type TransactionDTO struct {
	ID          uint   `json:"id"`
	UUID        string `json:"uuid"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Provider    string `json:"provider"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type ListTransactionsResponse struct {
	Items    []TransactionDTO `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// CryptomusWebhookResult reports what a callback delivery did
type CryptomusWebhookResult struct {
	Success bool   `json:"success"`
	Outcome string `json:"outcome"`
}
