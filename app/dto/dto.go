package dto

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail represents error details in API responses
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// Error codes shared by every endpoint. Handlers may return more specific
// codes carried on business errors.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeWebhookIP          = "WEBHOOK_IP_NOT_ALLOWED"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyProcessed   = "ALREADY_PROCESSED"
	CodeProviderError      = "PROVIDER_ERROR"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeRequestError       = "REQUEST_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)
