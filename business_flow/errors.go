// Package businessflow contains the ledger, deposit, reconciliation and order use cases
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/smm-panel/repository"
)

// Business flow error constants
var (
	// Account errors
	ErrUserNotFound       = errors.New("user not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAccountInactive    = errors.New("account is suspended or locked")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Ledger errors
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidBalanceField = errors.New("invalid balance field")
	ErrSameBalanceField    = errors.New("source and destination balances must differ")

	// Deposit errors
	ErrAmountTooLow              = errors.New("amount is too low")
	ErrProofRequired             = errors.New("proof image is required")
	ErrProofTooLarge             = errors.New("proof image is too large")
	ErrProofNotImage             = errors.New("proof must be an image")
	ErrReferenceRequired         = errors.New("reference is required")
	ErrUnsupportedCurrency       = errors.New("unsupported currency")
	ErrDepositNotFound           = errors.New("deposit not found")
	ErrDepositAlreadyProcessed   = errors.New("deposit already processed")
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrTransactionStateConflict  = errors.New("transaction is no longer pending")
	ErrCryptoProviderUnavailable = errors.New("crypto payment provider unavailable")
	ErrProofNotFound             = errors.New("proof image not found")

	// Webhook errors
	ErrWebhookIPNotAllowed = errors.New("webhook source ip not allowed")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrInvalidWebhook      = errors.New("invalid webhook payload")

	// Withdrawal errors
	ErrBankAccountNotFound        = errors.New("bank account not found")
	ErrWithdrawalNotFound         = errors.New("withdrawal not found")
	ErrWithdrawalAlreadyProcessed = errors.New("withdrawal already processed")

	// Referral errors
	ErrInsufficientReferralBalance = errors.New("insufficient referral balance")

	// Order errors
	ErrServiceNotFound         = errors.New("service not found")
	ErrQuantityOutOfRange      = errors.New("quantity out of range")
	ErrOrderProviderFailed     = errors.New("order provider request failed")
	ErrProductNotFound         = errors.New("product not found")
	ErrProductNotAvailable     = errors.New("product is not available")
	ErrExchangeRateUnavailable = errors.New("exchange rate unavailable")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// translateLedgerError lifts repository ledger sentinels into business errors
func translateLedgerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrNonPositiveAmount):
		return ErrInvalidAmount
	case errors.Is(err, repository.ErrInvalidBalanceField):
		return ErrInvalidBalanceField
	}
	return err
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword) || errors.Is(err, ErrInvalidCredentials)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientReferralBalance)
}

func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrAmountTooLow)
}

func IsProofError(err error) bool {
	return errors.Is(err, ErrProofRequired) || errors.Is(err, ErrProofTooLarge) || errors.Is(err, ErrProofNotImage)
}

func IsDepositNotFound(err error) bool {
	return errors.Is(err, ErrDepositNotFound)
}

func IsDepositAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrDepositAlreadyProcessed)
}

func IsTransactionNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

func IsStateConflict(err error) bool {
	return errors.Is(err, ErrTransactionStateConflict) ||
		errors.Is(err, ErrDepositAlreadyProcessed) ||
		errors.Is(err, ErrWithdrawalAlreadyProcessed) ||
		errors.Is(err, ErrProductNotAvailable)
}

func IsWebhookIPNotAllowed(err error) bool {
	return errors.Is(err, ErrWebhookIPNotAllowed)
}

func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

func IsBankAccountNotFound(err error) bool {
	return errors.Is(err, ErrBankAccountNotFound)
}

func IsWithdrawalNotFound(err error) bool {
	return errors.Is(err, ErrWithdrawalNotFound)
}

func IsProviderError(err error) bool {
	return errors.Is(err, ErrCryptoProviderUnavailable) ||
		errors.Is(err, ErrOrderProviderFailed) ||
		errors.Is(err, ErrExchangeRateUnavailable)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrDepositNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrWithdrawalNotFound) ||
		errors.Is(err, ErrBankAccountNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrProofNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsValidation reports request problems the caller can fix
func IsValidation(err error) bool {
	return IsInvalidAmount(err) ||
		IsProofError(err) ||
		errors.Is(err, ErrInvalidBalanceField) ||
		errors.Is(err, ErrSameBalanceField) ||
		errors.Is(err, ErrReferenceRequired) ||
		errors.Is(err, ErrUnsupportedCurrency) ||
		errors.Is(err, ErrQuantityOutOfRange) ||
		errors.Is(err, ErrInvalidWebhook) ||
		errors.Is(err, ErrInvalidPage) ||
		errors.Is(err, ErrInvalidPageSize)
}
