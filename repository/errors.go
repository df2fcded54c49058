package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
	// ErrInsufficientFunds is returned by Debit when the balance is below the amount
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUserNotFound is returned by ledger mutations on an unknown user
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidBalanceField is returned for a column outside the balance whitelist
	ErrInvalidBalanceField = errors.New("invalid balance field")
	// ErrNonPositiveAmount is returned for ledger mutations with amount <= 0
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// mapDBError translates driver errors into repository sentinels
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// IsDuplicate reports whether err is a unique-constraint violation
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
