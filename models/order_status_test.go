package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range NonTerminalOrderStatuses {
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []OrderStatus{OrderStatusPartial, OrderStatusCompleted, OrderStatusCanceled, OrderStatusRefunded, OrderStatusExpired} {
		assert.True(t, s.IsTerminal(), s)
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("In progress").Valid())
}

func TestOrderStatusSMSWatched(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, OrderStatusPending.SMSWatched(now.Add(-30*24*time.Hour), now))
	assert.True(t, OrderStatusExpired.SMSWatched(now.Add(-time.Hour), now))
	assert.False(t, OrderStatusExpired.SMSWatched(now.Add(-SMSRefundWatch), now))
	assert.False(t, OrderStatusRefunded.SMSWatched(now, now))
	assert.False(t, OrderStatusCompleted.SMSWatched(now, now))
}

func TestSMMOrderPartialRefund(t *testing.T) {
	tests := []struct {
		name     string
		charge   string
		quantity int
		remains  int
		want     string
	}{
		{"proportional", "1000", 100, 20, "200"},
		{"rounds half up", "10", 3, 1, "3.33"},
		{"rounds half up at five", "0.05", 2, 1, "0.03"},
		{"nothing remains", "1000", 100, 0, "0"},
		{"remains capped by quantity", "50", 10, 25, "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := SMMOrder{Charge: decimal.RequireFromString(tt.charge), Quantity: tt.quantity}
			got := o.PartialRefund(tt.remains)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestTransactionCanTransition(t *testing.T) {
	tx := Transaction{Status: TransactionStatusPending}
	assert.True(t, tx.CanTransitionTo(TransactionStatusSuccess))
	assert.False(t, tx.CanTransitionTo(TransactionStatusPending))

	tx.Status = TransactionStatusSuccess
	assert.True(t, tx.IsTerminal())
	assert.False(t, tx.CanTransitionTo(TransactionStatusCanceled))
}
