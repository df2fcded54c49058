package models

import "time"

// OrderStatus is the internal lifecycle shared by every provider-backed order.
// Provider vocabularies are translated into it by per-provider adapters.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusActive    OrderStatus = "active"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusExpired   OrderStatus = "expired"
)

// NonTerminalOrderStatuses are the statuses the pollers still reconcile
var NonTerminalOrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusActive}

// SMSRefundWatch is how long an expired SMS rental stays in the poll set.
// The provider refunds unused rentals some time after they expire.
const SMSRefundWatch = 48 * time.Hour

// SMSWatched reports whether the SMS poller still applies provider updates to
// an order in this status that was last written at updatedAt.
func (s OrderStatus) SMSWatched(updatedAt, now time.Time) bool {
	if s == OrderStatusExpired {
		return now.Sub(updatedAt) < SMSRefundWatch
	}
	return !s.IsTerminal()
}

// IsTerminal reports whether no further provider update is applied
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusPartial, OrderStatusCompleted, OrderStatusCanceled, OrderStatusRefunded, OrderStatusExpired:
		return true
	}
	return false
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusActive, OrderStatusPartial, OrderStatusCompleted,
		OrderStatusCanceled, OrderStatusRefunded, OrderStatusExpired:
		return true
	}
	return false
}
