package order

import "github.com/hvacmart/storefront/internal/domain"

// transitions lists the statuses each order status may move to.
// CANCELLED and RETURNED are terminal.
var transitions = map[string][]string{
	domain.OrderPending:    {domain.OrderConfirmed, domain.OrderCancelled},
	domain.OrderConfirmed:  {domain.OrderProcessing, domain.OrderShipped, domain.OrderCancelled},
	domain.OrderProcessing: {domain.OrderShipped, domain.OrderCancelled},
	domain.OrderShipped:    {domain.OrderDelivered},
	domain.OrderDelivered:  {domain.OrderReturned},
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from from.
func NextStatuses(from string) []string {
	next := transitions[from]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case domain.OrderPending, domain.OrderConfirmed, domain.OrderProcessing, domain.OrderShipped,
		domain.OrderDelivered, domain.OrderCancelled, domain.OrderReturned:
		return true
	}
	return false
}
