package order

import "github.com/example/ec-order-payments/internal/model"

// validTransitions defines allowed state transitions
var validTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:   {model.OrderCompleted, model.OrderCancelled, model.OrderFailed},
	model.OrderFailed:    {model.OrderCompleted, model.OrderCancelled},
	model.OrderCompleted: {model.OrderShipped, model.OrderRefunded},
	model.OrderShipped:   {model.OrderRefunded},
	model.OrderCancelled: {}, // terminal state
	model.OrderRefunded:  {}, // terminal state
}

// CanTransition checks if an order may move from one status to another
func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsPayable reports whether a new payment intent may be created for the order
func IsPayable(o *model.Order) bool {
	return o.Status == model.OrderPending || o.Status == model.OrderFailed
}
