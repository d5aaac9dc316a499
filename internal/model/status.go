package model

import "strings"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFailed    OrderStatus = "FAILED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// ParseOrderStatus normalizes s; "PAID" is accepted as an alias of COMPLETED.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case OrderPending, OrderCompleted, OrderShipped, OrderCancelled, OrderFailed, OrderRefunded:
		return st, true
	case "PAID":
		return OrderCompleted, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundSucceeded RefundStatus = "SUCCEEDED"
	RefundFailed    RefundStatus = "FAILED"
)

func ParseRefundStatus(s string) (RefundStatus, bool) {
	switch st := RefundStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case RefundPending, RefundSucceeded, RefundFailed:
		return st, true
	}
	return "", false
}

// PaymentMethodCard is the only method the processor integration issues.
const PaymentMethodCard = "STRIPE"
