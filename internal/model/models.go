package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry with its stock counter
type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockQuantity int             `json:"stockQuantity"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OrderItem is an immutable line of an order with its price snapshot
type OrderItem struct {
	ID                  int64           `json:"id"`
	OrderID             int64           `json:"orderId"`
	ProductID           int64           `json:"productId"`
	Quantity            int             `json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unitPriceAtPurchase"`
	Subtotal            decimal.Decimal `json:"subtotal"`
}

// Order is a customer's purchase with a frozen total
type Order struct {
	ID            int64           `json:"id"`
	OwnerUserID   int64           `json:"ownerUserId"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	CancelledAt   *time.Time      `json:"cancelledAt,omitempty"`
	Items         []OrderItem     `json:"items"`
}

// Payment tracks the processor intent of an order (one per order)
type Payment struct {
	ID               int64           `json:"id"`
	OrderID          int64           `json:"orderId"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Method           string          `json:"method"`
	Status           PaymentStatus   `json:"status"`
	ExternalIntentID string          `json:"externalIntentId"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Refund is a refund request issued against a paid payment
type Refund struct {
	ID               int64           `json:"id"`
	PaymentID        int64           `json:"paymentId"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason,omitempty"`
	ExternalRefundID string          `json:"externalRefundId"`
	Status           RefundStatus    `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	ProcessedAt      *time.Time      `json:"processedAt,omitempty"`
}

// Identity is the authenticated caller as seen by the domain services
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanAccess reports whether the caller owns the resource or is an admin
func (i Identity) CanAccess(ownerUserID int64) bool {
	return i.IsAdmin() || i.UserID == ownerUserID
}
