package api

import (
	"net/http"

	"github.com/example/ec-order-payments/internal/api/middleware"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/rs/zerolog"
)

// NewRouter wires every route. The webhook handler authenticates by
// signature, so it sits outside the token middleware.
func NewRouter(handlers *Handlers, webhook http.Handler, tokens middleware.TokenValidator, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	authenticated := middleware.AuthMiddleware(tokens)
	user := func(h http.HandlerFunc) http.Handler {
		return authenticated(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authenticated(middleware.RequireRole(model.RoleAdmin)(h))
	}

	mux.HandleFunc("GET /healthz", handlers.Health)

	// Products
	mux.Handle("GET /products", user(handlers.ListProducts))
	mux.Handle("GET /products/{id}", user(handlers.GetProduct))
	mux.Handle("POST /products", admin(handlers.CreateProduct))
	mux.Handle("PATCH /products/{id}", admin(handlers.UpdateProduct))
	mux.Handle("DELETE /products/{id}", admin(handlers.DeleteProduct))

	// Orders
	mux.Handle("POST /orders", user(handlers.CreateOrder))
	mux.Handle("GET /orders", user(handlers.ListOrders))
	mux.Handle("GET /orders/{id}", user(handlers.GetOrder))
	mux.Handle("PATCH /orders/{id}/status", admin(handlers.UpdateOrderStatus))
	mux.Handle("PATCH /orders/{id}/cancel", user(handlers.CancelOrder))
	mux.Handle("DELETE /orders/{id}", admin(handlers.DeleteOrder))

	// Payments
	mux.Handle("POST /payments/create-intent", user(handlers.CreatePaymentIntent))
	mux.Handle("GET /payments", admin(handlers.ListPayments))
	mux.Handle("POST /payments/webhook", webhook)

	// Refunds
	mux.Handle("POST /refunds", admin(handlers.CreateRefund))
	mux.Handle("GET /refunds", admin(handlers.ListRefunds))
	mux.Handle("PATCH /refunds/{id}/status", admin(handlers.UpdateRefundStatus))

	// Live notifications
	mux.Handle("GET /events", user(handlers.Events))

	return middleware.RequestID(log)(middleware.Logger(log)(mux))
}
