package api

import (
	"context"
	"net/http"
	"time"

	"github.com/example/ec-order-payments/internal/api/middleware"
	"github.com/example/ec-order-payments/internal/api/response"
	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/domain/order"
	"github.com/example/ec-order-payments/internal/domain/payment"
	"github.com/example/ec-order-payments/internal/domain/product"
	"github.com/example/ec-order-payments/internal/domain/refund"
	"github.com/example/ec-order-payments/internal/model"
	"github.com/example/ec-order-payments/internal/notification"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	products *product.Service
	orders   *order.Service
	payments *payment.Manager
	refunds  *refund.Manager
	hub      *notification.Hub
	db       Pinger
	validate *validator.Validate
	log      zerolog.Logger

	keepAlive time.Duration
}

func NewHandlers(
	products *product.Service,
	orders *order.Service,
	payments *payment.Manager,
	refunds *refund.Manager,
	hub *notification.Hub,
	db Pinger,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		products:  products,
		orders:    orders,
		payments:  payments,
		refunds:   refunds,
		hub:       hub,
		db:        db,
		validate:  newValidator(),
		log:       log,
		keepAlive: DefaultKeepAlive,
	}
}

// fail writes err as a JSON error; unexpected failures are logged with the
// request-scoped logger
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindInternal, apperr.KindExternal:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	response.Error(w, err)
}

// identity is set by the auth middleware on every authenticated route
func identity(r *http.Request) model.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

// Health

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Product Handlers

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.products.List(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.products.Create(r.Context(), product.CreateInput{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		UnitPrice:     req.UnitPrice,
		StockQuantity: req.StockQuantity,
		Active:        req.Active,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req updateProductRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.SKU != nil {
		h.fail(w, r, ErrSKUImmutable)
		return
	}

	p, err := h.products.Update(r.Context(), id, product.UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		UnitPrice:     req.UnitPrice,
		StockQuantity: req.StockQuantity,
		Active:        req.Active,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Order Handlers

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.Create(r.Context(), identity(r).UserID, req.lines())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, o)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.Get(r.Context(), id, identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.Cancel(r.Context(), id, identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, o)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Payment Handlers

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.payments.CreateIntent(r.Context(), req.OrderID, identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, payments)
}

// Refund Handlers

func (h *Handlers) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req createRefundRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	rf, err := h.refunds.Create(r.Context(), req.PaymentID, req.Amount, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, rf)
}

func (h *Handlers) ListRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.refunds.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, refunds)
}

func (h *Handlers) UpdateRefundStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	rf, err := h.refunds.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, rf)
}
