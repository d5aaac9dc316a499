package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/domain/inventory"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxRequestBytes bounds JSON request bodies
const maxRequestBytes = 64 << 10

var ErrSKUImmutable = apperr.New(apperr.KindValidation, "sku cannot be changed")

// Product requests

type createProductRequest struct {
	SKU           string          `json:"sku" validate:"required,max=64"`
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description" validate:"max=2000"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	Active        *bool           `json:"active"`
}

type updateProductRequest struct {
	SKU           *string          `json:"sku"`
	Name          *string          `json:"name" validate:"omitnil,min=1,max=255"`
	Description   *string          `json:"description" validate:"omitnil,max=2000"`
	UnitPrice     *decimal.Decimal `json:"unitPrice"`
	StockQuantity *int             `json:"stockQuantity" validate:"omitnil,gte=0"`
	Active        *bool            `json:"active"`
}

// Order requests

type orderItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,max=2147483647"`
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r createOrderRequest) lines() []inventory.Line {
	lines := make([]inventory.Line, len(r.Items))
	for i, item := range r.Items {
		lines[i] = inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Payment and refund requests

type createIntentRequest struct {
	OrderID int64 `json:"orderId" validate:"required,gt=0"`
}

type createRefundRequest struct {
	PaymentID int64            `json:"paymentId" validate:"required,gt=0"`
	Amount    *decimal.Decimal `json:"amount"`
	Reason    string           `json:"reason" validate:"max=500"`
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("malformed JSON body").Wrap(err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid request").Wrap(err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s", field, fe.Param())
	case "max":
		switch fe.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
			return fmt.Sprintf("%s must be at most %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// pathID parses a positive integer path parameter
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter, returning 0 when absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid %s %q", name, raw)
	}
	return n, nil
}
