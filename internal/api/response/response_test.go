package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindSignature, http.StatusBadRequest},
		{apperr.KindUnauthenticated, http.StatusUnauthorized},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindAuthorization, http.StatusForbidden},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindExternal, http.StatusBadGateway},
		{apperr.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.kind))
		})
	}
}

func TestError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, fmt.Errorf("query orders: %w", errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"kind":"internal","message":"internal server error"}}`, rec.Body.String())
}

func TestError_ClassifiedError(t *testing.T) {
	rec := httptest.NewRecorder()
	notFound := apperr.New(apperr.KindNotFound, "order not found")

	Error(rec, fmt.Errorf("get: %w", notFound.Withf("id %d", 9)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"kind":"not_found","message":"order not found: id 9"}}`, rec.Body.String())
}
