// Package response writes JSON bodies and the structured error envelope
// shared by the HTTP API and the webhook endpoint.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/example/ec-order-payments/internal/apperr"
)

type ErrorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// NewErrorBody exposes only the kind and the public message of err
func NewErrorBody(err error) ErrorBody {
	return ErrorBody{Error: ErrorDetail{Kind: apperr.KindOf(err), Message: apperr.MessageOf(err)}}
}

// StatusOf maps an error kind to its HTTP status
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindSignature:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func Error(w http.ResponseWriter, err error) {
	JSON(w, StatusOf(apperr.KindOf(err)), NewErrorBody(err))
}
